package controller

import (
	"healthtrack-realtime/internal/dto"
	"healthtrack-realtime/internal/pkg/serverutils"
	"healthtrack-realtime/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPreferenceController interface {
	RegisterRoutes(r fiber.Router)
	GetPreferences(ctx *fiber.Ctx) error
	UpdatePreferences(ctx *fiber.Ctx) error
}

type preferenceController struct {
	service   service.IPreferenceService
	jwtSecret string
}

func NewPreferenceController(service service.IPreferenceService, jwtSecret string) IPreferenceController {
	return &preferenceController{service: service, jwtSecret: jwtSecret}
}

func (c *preferenceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/notification-preferences")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("/", c.GetPreferences)
	h.Patch("/", c.UpdatePreferences)
}

func (c *preferenceController) GetPreferences(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	res, err := c.service.Get(ctx.UserContext(), userID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Notification preferences", res))
}

func (c *preferenceController) UpdatePreferences(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	var req dto.UpdatePreferenceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Update(ctx.UserContext(), userID, &req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Notification preferences updated", res))
}
