package handler

import (
	"context"
	"time"

	"healthtrack-realtime/internal/dto"
	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/pkg/serverutils"
	internalWS "healthtrack-realtime/internal/websocket"
	"healthtrack-realtime/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type NotificationHandler struct {
	publisher EventPublisher
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
	upgrade   fiber.Handler
}

// NewNotificationHandler wires the websocket endpoint. pub may be nil, which disables the debug trigger.
func NewNotificationHandler(pub EventPublisher, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *NotificationHandler {
	h := &NotificationHandler{
		publisher: pub,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
	h.upgrade = websocket.New(func(c *websocket.Conn) {
		h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"remote": c.RemoteAddr().String()})
		internalWS.ServeWs(h.hub, c, h.jwtSecret)
		h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"remote": c.RemoteAddr().String()})
	})
	return h
}

// ServeWs upgrades the request. Authentication happens on the first frame, not the handshake.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return h.upgrade(c)
}

// DebugTriggerEvent publishes a domain event to test the flow end to end.
func (h *NotificationHandler) DebugTriggerEvent(c *fiber.Ctx) error {
	var req dto.TriggerEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}

	evt := events.BaseEvent{
		Type:       req.Type,
		Data:       req.Payload,
		OccurredAt: time.Now(),
	}

	if h.publisher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, "Event publisher not configured"))
	}

	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		h.logger.Error("NotificationHandler", "Debug publish failed", map[string]interface{}{"type": req.Type, "error": err.Error()})
		return c.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return c.JSON(serverutils.SuccessResponse("Event Published", evt))
}

// RegisterRoutes registers the websocket route and, when enabled, the debug trigger.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router, debug bool) {
	if debug {
		router.Post("/debug/trigger-event", h.DebugTriggerEvent)
	}

	router.Get("/ws", h.ServeWs)
}
