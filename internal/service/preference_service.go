package service

import (
	"context"
	"errors"

	"healthtrack-realtime/internal/dto"
	"healthtrack-realtime/internal/mapper"
	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/repository"

	"github.com/google/uuid"
)

type IPreferenceService interface {
	Get(ctx context.Context, userID uuid.UUID) (*dto.PreferenceResponse, error)
	Update(ctx context.Context, userID uuid.UUID, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error)
}

type preferenceService struct {
	repo   repository.PreferenceRepository
	logger logger.ILogger
}

func NewPreferenceService(repo repository.PreferenceRepository, log logger.ILogger) IPreferenceService {
	return &preferenceService{repo: repo, logger: log}
}

func (s *preferenceService) Get(ctx context.Context, userID uuid.UUID) (*dto.PreferenceResponse, error) {
	row, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mapper.ToPreferenceResponse(row), nil
}

func (s *preferenceService) Update(ctx context.Context, userID uuid.UUID, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error) {
	row, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	mapper.ApplyPreferenceUpdate(row, req)
	if err := s.repo.Save(ctx, row); err != nil {
		s.logger.Error("PreferenceService", "Failed to save preferences", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return nil, err
	}

	s.logger.Info("PreferenceService", "Preferences updated", map[string]interface{}{"user_id": userID})
	return mapper.ToPreferenceResponse(row), nil
}

// find returns the stored row, or the defaults for a user who never saved one.
func (s *preferenceService) find(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	row, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrPreferenceNotFound) {
		return mapper.DefaultPreferenceRow(userID), nil
	}
	return row, err
}
