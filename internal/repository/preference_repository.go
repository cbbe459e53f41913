package repository

import (
	"context"
	"errors"

	"healthtrack-realtime/internal/model"

	"github.com/google/uuid"
)

var ErrPreferenceNotFound = errors.New("notification preference not found")

type PreferenceRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	// Save inserts or replaces the user's row.
	Save(ctx context.Context, pref *model.NotificationPreference) error
}
