package implementation

import (
	"context"
	"errors"

	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferenceRepositoryImpl struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) repository.PreferenceRepository {
	return &PreferenceRepositoryImpl{db: db}
}

func (r *PreferenceRepositoryImpl) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	var pref model.NotificationPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrPreferenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *PreferenceRepositoryImpl) Save(ctx context.Context, pref *model.NotificationPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sound_enabled",
				"notifications_enabled",
				"quiet_hours_start",
				"quiet_hours_end",
				"muted_conversations",
				"updated_at",
			}),
		}).
		Create(pref).Error
}
