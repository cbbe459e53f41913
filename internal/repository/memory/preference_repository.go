package memory

import (
	"context"
	"time"

	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/repository"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PreferenceRepository keeps preference rows in process memory. Used when the relay runs
// without a database and in tests.
type PreferenceRepository struct {
	cache *cache.Cache
}

func NewPreferenceRepository() *PreferenceRepository {
	return &PreferenceRepository{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (r *PreferenceRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	if x, found := r.cache.Get(userID.String()); found {
		stored := x.(model.NotificationPreference)
		stored.MutedConversations = append([]string(nil), stored.MutedConversations...)
		return &stored, nil
	}
	return nil, repository.ErrPreferenceNotFound
}

func (r *PreferenceRepository) Save(ctx context.Context, pref *model.NotificationPreference) error {
	stored := *pref
	stored.MutedConversations = append([]string(nil), pref.MutedConversations...)
	stored.UpdatedAt = time.Now()
	r.cache.Set(pref.UserID.String(), stored, cache.NoExpiration)
	return nil
}
