package implementation

import (
	"context"
	"log"
	"os"
	"testing"

	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/repository"
	"healthtrack-realtime/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferenceRepository_Postgres(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, true)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.NotificationPreference{}))

	repo := NewPreferenceRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	t.Cleanup(func() {
		db.Where("user_id = ?", userID).Delete(&model.NotificationPreference{})
	})

	_, err = repo.FindByUserID(ctx, userID)
	assert.ErrorIs(t, err, repository.ErrPreferenceNotFound)

	start, end := "22:00", "06:00"
	pref := &model.NotificationPreference{
		UserID:               userID,
		SoundEnabled:         false,
		NotificationsEnabled: true,
		QuietHoursStart:      &start,
		QuietHoursEnd:        &end,
		MutedConversations:   []string{"c1"},
	}
	require.NoError(t, repo.Save(ctx, pref))

	got, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.False(t, got.SoundEnabled)
	assert.Equal(t, "22:00", *got.QuietHoursStart)
	assert.Equal(t, []string{"c1"}, []string(got.MutedConversations))

	// upsert on the same user
	pref.SoundEnabled = true
	pref.QuietHoursStart, pref.QuietHoursEnd = nil, nil
	pref.MutedConversations = []string{}
	require.NoError(t, repo.Save(ctx, pref))

	got, err = repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, got.SoundEnabled)
	assert.Nil(t, got.QuietHoursStart)
	assert.Empty(t, got.MutedConversations)
}
