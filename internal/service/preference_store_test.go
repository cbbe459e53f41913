package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePreferencesAPI struct {
	mu        sync.Mutex
	stored    model.Preferences
	getErr    error
	updateErr error
	gets      int
	updates   []model.Preferences
}

func (f *fakePreferencesAPI) Get(ctx context.Context) (model.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return model.Preferences{}, f.getErr
	}
	return f.stored.Clone(), nil
}

func (f *fakePreferencesAPI) Update(ctx context.Context, prefs model.Preferences) (model.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, prefs.Clone())
	if f.updateErr != nil {
		return model.Preferences{}, f.updateErr
	}
	f.stored = prefs.Clone()
	return prefs, nil
}

func TestPreferenceStore_LoadOncePerSession(t *testing.T) {
	api := &fakePreferencesAPI{stored: model.Preferences{
		SoundEnabled:         false,
		NotificationsEnabled: true,
		MutedConversations:   model.MutedSet([]string{"c1"}),
	}}
	ps := NewPreferenceStore(api, logger.NewNopLogger())

	assert.True(t, ps.Current().SoundEnabled, "defaults before load")

	require.NoError(t, ps.Load(context.Background()))
	require.NoError(t, ps.Load(context.Background()))
	assert.Equal(t, 1, api.gets)
	assert.False(t, ps.Current().SoundEnabled)
	assert.True(t, ps.Current().IsMuted("c1"))

	ps.Reset()
	assert.False(t, ps.Loaded())
	assert.True(t, ps.Current().SoundEnabled)

	require.NoError(t, ps.Load(context.Background()))
	assert.Equal(t, 2, api.gets)
}

func TestPreferenceStore_LoadFailureKeepsDefaults(t *testing.T) {
	api := &fakePreferencesAPI{getErr: errors.New("503")}
	ps := NewPreferenceStore(api, logger.NewNopLogger())

	assert.Error(t, ps.Load(context.Background()))
	assert.False(t, ps.Loaded())
	assert.Equal(t, model.DefaultPreferences().SoundEnabled, ps.Current().SoundEnabled)
	assert.False(t, ps.Current().QuietHoursActive())
}

func TestPreferenceStore_MutationsPersistWholeRecord(t *testing.T) {
	api := &fakePreferencesAPI{stored: model.DefaultPreferences()}
	ps := NewPreferenceStore(api, logger.NewNopLogger())
	ctx := context.Background()
	require.NoError(t, ps.Load(ctx))

	start, end := model.MustTimeOfDay(22, 0), model.MustTimeOfDay(6, 0)
	require.NoError(t, ps.SetQuietHours(ctx, &start, &end))
	require.NoError(t, ps.MuteConversation(ctx, "c7"))
	require.NoError(t, ps.SetSoundEnabled(ctx, false))

	require.Len(t, api.updates, 3)
	last := api.updates[2]
	assert.False(t, last.SoundEnabled)
	assert.True(t, last.IsMuted("c7"))
	assert.Equal(t, "22:00", last.QuietHoursStart.String())

	require.NoError(t, ps.UnmuteConversation(ctx, "c7"))
	require.NoError(t, ps.SetNotificationsEnabled(ctx, false))
	current := ps.Current()
	assert.False(t, current.IsMuted("c7"))
	assert.False(t, current.NotificationsEnabled)
}

func TestPreferenceStore_FailedSaveKeepsLocalValue(t *testing.T) {
	api := &fakePreferencesAPI{stored: model.DefaultPreferences(), updateErr: errors.New("timeout")}
	ps := NewPreferenceStore(api, logger.NewNopLogger())

	err := ps.MuteConversation(context.Background(), "c1")
	assert.Error(t, err)
	assert.True(t, ps.Current().IsMuted("c1"))
}

func TestPreferenceStore_CurrentIsASnapshot(t *testing.T) {
	ps := NewPreferenceStore(&fakePreferencesAPI{}, logger.NewNopLogger())
	snapshot := ps.Current()
	snapshot.MutedConversations["c1"] = struct{}{}

	assert.False(t, ps.Current().IsMuted("c1"))
}
