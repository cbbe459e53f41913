package service

import (
	"context"
	"fmt"
	"sync"

	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/pkg/logger"
)

// PreferencesAPI is the remote preferences endpoint.
type PreferencesAPI interface {
	Get(ctx context.Context) (model.Preferences, error)
	Update(ctx context.Context, prefs model.Preferences) (model.Preferences, error)
}

// PreferenceStore holds the signed-in user's notification settings for this tab.
type PreferenceStore struct {
	api    PreferencesAPI
	logger logger.ILogger

	mu     sync.RWMutex
	prefs  model.Preferences
	loaded bool
}

func NewPreferenceStore(api PreferencesAPI, log logger.ILogger) *PreferenceStore {
	return &PreferenceStore{
		api:    api,
		logger: log,
		prefs:  model.DefaultPreferences(),
	}
}

// Load fetches the record once per session. Later calls do nothing until Reset.
// On failure the defaults stay in place.
func (s *PreferenceStore) Load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	prefs, err := s.api.Get(ctx)
	if err != nil {
		s.logger.Warn("PreferenceStore", "Failed to load preferences, using defaults", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("load preferences: %w", err)
	}

	s.mu.Lock()
	s.prefs = prefs.Clone()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *PreferenceStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Current returns a snapshot safe to read while other goroutines mutate the store.
func (s *PreferenceStore) Current() model.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

// Reset drops the session's preferences.
func (s *PreferenceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = model.DefaultPreferences()
	s.loaded = false
}

func (s *PreferenceStore) SetSoundEnabled(ctx context.Context, enabled bool) error {
	return s.mutate(ctx, func(p *model.Preferences) { p.SoundEnabled = enabled })
}

func (s *PreferenceStore) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return s.mutate(ctx, func(p *model.Preferences) { p.NotificationsEnabled = enabled })
}

// SetQuietHours replaces the window. Passing a nil half disables quiet hours.
func (s *PreferenceStore) SetQuietHours(ctx context.Context, start, end *model.TimeOfDay) error {
	return s.mutate(ctx, func(p *model.Preferences) {
		p.QuietHoursStart = copyTime(start)
		p.QuietHoursEnd = copyTime(end)
	})
}

func (s *PreferenceStore) MuteConversation(ctx context.Context, conversationID string) error {
	return s.mutate(ctx, func(p *model.Preferences) {
		if p.MutedConversations == nil {
			p.MutedConversations = map[string]struct{}{}
		}
		p.MutedConversations[conversationID] = struct{}{}
	})
}

func (s *PreferenceStore) UnmuteConversation(ctx context.Context, conversationID string) error {
	return s.mutate(ctx, func(p *model.Preferences) {
		delete(p.MutedConversations, conversationID)
	})
}

// mutate applies fn locally, then persists the whole record. The local change is kept
// even if the PATCH fails.
func (s *PreferenceStore) mutate(ctx context.Context, fn func(p *model.Preferences)) error {
	s.mu.Lock()
	fn(&s.prefs)
	snapshot := s.prefs.Clone()
	s.mu.Unlock()

	if _, err := s.api.Update(ctx, snapshot); err != nil {
		s.logger.Error("PreferenceStore", "Failed to persist preferences", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func copyTime(t *model.TimeOfDay) *model.TimeOfDay {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
