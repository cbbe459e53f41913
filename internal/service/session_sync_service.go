package service

import (
	"context"
	"fmt"
	"sync"

	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/pkg/store"
)

// SessionCache is the part of the query cache the synchronizer clears.
type SessionCache interface {
	InvalidateAll()
}

// SessionHooks are what the host does once this tab adopts another tab's session mode.
type SessionHooks struct {
	SessionCleared func()
	RefetchContext func(mode string)
}

// SessionSyncService keeps every tab of a user on the same session mode through a shared
// marker. Values equal to the local mode are treated as this tab's own writes.
type SessionSyncService struct {
	marker store.MarkerStore
	cache  SessionCache
	hooks  SessionHooks
	logger logger.ILogger

	mu   sync.Mutex
	mode string
}

func NewSessionSyncService(marker store.MarkerStore, cache SessionCache, hooks SessionHooks, log logger.ILogger) *SessionSyncService {
	return &SessionSyncService{
		marker: marker,
		cache:  cache,
		hooks:  hooks,
		logger: log,
	}
}

func (s *SessionSyncService) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode records a mode change made in this tab and publishes it. "" clears the session.
func (s *SessionSyncService) SetMode(ctx context.Context, mode string) error {
	if !store.ValidMode(mode) {
		return fmt.Errorf("unknown session mode %q", mode)
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()

	if err := s.marker.Write(ctx, mode); err != nil {
		s.logger.Error("SessionSync", "Failed to write session marker", map[string]interface{}{"mode": mode, "error": err.Error()})
		return err
	}
	return nil
}

// Start adopts the current marker value as the local mode and begins watching it.
func (s *SessionSyncService) Start(ctx context.Context) error {
	current, err := s.marker.Read(ctx)
	if err != nil {
		return fmt.Errorf("read session marker: %w", err)
	}
	s.mu.Lock()
	s.mode = current
	s.mu.Unlock()

	return s.marker.Watch(ctx, s.observe)
}

func (s *SessionSyncService) observe(value string) {
	if !store.ValidMode(value) {
		s.logger.Warn("SessionSync", "Ignoring unknown session marker", map[string]interface{}{"value": value})
		return
	}

	s.mu.Lock()
	if value == s.mode {
		s.mu.Unlock()
		return
	}
	previous := s.mode
	s.mode = value
	s.mu.Unlock()

	s.logger.Info("SessionSync", "Session mode changed in another tab", map[string]interface{}{"from": previous, "to": value})
	s.cache.InvalidateAll()

	if value == store.ModeNone {
		if s.hooks.SessionCleared != nil {
			s.hooks.SessionCleared()
		}
		return
	}
	if s.hooks.RefetchContext != nil {
		s.hooks.RefetchContext(value)
	}
}
