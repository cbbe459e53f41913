package bootstrap

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"healthtrack-realtime/internal/client"
	"healthtrack-realtime/internal/config"
	"healthtrack-realtime/internal/pkg/alert"
	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/realtime"
	"healthtrack-realtime/internal/repository/memory"
	"healthtrack-realtime/internal/service"
	"healthtrack-realtime/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// ClientContainer holds one notifier tab: the realtime core plus its collaborators.
type ClientContainer struct {
	Supervisor  *realtime.Supervisor
	Router      *realtime.Router
	Preferences *service.PreferenceStore
	SessionSync *service.SessionSyncService
	Cache       *memory.QueryCache
	Alerter     *alert.TerminalAlerter

	Invalidations service.IInvalidationConsumerService

	Logger   logger.ILogger
	RTLogger logger.ILogger

	cfg    *config.Config
	tokens client.TokenProvider
	pubSub *gochannel.GoChannel
	rdb    *redis.Client

	// active is true while this tab holds a session
	active atomic.Bool
}

func NewClientContainer(ctx context.Context, cfg *config.Config) (*ClientContainer, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	rtLogger := logger.NewIsolatedLogger(cfg.Client.RealtimeLogPath)

	tokens, err := newTokenProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Event Bus for cache invalidations
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	cache := memory.NewQueryCache(cfg.Client.CacheTTL, pubSub, rtLogger)

	prefsClient := client.NewPreferencesClient(cfg.Client.PageOrigin, tokens, client.BreakerConfig{
		MaxFailures: uint32(cfg.Client.BreakerMaxFailures),
		Timeout:     cfg.Client.BreakerTimeout,
	}, sysLogger)
	prefs := service.NewPreferenceStore(prefsClient, sysLogger)

	alerter := alert.NewTerminalAlerter(os.Stdout, cfg.Client.TerminalBell)
	router := realtime.NewRouter(cache, alerter, prefs, rtLogger)

	c := &ClientContainer{
		Router:        router,
		Preferences:   prefs,
		Cache:         cache,
		Alerter:       alerter,
		Invalidations: service.NewInvalidationConsumerService(pubSub, memory.InvalidatedTopic, rtLogger),
		Logger:        sysLogger,
		RTLogger:      rtLogger,
		cfg:           cfg,
		tokens:        tokens,
		pubSub:        pubSub,
	}

	c.Supervisor = realtime.NewSupervisor(realtime.SupervisorOptions{
		Opener: realtime.NewDialer(realtime.DialerOptions{
			HeartbeatInterval: cfg.Client.HeartbeatInterval,
			LivenessTimeout:   cfg.Client.LivenessTimeout,
		}, rtLogger),
		Dispatcher:  router,
		Endpoint:    cfg.Client.RealtimeURL,
		PageOrigin:  cfg.Client.PageOrigin,
		DefaultPath: cfg.Client.WSPath,
		DialTimeout: cfg.Client.DialTimeout,
		OnStateChange: func(from, to realtime.ConnectionState) {
			var err error
			if to == realtime.StateError || to == realtime.StateDisconnected {
				err = c.Supervisor.LastError()
			}
			alerter.Status(to.String(), err)
		},
	}, rtLogger)

	marker, err := c.newMarker(cfg)
	if err != nil {
		return nil, err
	}
	c.SessionSync = service.NewSessionSyncService(marker, cache, service.SessionHooks{
		SessionCleared: c.endSession,
		RefetchContext: func(mode string) { c.beginSession(ctx) },
	}, sysLogger)

	return c, nil
}

func newTokenProvider(ctx context.Context, cfg *config.Config) (client.TokenProvider, error) {
	switch cfg.Client.TokenSource {
	case "dev":
		userID, err := uuid.Parse(cfg.Client.UserID)
		if err != nil {
			return nil, fmt.Errorf("dev token source needs NOTIFIER_USER_ID: %w", err)
		}
		return client.NewDevTokenProvider(cfg.App.JWTSecret, userID, 0), nil
	case "oauth":
		conf := &oauth2.Config{
			ClientID:     cfg.Client.OAuthClientID,
			ClientSecret: cfg.Client.OAuthClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.Client.OAuthTokenURL},
		}
		return client.NewOAuthTokenProvider(ctx, conf, cfg.Client.OAuthRefreshToken), nil
	default:
		return client.NewStaticTokenProvider(cfg.Client.AccessToken), nil
	}
}

func (c *ClientContainer) newMarker(cfg *config.Config) (store.MarkerStore, error) {
	switch cfg.Client.MarkerBackend {
	case "memory":
		return store.NewMemoryMarkerBus().Tab(), nil
	case "redis":
		c.rdb = newRedisClient(cfg.App.RedisURL, c.Logger)
		if c.rdb == nil {
			return nil, fmt.Errorf("session marker backend redis: redis unavailable")
		}
		return store.NewRedisMarker(c.rdb, cfg.Client.UserID), nil
	default:
		return store.NewFileMarker(cfg.Client.MarkerPath)
	}
}

// Start runs the realtime core until ctx is done. A configured session mode signs this tab in;
// otherwise it adopts whatever session the other tabs share.
func (c *ClientContainer) Start(ctx context.Context) error {
	go c.Supervisor.Run(ctx)

	if err := c.Invalidations.Consume(ctx); err != nil {
		c.Logger.Warn("Bootstrap", "Cache invalidation consumer unavailable", map[string]interface{}{"error": err.Error()})
	}

	if err := c.SessionSync.Start(ctx); err != nil {
		return err
	}

	if mode := c.cfg.Client.SessionMode; mode != "" && mode != c.SessionSync.Mode() {
		if err := c.SessionSync.SetMode(ctx, mode); err != nil {
			return err
		}
	}

	if c.SessionSync.Mode() != store.ModeNone {
		c.beginSession(ctx)
	} else {
		c.Logger.Info("Bootstrap", "No session yet, waiting for another tab to sign in", nil)
	}
	return nil
}

func (c *ClientContainer) beginSession(ctx context.Context) {
	c.Preferences.Reset()
	if err := c.Preferences.Load(ctx); err != nil {
		c.Logger.Warn("Bootstrap", "Continuing with default preferences", map[string]interface{}{"error": err.Error()})
	}

	if c.active.Swap(true) {
		c.Supervisor.Reconnect()
		return
	}
	c.Supervisor.StartSession(realtime.Session{UserID: c.cfg.Client.UserID, Tokens: c.tokens})
}

func (c *ClientContainer) endSession() {
	c.active.Store(false)
	c.Preferences.Reset()
	c.Supervisor.StopSession()
}

// SignIn switches this tab, and through the marker every other tab, to mode.
func (c *ClientContainer) SignIn(ctx context.Context, mode string) error {
	if mode == store.ModeNone {
		return c.SignOut(ctx)
	}
	if err := c.SessionSync.SetMode(ctx, mode); err != nil {
		return err
	}
	c.Cache.InvalidateAll()
	c.beginSession(ctx)
	return nil
}

// Status describes the connection for the console.
func (c *ClientContainer) Status() string {
	status := fmt.Sprintf("%s (mode=%q, attempts=%d)", c.Supervisor.State(), c.SessionSync.Mode(), c.Supervisor.Attempts())
	if err := c.Supervisor.LastError(); err != nil {
		status += ": " + err.Error()
	}
	return status
}

// Reconnect forces a fresh connection for the current session.
func (c *ClientContainer) Reconnect() {
	c.Supervisor.Reconnect()
}

// SignOut ends the session here and in every other tab.
func (c *ClientContainer) SignOut(ctx context.Context) error {
	c.endSession()
	c.Cache.InvalidateAll()
	return c.SessionSync.SetMode(ctx, store.ModeNone)
}

func (c *ClientContainer) Close() {
	c.pubSub.Close()
	if c.rdb != nil {
		c.rdb.Close()
	}
	c.Logger.Sync()
	c.RTLogger.Sync()
}
