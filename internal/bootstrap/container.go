package bootstrap

import (
	"context"
	"fmt"

	"healthtrack-realtime/internal/config"
	"healthtrack-realtime/internal/controller"
	"healthtrack-realtime/internal/handler"
	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/repository"
	"healthtrack-realtime/internal/repository/implementation"
	"healthtrack-realtime/internal/repository/memory"
	"healthtrack-realtime/internal/service"
	"healthtrack-realtime/internal/websocket"
	pktNats "healthtrack-realtime/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds the relay's dependencies.
type Container struct {
	// Controllers
	PreferenceController controller.IPreferenceController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Background Services (Exposed for main.go to run)
	RelayService *service.RelayService

	Logger logger.ILogger

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

// NewContainer wires the relay. db may be nil when cfg selects the memory preference store.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	var prefRepo repository.PreferenceRepository
	switch cfg.Relay.PreferenceStore {
	case "memory":
		prefRepo = memory.NewPreferenceRepository()
	default:
		if db == nil {
			return nil, fmt.Errorf("preference store %q needs a database", cfg.Relay.PreferenceStore)
		}
		prefRepo = implementation.NewPreferenceRepository(db)
	}

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
	}

	rdb := newRedisClient(cfg.App.RedisURL, sysLogger)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	c := &Container{
		PreferenceController: controller.NewPreferenceController(service.NewPreferenceService(prefRepo, sysLogger), cfg.App.JWTSecret),
		WebSocketHub:         wsHub,
		Logger:               sysLogger,
		natsPub:              natsPub,
		natsSub:              natsSub,
		rdb:                  rdb,
	}

	// a nil *Publisher must not become a non-nil interface
	var publisher handler.EventPublisher
	if natsPub != nil {
		publisher = natsPub
	}
	c.NotificationHandler = handler.NewNotificationHandler(publisher, wsHub, cfg.App.JWTSecret, wsLogger)

	if natsSub != nil {
		c.RelayService = service.NewRelayService(natsSub, wsHub, wsLogger)
	}

	return c, nil
}

// Start runs the hub and the event consumer until ctx is done.
func (c *Container) Start(ctx context.Context) {
	go c.WebSocketHub.Run(ctx)

	if c.RelayService == nil {
		c.Logger.Warn("Bootstrap", "NATS unavailable, relay will not forward domain events", nil)
		return
	}
	if err := c.RelayService.Start(ctx); err != nil {
		c.Logger.Error("Bootstrap", "Relay service failed to start", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	c.Logger.Sync()
}
