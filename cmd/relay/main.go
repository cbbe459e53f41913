package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthtrack-realtime/internal/bootstrap"
	"healthtrack-realtime/internal/config"
	"healthtrack-realtime/internal/server"
	"healthtrack-realtime/internal/tracer"
	"healthtrack-realtime/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.ValidateRelay(); err != nil {
		log.Fatalf("Invalid relay configuration: %v", err)
	}
	if cfg.App.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	// 2. Initialize Database
	var gormDB *gorm.DB
	if cfg.Relay.PreferenceStore == "postgres" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment == "production")
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Close()

	// 3b. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.Tracing, cfg.App.Environment, container.Logger)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	container.Start(ctx)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down relay...")
		done := make(chan struct{})
		go func() {
			srv.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			log.Println("Shutdown timed out")
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
