package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"healthtrack-realtime/internal/bootstrap"
	"healthtrack-realtime/internal/config"

	"github.com/fatih/color"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.ValidateClient(); err != nil {
		log.Fatalf("Invalid notifier configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewClientContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Close()

	// 3. Start the realtime core
	if err := container.Start(ctx); err != nil {
		log.Fatalf("Notifier failed to start: %v", err)
	}

	// Resuming a stopped notifier (fg after ctrl-z) is the terminal's "tab visible again".
	resumed := make(chan os.Signal, 1)
	signal.Notify(resumed, syscall.SIGCONT)
	go func() {
		for range resumed {
			container.Supervisor.VisibilityChanged(true)
		}
	}()

	// 4. Console
	go readConsole(ctx, container)

	<-ctx.Done()
	log.Println("Notifier shutting down...")
}

func readConsole(ctx context.Context, container *bootstrap.ClientContainer) {
	errColor := color.New(color.FgRed)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out, err := runCommand(ctx, scanner.Text(), container.Preferences, container)
		if err != nil {
			errColor.Fprintln(os.Stderr, err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}
