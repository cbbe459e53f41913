package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"healthtrack-realtime/internal/config"
	"healthtrack-realtime/pkg/events"
	pktNats "healthtrack-realtime/pkg/nats"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Publishes the domain events the chat and nutrition services would, so a running relay and
// notifier can be exercised end to end without those services.
func main() {
	recipient := flag.String("to", "", "recipient user id")
	sender := flag.String("from", uuid.NewString(), "sender user id")
	conversation := flag.String("conversation", "demo-conversation", "conversation id")
	count := flag.Int("n", 3, "messages to send")
	interval := flag.Duration("every", 2*time.Second, "delay between messages")
	flag.Parse()

	if _, err := uuid.Parse(*recipient); err != nil {
		log.Fatalf("-to must be a user id: %v", err)
	}

	cfg := config.Load()
	pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	ok := color.New(color.FgGreen)
	fmt.Println("=== Realtime Event Simulation ===")

	for i := 1; i <= *count; i++ {
		messageID := uuid.NewString()
		publish(pub, events.MessageCreated, map[string]interface{}{
			"message_id":      messageID,
			"conversation_id": *conversation,
			"sender_id":       *sender,
			"content":         fmt.Sprintf("Simulated message %d", i),
			"created_at":      time.Now().UTC().Format(time.RFC3339),
			"recipient_ids":   []string{*recipient},
		})
		publish(pub, events.UnreadCountChanged, map[string]interface{}{"user_id": *recipient})
		publish(pub, events.MessageDelivered, map[string]interface{}{
			"message_id":      messageID,
			"conversation_id": *conversation,
			"sender_id":       *sender,
		})
		ok.Printf("sent message %d/%d\n", i, *count)
		time.Sleep(*interval)
	}

	publish(pub, events.NutritionTargetsUpdated, map[string]interface{}{"user_id": *recipient})
	ok.Println("sent nutrition targets update")
}

func publish(pub *pktNats.Publisher, eventType string, payload map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	evt := events.BaseEvent{Type: eventType, Data: payload, OccurredAt: time.Now()}
	if err := pub.Publish(ctx, evt); err != nil {
		color.New(color.FgRed).Printf("publish %s failed: %v\n", eventType, err)
	}
}
