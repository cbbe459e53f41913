package service

import (
	"context"
	"fmt"
	"time"

	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/pkg/events"
	pktNats "healthtrack-realtime/pkg/nats"
	"healthtrack-realtime/pkg/protocol"

	"github.com/google/uuid"
)

// FrameDelivery pushes encoded frames to a user's live connections.
// Implemented by the websocket Hub.
type FrameDelivery interface {
	Send(userID uuid.UUID, frame []byte)
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, durableName string, handler pktNats.EventHandler) error
}

const (
	relaySubject = events.SubjectPrefix + ">"
	relayDurable = "relay-fanout-worker"
)

// RelayService turns domain events from the bus into realtime frames.
type RelayService struct {
	subscriber EventSubscriber
	delivery   FrameDelivery
	logger     logger.ILogger
}

func NewRelayService(sub EventSubscriber, delivery FrameDelivery, log logger.ILogger) *RelayService {
	return &RelayService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *RelayService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, relaySubject, relayDurable, s.handleEvent); err != nil {
		s.logger.Error("RelayService", "Failed to start relay subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("RelayService", "Relay service started, listening to "+relaySubject, nil)
	return nil
}

func (s *RelayService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	switch event.EventType() {
	case events.MessageCreated:
		msg := protocol.Message{
			ID:             events.String(payload, "message_id"),
			ConversationID: events.String(payload, "conversation_id"),
			SenderID:       events.String(payload, "sender_id"),
			Content:        events.String(payload, "content"),
			CreatedAt:      occurredAt(payload, event.Timestamp()),
		}
		if msg.ConversationID == "" {
			s.logger.Warn("RelayService", "MESSAGE_CREATED without conversation_id", nil)
			return nil
		}
		return s.fanOut(events.Strings(payload, "recipient_ids"), protocol.EventNewMessage, protocol.NewMessagePayload{Message: msg})

	case events.MessageDelivered:
		return s.fanOut(events.Strings(payload, "sender_id"), protocol.EventMessageDelivered, protocol.MessageDeliveredPayload{
			MessageID:      events.String(payload, "message_id"),
			ConversationID: events.String(payload, "conversation_id"),
		})

	case events.UnreadCountChanged:
		return s.fanOut(events.Strings(payload, "user_id"), protocol.EventUnreadUpdate, nil)

	case events.NutritionTargetsUpdated:
		return s.fanOut(events.Strings(payload, "user_id"), protocol.EventNutritionTargetsUpdate, nil)

	default:
		s.logger.Debug("RelayService", "Ignoring event", map[string]interface{}{"type": event.EventType()})
		return nil
	}
}

// fanOut never fails on bad recipients: redelivery would not fix them.
func (s *RelayService) fanOut(recipients []string, t protocol.EventType, payload any) error {
	if len(recipients) == 0 {
		s.logger.Warn("RelayService", fmt.Sprintf("No recipients for %s", t), nil)
		return nil
	}

	frame, err := protocol.Encode(t, payload)
	if err != nil {
		return err
	}

	for _, r := range recipients {
		userID, err := uuid.Parse(r)
		if err != nil {
			s.logger.Warn("RelayService", "Invalid recipient id", map[string]interface{}{"recipient": r, "type": string(t)})
			continue
		}
		s.delivery.Send(userID, frame)
	}

	s.logger.Info("RelayService", "Frame fanned out", map[string]interface{}{"type": string(t), "recipients": len(recipients)})
	return nil
}

func occurredAt(payload map[string]interface{}, fallback time.Time) time.Time {
	if raw := events.String(payload, "created_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return fallback
}
