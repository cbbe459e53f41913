package service

import (
	"context"
	"sync"

	"healthtrack-realtime/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IInvalidationConsumerService interface {
	Consume(ctx context.Context) error
	Count() int
}

// invalidationConsumerService records every key the query cache drops. The notifier uses it
// to make cache activity visible in the log.
type invalidationConsumerService struct {
	subscriber message.Subscriber
	topicName  string
	logger     logger.ILogger

	mu    sync.Mutex
	count int
}

func NewInvalidationConsumerService(subscriber message.Subscriber, topicName string, log logger.ILogger) IInvalidationConsumerService {
	return &invalidationConsumerService{
		subscriber: subscriber,
		topicName:  topicName,
		logger:     log,
	}
}

func (cs *invalidationConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *invalidationConsumerService) processMessage(msg *message.Message) {
	cs.mu.Lock()
	cs.count++
	cs.mu.Unlock()

	cs.logger.Debug("CacheInvalidation", "Cache key invalidated", map[string]interface{}{"key": string(msg.Payload)})
	msg.Ack()
}

func (cs *invalidationConsumerService) Count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.count
}
