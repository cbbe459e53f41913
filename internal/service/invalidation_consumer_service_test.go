package service

import (
	"context"
	"testing"
	"time"

	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/repository/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidationConsumer_SeesCacheInvalidations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumer := NewInvalidationConsumerService(pubSub, memory.InvalidatedTopic, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	cache := memory.NewQueryCache(time.Minute, pubSub, logger.NewNopLogger())
	cache.Invalidate(memory.KeyUnreadCount)
	cache.InvalidateAll()

	assert.Eventually(t, func() bool { return consumer.Count() == 2 }, time.Second, 10*time.Millisecond)
}
