package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMarker shares the marker through redis: the value lives under a per-user key and
// every write is announced on a channel of the same name.
type RedisMarker struct {
	rdb *redis.Client
	key string
}

func NewRedisMarker(rdb *redis.Client, userID string) *RedisMarker {
	return &RedisMarker{
		rdb: rdb,
		key: MarkerKey + ":" + userID,
	}
}

func (m *RedisMarker) Read(ctx context.Context) (string, error) {
	value, err := m.rdb.Get(ctx, m.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read marker: %w", err)
	}
	return value, nil
}

func (m *RedisMarker) Write(ctx context.Context, value string) error {
	var err error
	if value == "" {
		err = m.rdb.Del(ctx, m.key).Err()
	} else {
		err = m.rdb.Set(ctx, m.key, value, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	if err := m.rdb.Publish(ctx, m.key, value).Err(); err != nil {
		return fmt.Errorf("announce marker: %w", err)
	}
	return nil
}

func (m *RedisMarker) Watch(ctx context.Context, onChange func(value string)) error {
	pubsub := m.rdb.Subscribe(ctx, m.key)
	// Wait for confirmation that subscription is created before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe marker: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onChange(msg.Payload)
			}
		}
	}()
	return nil
}
