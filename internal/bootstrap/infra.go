package bootstrap

import (
	"context"
	"time"

	"healthtrack-realtime/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// newRedisClient returns nil when redis is unreachable; callers fall back to single-instance behavior.
func newRedisClient(url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		return nil
	}
	return rdb
}
