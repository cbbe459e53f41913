package memory

import (
	"strings"
	"time"

	"healthtrack-realtime/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/patrickmn/go-cache"
)

// Cache keys invalidated by the realtime router.
const (
	KeyConversations    = "conversations"
	KeyUnreadCount      = "unread-count"
	KeyNutritionTargets = "nutrition-targets"

	// InvalidatedTopic carries one message per invalidated key ("*" for a full flush).
	InvalidatedTopic = "cache.invalidated"
	invalidateAllKey = "*"
)

func ConversationMessagesKey(conversationID string) string {
	return KeyConversations + ":" + conversationID + ":messages"
}

// QueryCache is the client's session-scoped query cache. Consumers Set fetched data,
// the realtime core only ever invalidates.
type QueryCache struct {
	cache     *cache.Cache
	publisher message.Publisher
	logger    logger.ILogger
}

// NewQueryCache creates a cache whose entries expire after ttl. publisher may be nil.
func NewQueryCache(ttl time.Duration, publisher message.Publisher, log logger.ILogger) *QueryCache {
	return &QueryCache{
		cache:     cache.New(ttl, 2*ttl),
		publisher: publisher,
		logger:    log,
	}
}

func (c *QueryCache) Set(key string, value interface{}) {
	c.cache.Set(key, value, cache.DefaultExpiration)
}

func (c *QueryCache) Get(key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Invalidate drops key. A key ending in ":" drops every entry with that prefix.
func (c *QueryCache) Invalidate(key string) {
	if strings.HasSuffix(key, ":") {
		for k := range c.cache.Items() {
			if strings.HasPrefix(k, key) {
				c.cache.Delete(k)
			}
		}
	} else {
		c.cache.Delete(key)
	}
	c.publish(key)
}

// InvalidateAll flushes every session-scoped entry.
func (c *QueryCache) InvalidateAll() {
	c.cache.Flush()
	c.publish(invalidateAllKey)
}

func (c *QueryCache) ItemCount() int {
	return c.cache.ItemCount()
}

func (c *QueryCache) publish(key string) {
	if c.publisher == nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), []byte(key))
	if err := c.publisher.Publish(InvalidatedTopic, msg); err != nil {
		c.logger.Warn("QueryCache", "Failed to publish invalidation", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
