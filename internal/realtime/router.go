package realtime

import (
	"time"

	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/repository/memory"
	"healthtrack-realtime/internal/service"
	"healthtrack-realtime/pkg/protocol"
)

// Control is what a frame means to the supervisor.
type Control int

const (
	ControlNone Control = iota
	ControlAuthenticated
	ControlAuthRejected
)

// Cache is the query cache the router keeps fresh.
type Cache interface {
	Invalidate(key string)
	InvalidateAll()
}

type Alerter interface {
	Alert(evt protocol.InboundEvent)
}

type PreferenceSource interface {
	Current() model.Preferences
}

// Router turns inbound frames into cache invalidations and alerts.
type Router struct {
	cache   Cache
	alerter Alerter
	prefs   PreferenceSource
	now     func() time.Time
	logger  logger.ILogger
}

func NewRouter(cache Cache, alerter Alerter, prefs PreferenceSource, log logger.ILogger) *Router {
	return &Router{
		cache:   cache,
		alerter: alerter,
		prefs:   prefs,
		now:     time.Now,
		logger:  log,
	}
}

// Dispatch handles one frame. Undecodable frames are logged and dropped.
func (r *Router) Dispatch(frame []byte) Control {
	evt, err := protocol.DecodeEvent(frame)
	if err != nil {
		r.logger.Warn("Router", "Dropping malformed frame", map[string]interface{}{"error": err.Error(), "frame": truncate(frame)})
		return ControlNone
	}

	switch evt.Type {
	case protocol.EventAuthOK:
		return ControlAuthenticated

	case protocol.EventAuthError:
		r.logger.Warn("Router", "Authentication rejected", map[string]interface{}{"reason": evt.ErrorReason()})
		return ControlAuthRejected

	case protocol.EventNewMessage:
		// unread count and the conversation list are stale whatever the payload says
		r.cache.Invalidate(memory.KeyUnreadCount)
		r.cache.Invalidate(memory.KeyConversations)

		var payload protocol.NewMessagePayload
		if err := evt.DecodePayload(&payload); err != nil {
			r.logger.Warn("Router", "new_message without a usable payload", map[string]interface{}{"error": err.Error()})
			return ControlNone
		}
		if payload.Message.ConversationID != "" {
			r.cache.Invalidate(memory.ConversationMessagesKey(payload.Message.ConversationID))
		}
		r.alert(evt)

	case protocol.EventMessageDelivered:
		var payload protocol.MessageDeliveredPayload
		if err := evt.DecodePayload(&payload); err != nil || payload.ConversationID == "" {
			r.logger.Warn("Router", "Dropping message_delivered without conversation", nil)
			return ControlNone
		}
		r.cache.Invalidate(memory.ConversationMessagesKey(payload.ConversationID))

	case protocol.EventUnreadUpdate:
		r.cache.Invalidate(memory.KeyUnreadCount)
		r.cache.Invalidate(memory.KeyConversations)

	case protocol.EventNutritionTargetsUpdate:
		r.cache.Invalidate(memory.KeyNutritionTargets)
		r.alert(evt)

	case protocol.EventPong:
		// liveness only

	case protocol.EventError:
		r.logger.Error("Router", "Server reported an error", map[string]interface{}{"reason": evt.ErrorReason()})
	}
	return ControlNone
}

func (r *Router) alert(evt protocol.InboundEvent) {
	if r.alerter == nil {
		return
	}
	prefs := model.DefaultPreferences()
	if r.prefs != nil {
		prefs = r.prefs.Current()
	}
	if service.ShouldAlert(evt, prefs, r.now()) {
		r.alerter.Alert(evt)
	}
}

func truncate(frame []byte) string {
	const max = 256
	if len(frame) > max {
		return string(frame[:max]) + "..."
	}
	return string(frame)
}
