package service

import (
	"time"

	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/pkg/protocol"
)

// ShouldAlert decides whether an inbound event produces an audible/visual alert.
// It is a pure function of the event, the preferences and the wall clock.
func ShouldAlert(evt protocol.InboundEvent, prefs model.Preferences, now time.Time) bool {
	if !alertable(evt.Type) {
		return false
	}
	if !prefs.SoundEnabled || !prefs.NotificationsEnabled {
		return false
	}
	if conversationID, ok := evt.ConversationID(); ok && prefs.IsMuted(conversationID) {
		return false
	}
	return !InQuietHours(prefs, now)
}

func alertable(t protocol.EventType) bool {
	return t == protocol.EventNewMessage || t == protocol.EventNutritionTargetsUpdate
}

// InQuietHours reports whether now falls inside the configured window.
// A window with start > end crosses midnight.
func InQuietHours(prefs model.Preferences, now time.Time) bool {
	if !prefs.QuietHoursActive() {
		return false
	}
	s := prefs.QuietHoursStart.Minutes()
	e := prefs.QuietHoursEnd.Minutes()
	cur := model.TimeOfDayFrom(now).Minutes()

	if s <= e {
		return s <= cur && cur < e
	}
	return cur >= s || cur < e
}
