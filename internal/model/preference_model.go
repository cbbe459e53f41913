package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Preferences holds the per-user notification settings read by the notification gate.
type Preferences struct {
	SoundEnabled         bool
	NotificationsEnabled bool
	QuietHoursStart      *TimeOfDay
	QuietHoursEnd        *TimeOfDay
	MutedConversations   map[string]struct{}
}

// DefaultPreferences is what a session uses until the record has been fetched.
func DefaultPreferences() Preferences {
	return Preferences{
		SoundEnabled:         true,
		NotificationsEnabled: true,
		MutedConversations:   map[string]struct{}{},
	}
}

// QuietHoursActive is true only when both halves of the window are configured.
func (p Preferences) QuietHoursActive() bool {
	return p.QuietHoursStart != nil && p.QuietHoursEnd != nil
}

func (p Preferences) IsMuted(conversationID string) bool {
	_, ok := p.MutedConversations[conversationID]
	return ok
}

// Clone copies the mute set so the result can be read while the original is mutated.
func (p Preferences) Clone() Preferences {
	out := p
	out.MutedConversations = make(map[string]struct{}, len(p.MutedConversations))
	for id := range p.MutedConversations {
		out.MutedConversations[id] = struct{}{}
	}
	if p.QuietHoursStart != nil {
		v := *p.QuietHoursStart
		out.QuietHoursStart = &v
	}
	if p.QuietHoursEnd != nil {
		v := *p.QuietHoursEnd
		out.QuietHoursEnd = &v
	}
	return out
}

// MutedList returns the mute set sorted, for wire and storage.
func (p Preferences) MutedList() []string {
	ids := make([]string, 0, len(p.MutedConversations))
	for id := range p.MutedConversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func MutedSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// NotificationPreference is the relay's persisted row, one per user.
type NotificationPreference struct {
	UserID               uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"user_id"`
	SoundEnabled         bool                        `json:"sound_enabled"`
	NotificationsEnabled bool                        `json:"notifications_enabled"`
	QuietHoursStart      *string                     `gorm:"type:varchar(8)" json:"quiet_hours_start"`
	QuietHoursEnd        *string                     `gorm:"type:varchar(8)" json:"quiet_hours_end"`
	MutedConversations   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"muted_conversations"`
	UpdatedAt            time.Time                   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (NotificationPreference) TableName() string {
	return "notification_preferences"
}
