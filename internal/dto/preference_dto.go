package dto

type PreferenceResponse struct {
	SoundEnabled         bool     `json:"sound_enabled"`
	NotificationsEnabled bool     `json:"notifications_enabled"`
	QuietHoursStart      *string  `json:"quiet_hours_start"`
	QuietHoursEnd        *string  `json:"quiet_hours_end"`
	MutedConversations   []string `json:"muted_conversations"`
}

// UpdatePreferenceRequest is a partial update. Absent fields are kept; ClearQuietHours
// drops both halves before any provided half is applied.
type UpdatePreferenceRequest struct {
	SoundEnabled         *bool    `json:"sound_enabled,omitempty"`
	NotificationsEnabled *bool    `json:"notifications_enabled,omitempty"`
	ClearQuietHours      bool     `json:"clear_quiet_hours,omitempty"`
	QuietHoursStart      *string  `json:"quiet_hours_start,omitempty" validate:"omitempty,datetime=15:04"`
	QuietHoursEnd        *string  `json:"quiet_hours_end,omitempty" validate:"omitempty,datetime=15:04"`
	MutedConversations   []string `json:"muted_conversations" validate:"omitempty,max=500,dive,required,max=64"`
}

type TriggerEventRequest struct {
	Type    string                 `json:"type" validate:"required"`
	Payload map[string]interface{} `json:"payload"`
}
