package mapper

import (
	"healthtrack-realtime/internal/dto"
	"healthtrack-realtime/internal/model"

	"github.com/google/uuid"
)

// DefaultPreferenceRow is what a user without a stored row gets.
func DefaultPreferenceRow(userID uuid.UUID) *model.NotificationPreference {
	return &model.NotificationPreference{
		UserID:               userID,
		SoundEnabled:         true,
		NotificationsEnabled: true,
		MutedConversations:   []string{},
	}
}

func ToPreferenceResponse(row *model.NotificationPreference) *dto.PreferenceResponse {
	muted := []string(row.MutedConversations)
	if muted == nil {
		muted = []string{}
	}
	return &dto.PreferenceResponse{
		SoundEnabled:         row.SoundEnabled,
		NotificationsEnabled: row.NotificationsEnabled,
		QuietHoursStart:      row.QuietHoursStart,
		QuietHoursEnd:        row.QuietHoursEnd,
		MutedConversations:   muted,
	}
}

// ApplyPreferenceUpdate merges req into row. Times must already be validated.
func ApplyPreferenceUpdate(row *model.NotificationPreference, req *dto.UpdatePreferenceRequest) {
	if req.SoundEnabled != nil {
		row.SoundEnabled = *req.SoundEnabled
	}
	if req.NotificationsEnabled != nil {
		row.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.ClearQuietHours {
		row.QuietHoursStart, row.QuietHoursEnd = nil, nil
	}
	if req.QuietHoursStart != nil {
		v := *req.QuietHoursStart
		row.QuietHoursStart = &v
	}
	if req.QuietHoursEnd != nil {
		v := *req.QuietHoursEnd
		row.QuietHoursEnd = &v
	}
	if req.MutedConversations != nil {
		deduped := model.Preferences{MutedConversations: model.MutedSet(req.MutedConversations)}
		row.MutedConversations = deduped.MutedList()
	}
}

// ToPreferences converts the wire record into the client's model. A malformed time
// disables that half of the window.
func ToPreferences(resp *dto.PreferenceResponse) model.Preferences {
	return model.Preferences{
		SoundEnabled:         resp.SoundEnabled,
		NotificationsEnabled: resp.NotificationsEnabled,
		QuietHoursStart:      parseTime(resp.QuietHoursStart),
		QuietHoursEnd:        parseTime(resp.QuietHoursEnd),
		MutedConversations:   model.MutedSet(resp.MutedConversations),
	}
}

// ToUpdateRequest renders the full client record as a PATCH body.
func ToUpdateRequest(prefs model.Preferences) *dto.UpdatePreferenceRequest {
	sound, notifications := prefs.SoundEnabled, prefs.NotificationsEnabled
	req := &dto.UpdatePreferenceRequest{
		SoundEnabled:         &sound,
		NotificationsEnabled: &notifications,
		ClearQuietHours:      true,
		MutedConversations:   prefs.MutedList(),
	}
	if prefs.QuietHoursStart != nil {
		v := prefs.QuietHoursStart.String()
		req.QuietHoursStart = &v
	}
	if prefs.QuietHoursEnd != nil {
		v := prefs.QuietHoursEnd.String()
		req.QuietHoursEnd = &v
	}
	return req
}

func parseTime(s *string) *model.TimeOfDay {
	if s == nil || *s == "" {
		return nil
	}
	t, err := model.ParseTimeOfDay(*s)
	if err != nil {
		return nil
	}
	return &t
}
