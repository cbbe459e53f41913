package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"healthtrack-realtime/internal/model"
)

// preferenceSetter is the slice of the preference store the console drives.
type preferenceSetter interface {
	SetSoundEnabled(ctx context.Context, enabled bool) error
	SetNotificationsEnabled(ctx context.Context, enabled bool) error
	SetQuietHours(ctx context.Context, start, end *model.TimeOfDay) error
	MuteConversation(ctx context.Context, conversationID string) error
	UnmuteConversation(ctx context.Context, conversationID string) error
	Current() model.Preferences
}

type sessionControl interface {
	Reconnect()
	SignIn(ctx context.Context, mode string) error
	SignOut(ctx context.Context) error
	Status() string
}

var errUsage = errors.New(`commands: status | reconnect | mode <client|professional|admin> | signout |
  sound on|off | notifications on|off | quiet <HH:MM> <HH:MM> | quiet off |
  mute <conversation> | unmute <conversation> | prefs`)

// runCommand executes one console line and returns what to print.
func runCommand(ctx context.Context, line string, prefs preferenceSetter, session sessionControl) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	switch fields[0] {
	case "status":
		return session.Status(), nil
	case "reconnect":
		session.Reconnect()
		return "reconnecting", nil
	case "mode":
		if len(fields) != 2 {
			return "", errUsage
		}
		return "signed in as " + fields[1], session.SignIn(ctx, fields[1])
	case "signout":
		return "signed out", session.SignOut(ctx)
	case "sound", "notifications":
		if len(fields) != 2 {
			return "", errUsage
		}
		on, err := parseSwitch(fields[1])
		if err != nil {
			return "", err
		}
		if fields[0] == "sound" {
			err = prefs.SetSoundEnabled(ctx, on)
		} else {
			err = prefs.SetNotificationsEnabled(ctx, on)
		}
		return fmt.Sprintf("%s %s", fields[0], fields[1]), err
	case "quiet":
		return quietHours(ctx, fields[1:], prefs)
	case "mute", "unmute":
		if len(fields) != 2 {
			return "", errUsage
		}
		if fields[0] == "mute" {
			return "muted " + fields[1], prefs.MuteConversation(ctx, fields[1])
		}
		return "unmuted " + fields[1], prefs.UnmuteConversation(ctx, fields[1])
	case "prefs":
		return describe(prefs.Current()), nil
	default:
		return "", errUsage
	}
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, errUsage
}

func quietHours(ctx context.Context, args []string, prefs preferenceSetter) (string, error) {
	if len(args) == 1 && args[0] == "off" {
		return "quiet hours off", prefs.SetQuietHours(ctx, nil, nil)
	}
	if len(args) != 2 {
		return "", errUsage
	}
	start, err := model.ParseTimeOfDay(args[0])
	if err != nil {
		return "", err
	}
	end, err := model.ParseTimeOfDay(args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("quiet hours %s-%s", start, end), prefs.SetQuietHours(ctx, &start, &end)
}

func describe(p model.Preferences) string {
	quiet := "off"
	if p.QuietHoursActive() {
		quiet = p.QuietHoursStart.String() + "-" + p.QuietHoursEnd.String()
	}
	muted := strings.Join(p.MutedList(), ",")
	if muted == "" {
		muted = "none"
	}
	return fmt.Sprintf("sound=%t notifications=%t quiet=%s muted=%s", p.SoundEnabled, p.NotificationsEnabled, quiet, muted)
}
