package main

import (
	"context"
	"errors"
	"testing"

	"healthtrack-realtime/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrefs struct {
	prefs model.Preferences
	err   error
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{prefs: model.DefaultPreferences()}
}

func (f *fakePrefs) SetSoundEnabled(_ context.Context, enabled bool) error {
	f.prefs.SoundEnabled = enabled
	return f.err
}

func (f *fakePrefs) SetNotificationsEnabled(_ context.Context, enabled bool) error {
	f.prefs.NotificationsEnabled = enabled
	return f.err
}

func (f *fakePrefs) SetQuietHours(_ context.Context, start, end *model.TimeOfDay) error {
	f.prefs.QuietHoursStart, f.prefs.QuietHoursEnd = start, end
	return f.err
}

func (f *fakePrefs) MuteConversation(_ context.Context, id string) error {
	f.prefs.MutedConversations[id] = struct{}{}
	return f.err
}

func (f *fakePrefs) UnmuteConversation(_ context.Context, id string) error {
	delete(f.prefs.MutedConversations, id)
	return f.err
}

func (f *fakePrefs) Current() model.Preferences { return f.prefs.Clone() }

type fakeSession struct {
	reconnects int
	mode       string
	signedOut  bool
}

func (f *fakeSession) Reconnect() { f.reconnects++ }

func (f *fakeSession) SignIn(_ context.Context, mode string) error {
	f.mode = mode
	return nil
}

func (f *fakeSession) SignOut(context.Context) error {
	f.signedOut = true
	return nil
}

func (f *fakeSession) Status() string { return "connected" }

func TestRunCommand_Preferences(t *testing.T) {
	ctx := context.Background()
	prefs, session := newFakePrefs(), &fakeSession{}

	for _, line := range []string{"sound off", "notifications off", "mute c1", "mute c2", "unmute c1", "quiet 22:00 06:30"} {
		_, err := runCommand(ctx, line, prefs, session)
		require.NoError(t, err, line)
	}

	out, err := runCommand(ctx, "prefs", prefs, session)
	require.NoError(t, err)
	assert.Equal(t, "sound=false notifications=false quiet=22:00-06:30 muted=c2", out)

	_, err = runCommand(ctx, "quiet off", prefs, session)
	require.NoError(t, err)
	assert.Nil(t, prefs.prefs.QuietHoursStart)
}

func TestRunCommand_Session(t *testing.T) {
	ctx := context.Background()
	prefs, session := newFakePrefs(), &fakeSession{}

	out, err := runCommand(ctx, "status", prefs, session)
	require.NoError(t, err)
	assert.Equal(t, "connected", out)

	_, err = runCommand(ctx, "reconnect", prefs, session)
	require.NoError(t, err)
	assert.Equal(t, 1, session.reconnects)

	_, err = runCommand(ctx, "mode professional", prefs, session)
	require.NoError(t, err)
	assert.Equal(t, "professional", session.mode)

	_, err = runCommand(ctx, "signout", prefs, session)
	require.NoError(t, err)
	assert.True(t, session.signedOut)
}

func TestRunCommand_Errors(t *testing.T) {
	ctx := context.Background()
	prefs, session := newFakePrefs(), &fakeSession{}

	for _, line := range []string{"dance", "sound loud", "quiet 22:00", "quiet 25:00 06:00", "mute", "mode"} {
		_, err := runCommand(ctx, line, prefs, session)
		assert.Error(t, err, line)
	}

	out, err := runCommand(ctx, "   ", prefs, session)
	require.NoError(t, err)
	assert.Empty(t, out)

	prefs.err = errors.New("offline")
	_, err = runCommand(ctx, "sound on", prefs, session)
	assert.Error(t, err)
	assert.True(t, prefs.prefs.SoundEnabled, "local value kept")
}
