package alert

import (
	"bytes"
	"errors"
	"testing"

	"healthtrack-realtime/pkg/protocol"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func event(t *testing.T, typ protocol.EventType, payload any) protocol.InboundEvent {
	t.Helper()
	data, err := protocol.Encode(typ, payload)
	require.NoError(t, err)
	evt, err := protocol.DecodeEvent(data)
	require.NoError(t, err)
	return evt
}

func TestTerminalAlerter_NewMessage(t *testing.T) {
	var buf bytes.Buffer
	a := NewTerminalAlerter(&buf, true)

	a.Alert(event(t, protocol.EventNewMessage, protocol.NewMessagePayload{
		Message: protocol.Message{ID: "m1", ConversationID: "c1", Content: "see you at 9"},
	}))

	assert.Equal(t, "New message in c1: see you at 9\n"+bell, buf.String())
}

func TestTerminalAlerter_SilentWithoutSound(t *testing.T) {
	var buf bytes.Buffer
	a := NewTerminalAlerter(&buf, false)

	a.Alert(event(t, protocol.EventNutritionTargetsUpdate, nil))
	a.Alert(event(t, protocol.EventPong, nil))

	assert.Equal(t, "Your nutrition targets were updated\n", buf.String())
}

func TestTerminalAlerter_Status(t *testing.T) {
	var buf bytes.Buffer
	a := NewTerminalAlerter(&buf, false)

	a.Status("connected", nil)
	a.Status("error", errors.New("authentication rejected"))

	assert.Equal(t, "[realtime] connected\n[realtime] error (authentication rejected)\n", buf.String())
}
