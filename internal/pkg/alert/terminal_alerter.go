package alert

import (
	"fmt"
	"io"
	"sync"

	"healthtrack-realtime/pkg/protocol"

	"github.com/fatih/color"
)

const bell = "\a"

// TerminalAlerter is the notifier's audible/visual alert: a colored line and a terminal bell.
type TerminalAlerter struct {
	mu    sync.Mutex
	out   io.Writer
	sound bool

	message *color.Color
	nudge   *color.Color
	status  *color.Color
	warn    *color.Color
}

func NewTerminalAlerter(out io.Writer, sound bool) *TerminalAlerter {
	return &TerminalAlerter{
		out:     out,
		sound:   sound,
		message: color.New(color.FgCyan, color.Bold),
		nudge:   color.New(color.FgGreen),
		status:  color.New(color.FgYellow),
		warn:    color.New(color.FgRed),
	}
}

func (a *TerminalAlerter) Alert(evt protocol.InboundEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch evt.Type {
	case protocol.EventNewMessage:
		var payload protocol.NewMessagePayload
		if err := evt.DecodePayload(&payload); err != nil {
			return
		}
		a.message.Fprintf(a.out, "New message in %s", payload.Message.ConversationID)
		if payload.Message.Content != "" {
			fmt.Fprintf(a.out, ": %s", payload.Message.Content)
		}
		fmt.Fprintln(a.out)
	case protocol.EventNutritionTargetsUpdate:
		a.nudge.Fprintln(a.out, "Your nutrition targets were updated")
	default:
		return
	}
	if a.sound {
		fmt.Fprint(a.out, bell)
	}
}

// Status prints a connection state change.
func (a *TerminalAlerter) Status(state string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.warn.Fprintf(a.out, "[realtime] %s (%v)\n", state, err)
		return
	}
	a.status.Fprintf(a.out, "[realtime] %s\n", state)
}
