package store

import "context"

// MarkerKey is the shared key every tab of a user reads and writes.
const MarkerKey = "healthtrack.session_mode"

// Session modes written to the marker. An empty marker means "no session".
const (
	ModeNone         = ""
	ModeClient       = "client"
	ModeProfessional = "professional"
	ModeAdmin        = "admin"
)

func ValidMode(mode string) bool {
	switch mode {
	case ModeNone, ModeClient, ModeProfessional, ModeAdmin:
		return true
	}
	return false
}

// MarkerStore is a single persisted value shared by all tabs of one user.
// Last write wins; there is no sequencing.
type MarkerStore interface {
	// Read returns the current value, "" when absent.
	Read(ctx context.Context) (string, error)
	// Write stores value; "" removes the marker.
	Write(ctx context.Context, value string) error
	// Watch starts delivering observed values to onChange until ctx is done.
	// Implementations may also deliver this tab's own writes; callers filter them.
	Watch(ctx context.Context, onChange func(value string)) error
}
