package realtime

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	ErrInvalidEndpoint       = errors.New("invalid realtime endpoint")
	ErrCredentialUnavailable = errors.New("access token unavailable")
	ErrAuthRejected          = errors.New("authentication rejected")
	ErrNotConnected          = errors.New("connection is closed")
)

// CloseError records how a connection ended when the close was not a normal one.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed with code %d", e.Code)
	}
	return fmt.Sprintf("connection closed with code %d: %s", e.Code, e.Reason)
}

// IsNormalClose reports whether code ends a connection without asking for a retry.
func IsNormalClose(code int) bool {
	return code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway
}
