package client

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned for operations that need a live session.
var ErrNotConnected = errors.New("client: not connected")

// ProtocolViolationError marks a structurally mandatory event arriving
// without a required field. It ends the session.
type ProtocolViolationError struct {
	Event string
	Field string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: %s event missing %s", e.Event, e.Field)
}
