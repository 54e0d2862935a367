package proto

import "fmt"

// Server-defined close codes delivered in a "closed" event.
const (
	CloseBanned         = 4
	CloseReconnect      = 5
	CloseDuplicateLogin = 6
	CloseTimeout        = 8
	CloseKicked         = 12
)

// CloseReason maps a close code to a human-readable reason. Unknown codes
// get a generic description.
func CloseReason(code int) string {
	switch code {
	case CloseBanned:
		return "banned from the room"
	case CloseReconnect:
		return "server requested reconnect"
	case CloseDuplicateLogin:
		return "account signed in twice"
	case CloseTimeout:
		return "connection timed out"
	case CloseKicked:
		return "kicked from the room"
	default:
		return fmt.Sprintf("connection closed, code %d", code)
	}
}

// CloseError is the terminal error of a session ended by a "closed" event.
type CloseError struct {
	Code int
}

func (e *CloseError) Error() string {
	return CloseReason(e.Code)
}
