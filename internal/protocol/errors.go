package protocol

import "fmt"

// CloseProtocolError is the close code sent for every protocol violation.
const CloseProtocolError = 1003

const (
	ReasonUnexpectedFormat   = "Unexpected message format"
	ReasonUnsupportedVersion = "Unsupported protocol version"
	ReasonAmbiguous          = "Ambiguous protocol"
	ReasonUnknownType        = "Unknown message type"
)

// Error is a protocol violation. It closes only the offending connection.
type Error struct {
	Code   int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Reason)
}

func violation(reason string) *Error {
	return &Error{Code: CloseProtocolError, Reason: reason}
}
