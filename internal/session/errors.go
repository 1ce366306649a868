package session

import (
	"fmt"
	"time"
)

// AuthError means the device rejected the credentials. Fatal for the run:
// no partial contract execution without authentication.
type AuthError struct {
	Host string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected by %s: %v", e.Host, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CommandTimeoutError means a command produced no terminal prompt within its
// timeout. Recorded as a failed CommandResult; the session itself survives.
type CommandTimeoutError struct {
	Command string
	Timeout time.Duration
	// Captured is whatever arrived before the deadline; may be empty.
	Captured int
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("command %q: no terminal prompt within %s (%d bytes captured)", e.Command, e.Timeout, e.Captured)
}

// PaginationOverrunError means the continuation bound was exceeded, i.e. the
// device looks stuck in a paging loop. Per-command, not session-fatal.
type PaginationOverrunError struct {
	Command string
	Turns   int
}

func (e *PaginationOverrunError) Error() string {
	return fmt.Sprintf("command %q: pagination did not terminate after %d continuation turns", e.Command, e.Turns)
}

// TransportError wraps a transport-level failure (disconnect, broken pipe).
// Session-fatal: the engine may retry the whole session once.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
