package session

import "context"

// Transport is the raw byte pipe to an interactive device shell. The session
// manager owns all interpretation (prompts, pagination); a transport only
// moves bytes. Implementations: SSHTransport for live devices,
// ScriptTransport for simulated ones.
type Transport interface {
	// Connect establishes and authenticates the connection. A credential
	// rejection is reported as *AuthError; anything else is a plain error.
	Connect(ctx context.Context) error
	// Send writes data to the device verbatim.
	Send(data string) error
	// Read blocks until the device produces output or ctx is done. Returned
	// bytes are exactly what the device sent: no trimming, no re-encoding,
	// no line-ending normalization.
	Read(ctx context.Context) ([]byte, error)
	// Close tears the connection down. Safe to call more than once.
	Close() error
}
