// Package session drives one interactive CLI session against one device.
//
// The session is inherently stateful and single-threaded: one command at a
// time, and a command's output (including pagination) must fully resolve
// before the next is sent. The lifecycle is an explicit state machine; see
// states.go.
package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"netaudit/internal/logging"
)

// Config carries the per-platform session rules. Passed explicitly so
// sessions against different platforms can run concurrently in one process.
type Config struct {
	// PromptPattern matches the last output line when the device is ready
	// for the next command.
	PromptPattern *regexp.Regexp
	// ContinuationMarkers are the pager suffixes (e.g. "-- MORE --") that
	// mean "output continues on keystroke".
	ContinuationMarkers []string
	// ContinueInput is the keystroke sent to resolve a continuation prompt.
	ContinueInput string
	// MaxContinuations bounds pagination turns per command; exceeding it is
	// a PaginationOverrunError for that command only.
	MaxContinuations int
	// CommandTimeout bounds one command end to end, continuations included.
	CommandTimeout time.Duration
	// ConnectTimeout bounds connection plus authentication plus banner.
	ConnectTimeout time.Duration
	// PagingDisable commands are issued once after authentication, before
	// any contract command. Their output is discarded.
	PagingDisable []string
}

// Capture is the raw result of one command turn.
type Capture struct {
	// Output is bit-faithful to what the device sent, pages concatenated in
	// order with the consumed continuation markers removed.
	Output []byte
	// Continuations is how many continuation keystrokes were sent.
	Continuations int
	Duration      time.Duration
}

// Residual-output drain bounds: a timed-out or overrun command may keep
// producing output after its turn ended, which must not leak into the next
// command's capture.
const (
	residualPoll      = 200 * time.Millisecond
	residualPollLimit = 20
)

// Session manages one interactive session over a Transport.
type Session struct {
	tr    Transport
	cfg   Config
	state State
	log   *slog.Logger

	// dirty marks that the previous command ended without reaching the
	// prompt (timeout, overrun, cancellation) and may still be emitting.
	dirty bool
}

// New wraps a transport in a session manager. The session starts
// Disconnected; call Open before Run.
func New(tr Transport, cfg Config) *Session {
	return &Session{tr: tr, cfg: cfg, state: Disconnected, log: logging.New("session")}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

func (s *Session) transition(to State) error {
	if !legal(s.state, to) {
		return &TransitionError{From: s.state, To: to}
	}
	s.state = to
	return nil
}

// Open connects, authenticates, drains the login banner up to the first
// prompt, and runs the paging-disable preamble. On AuthError the session is
// Failed and must not be reused.
func (s *Session) Open(ctx context.Context) error {
	if err := s.transition(Authenticating); err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	if err := s.tr.Connect(cctx); err != nil {
		s.state = Failed
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return authErr
		}
		return &TransportError{Op: "connect", Err: err}
	}
	if err := s.drainBanner(cctx); err != nil {
		s.state = Failed
		return err
	}
	if err := s.transition(Ready); err != nil {
		return err
	}
	for _, cmd := range s.cfg.PagingDisable {
		if _, err := s.Run(ctx, cmd); err != nil {
			// A missing pager command is tolerable; a dead transport is not.
			var tErr *TransportError
			if errors.As(err, &tErr) {
				return err
			}
			s.log.Warn("paging-disable command failed", "command", cmd, "err", err)
		}
	}
	return nil
}

// drainBanner reads until the first prompt so Run starts from a clean line.
func (s *Session) drainBanner(ctx context.Context) error {
	var buf bytes.Buffer
	for {
		chunk, err := s.tr.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return &TransportError{Op: "banner", Err: ctx.Err()}
			}
			return &TransportError{Op: "banner", Err: err}
		}
		buf.Write(chunk)
		if s.atPrompt(buf.Bytes()) {
			return nil
		}
	}
}

// Run sends one command verbatim and accumulates its output until the
// terminal prompt, resolving pagination along the way. On timeout or
// pagination overrun the returned Capture holds whatever was collected and
// the session returns to Ready; on transport failure the session is Failed.
func (s *Session) Run(ctx context.Context, command string) (*Capture, error) {
	if s.dirty {
		s.drainResidual(ctx)
		s.dirty = false
	}
	if err := s.transition(Sending); err != nil {
		return nil, err
	}
	start := time.Now()
	if err := s.tr.Send(command + "\n"); err != nil {
		s.state = Failed
		return nil, &TransportError{Op: "send", Err: err}
	}
	if err := s.transition(AwaitingOutput); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	continues := 0
	deadline := time.Now().Add(s.cfg.CommandTimeout)
	capture := func() *Capture {
		return &Capture{Output: buf.Bytes(), Continuations: continues, Duration: time.Since(start)}
	}

	for {
		rctx, cancel := context.WithDeadline(ctx, deadline)
		chunk, err := s.tr.Read(rctx)
		cancel()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				// External cancellation, not a device fault.
				s.state = Ready
				s.dirty = true
				return capture(), ctx.Err()
			case !time.Now().Before(deadline):
				s.state = Ready
				s.dirty = true
				return capture(), &CommandTimeoutError{Command: command, Timeout: s.cfg.CommandTimeout, Captured: buf.Len()}
			default:
				s.state = Failed
				return capture(), &TransportError{Op: "read", Err: err}
			}
		}
		buf.Write(chunk)

		if trimmed, ok := trimContinuation(buf.Bytes(), s.cfg.ContinuationMarkers); ok {
			if continues >= s.cfg.MaxContinuations {
				s.state = Ready
				s.dirty = true
				return capture(), &PaginationOverrunError{Command: command, Turns: continues}
			}
			buf.Reset()
			buf.Write(trimmed)
			if err := s.tr.Send(s.cfg.ContinueInput); err != nil {
				s.state = Failed
				return capture(), &TransportError{Op: "continue", Err: err}
			}
			continues++
			continue
		}
		if s.atPrompt(buf.Bytes()) {
			s.state = Ready
			return capture(), nil
		}
	}
}

// drainResidual discards output still arriving from the previous command,
// reading until the line goes quiet for one poll interval. Bounded so a
// device streaming without pause cannot pin the session here.
func (s *Session) drainResidual(ctx context.Context) {
	for i := 0; i < residualPollLimit; i++ {
		rctx, cancel := context.WithTimeout(ctx, residualPoll)
		chunk, err := s.tr.Read(rctx)
		cancel()
		if err != nil {
			return
		}
		s.log.Debug("discarded stale output", "bytes", len(chunk))
	}
}

// Close tears down the transport. Legal from any state.
func (s *Session) Close() error {
	s.state = Closed
	return s.tr.Close()
}

// atPrompt matches the prompt pattern against the last line of b.
func (s *Session) atPrompt(b []byte) bool {
	if s.cfg.PromptPattern == nil {
		return false
	}
	line := b
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		line = b[i+1:]
	}
	line = bytes.TrimRight(line, "\r ")
	return s.cfg.PromptPattern.Match(line)
}

// trimContinuation reports whether b ends with a continuation marker
// (ignoring trailing spaces and carriage returns the pager emits) and
// returns b with that marker removed, so the final artifact is the
// concatenation of pages without pager chatter.
func trimContinuation(b []byte, markers []string) ([]byte, bool) {
	t := bytes.TrimRight(b, " \r")
	for _, m := range markers {
		if m != "" && bytes.HasSuffix(t, []byte(m)) {
			return t[:len(t)-len(m)], true
		}
	}
	return nil, false
}
