package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ScriptTransport replays a scripted device dialogue in memory. It stands in
// for a live device in engine and collector tests and in dry-run probes:
// commands map to pre-split output pages, the pager marker is appended
// between pages, and the prompt closes each turn.
type ScriptTransport struct {
	// Banner is emitted after Connect, before the first prompt.
	Banner string
	// Prompt is the device prompt line, e.g. "switch#".
	Prompt string
	// Marker is the pager continuation marker appended after a non-final
	// page.
	Marker string
	// Responses maps command text to its output pages. Each page should end
	// with a newline so the closing prompt lands on its own line.
	Responses map[string][]string
	// Silent commands produce no output at all (timeout simulation).
	Silent map[string]bool
	// Late commands produce nothing within their turn; the mapped output
	// arrives LateDelay after Send (stale-output simulation).
	Late      map[string]string
	LateDelay time.Duration
	// DropOn commands kill the transport mid-read (disconnect simulation).
	DropOn map[string]bool
	// RejectAuth makes Connect fail with *AuthError.
	RejectAuth bool
	// EndlessPager makes every continuation produce another page forever
	// (pagination overrun simulation).
	EndlessPager bool

	mu        sync.Mutex
	out       chan []byte
	pending   []string
	connected bool
	closed    bool
	dropped   bool

	// Sent records every line and keystroke written to the device, in order.
	Sent []string
	// Continues counts continuation keystrokes received.
	Continues int
}

func (t *ScriptTransport) Connect(_ context.Context) error {
	if t.RejectAuth {
		return &AuthError{Host: "script", Err: fmt.Errorf("permission denied")}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out = make(chan []byte, 64)
	t.connected = true
	t.closed = false
	t.dropped = false
	banner := t.Banner
	if banner != "" && !strings.HasSuffix(banner, "\n") {
		banner += "\n"
	}
	t.out <- []byte(banner + t.Prompt)
	return nil
}

func (t *ScriptTransport) Send(data string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected || t.closed || t.dropped {
		return fmt.Errorf("script transport not connected")
	}
	t.Sent = append(t.Sent, data)

	if !strings.HasSuffix(data, "\n") {
		// Continuation keystroke: deliver the next page.
		t.Continues++
		t.deliverLocked()
		return nil
	}

	command := strings.TrimSuffix(data, "\n")
	if t.DropOn[command] {
		t.dropped = true
		close(t.out)
		return nil
	}
	if t.Silent[command] {
		return nil
	}
	if late, ok := t.Late[command]; ok {
		time.AfterFunc(t.LateDelay, func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.connected && !t.closed && !t.dropped {
				t.out <- []byte(late)
			}
		})
		return nil
	}
	if t.EndlessPager {
		t.deliverLocked()
		return nil
	}
	pages, ok := t.Responses[command]
	if !ok {
		t.out <- []byte("\n" + t.Prompt)
		return nil
	}
	t.pending = append([]string(nil), pages...)
	t.deliverLocked()
	return nil
}

// deliverLocked emits the next pending page, followed by the pager marker if
// more pages remain, or the prompt if this was the last one.
func (t *ScriptTransport) deliverLocked() {
	if t.EndlessPager {
		t.out <- []byte("page without end\n" + t.Marker)
		return
	}
	if len(t.pending) == 0 {
		t.out <- []byte(t.Prompt)
		return
	}
	page := t.pending[0]
	t.pending = t.pending[1:]
	if len(t.pending) > 0 {
		t.out <- []byte(page + t.Marker)
		return
	}
	t.out <- []byte(page + t.Prompt)
}

func (t *ScriptTransport) Read(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	out := t.out
	t.mu.Unlock()
	if out == nil {
		return nil, fmt.Errorf("script transport not connected")
	}
	select {
	case chunk, ok := <-out:
		if !ok {
			return nil, fmt.Errorf("connection dropped by script")
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *ScriptTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
