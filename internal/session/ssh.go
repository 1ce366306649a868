package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig identifies and authenticates one device. The secret is held in
// memory only; nothing here is ever written into an artifact or manifest.
type SSHConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (c SSHConfig) addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// SSHTransport implements Transport over an interactive SSH shell with a
// requested PTY, which is what network device CLIs expect.
type SSHTransport struct {
	cfg SSHConfig

	mu      sync.Mutex
	client  *ssh.Client
	sess    *ssh.Session
	stdin   io.WriteCloser
	chunks  chan []byte
	readErr chan error
	done    chan struct{}
	closed  bool
}

// NewSSHTransport returns an unconnected transport for one device.
func NewSSHTransport(cfg SSHConfig) *SSHTransport {
	return &SSHTransport{cfg: cfg}
}

// Connect dials, authenticates, and starts an interactive shell. A rejected
// credential surfaces as *AuthError.
func (t *SSHTransport) Connect(ctx context.Context) error {
	clientCfg := &ssh.ClientConfig{
		User:            t.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(t.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	if deadline, ok := ctx.Deadline(); ok {
		clientCfg.Timeout = time.Until(deadline)
	}

	client, err := ssh.Dial("tcp", t.cfg.addr(), clientCfg)
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") {
			return &AuthError{Host: t.cfg.Host, Err: err}
		}
		return fmt.Errorf("dial %s: %w", t.cfg.addr(), err)
	}

	sess, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("open session: %w", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("vt100", 80, 500, modes); err != nil {
		_ = sess.Close()
		_ = client.Close()
		return fmt.Errorf("request pty: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		_ = client.Close()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		_ = client.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		_ = client.Close()
		return fmt.Errorf("start shell: %w", err)
	}

	t.mu.Lock()
	t.client = client
	t.sess = sess
	t.stdin = stdin
	t.chunks = make(chan []byte, 16)
	t.readErr = make(chan error, 1)
	t.done = make(chan struct{})
	t.closed = false
	t.mu.Unlock()

	go t.pump(stdout, t.done)
	return nil
}

// pump moves device output into the chunk channel until EOF, error, or
// Close. The done select keeps a still-streaming device from pinning the
// goroutine on a full channel after the transport is closed.
func (t *SSHTransport) pump(r io.Reader, done <-chan struct{}) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case t.chunks <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case t.readErr <- err:
			case <-done:
			}
			return
		}
	}
}

// Send writes data verbatim to the device shell.
func (t *SSHTransport) Send(data string) error {
	t.mu.Lock()
	stdin := t.stdin
	closed := t.closed
	t.mu.Unlock()
	if closed || stdin == nil {
		return fmt.Errorf("transport closed")
	}
	if _, err := io.WriteString(stdin, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Read returns the next chunk of device output, or ctx.Err() if the caller's
// deadline fires first.
func (t *SSHTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case chunk := <-t.chunks:
		return chunk, nil
	case err := <-t.readErr:
		if err == io.EOF {
			return nil, fmt.Errorf("connection closed by device")
		}
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears the shell and connection down. Safe to call more than once.
func (t *SSHTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.done != nil {
		close(t.done)
	}
	if t.sess != nil {
		_ = t.sess.Close()
	}
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
