// Package probe orchestrates contract execution against devices and owns all
// ProbeRun and artifact creation. There is no code path here that accepts an
// ad-hoc command string: commands come exclusively from a validated
// contract.Contract.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"netaudit/internal/artifact"
	"netaudit/internal/contract"
	"netaudit/internal/logging"
	"netaudit/internal/session"
)

// Device is one probe target.
type Device struct {
	Host string
	Port int
}

// Credentials authenticate against a device. Accepted here, held in memory,
// never persisted into any artifact or manifest.
type Credentials struct {
	Username string
	Password string
}

// TransportFactory builds a fresh transport for one connection attempt. A
// session retry gets a new transport, and with it fresh authentication.
type TransportFactory func(dev Device, creds Credentials) session.Transport

// Engine runs validated contracts against devices and persists the results.
type Engine struct {
	store        *artifact.Store
	newTransport TransportFactory
	sessCfg      session.Config
	verifyFrozen func(*contract.Contract) error
	record       func(*Manifest) error
	log          *slog.Logger

	mu    sync.Mutex
	hosts map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithFrozenCheck installs the freeze verification run before any session is
// opened. A non-nil error from it means no ProbeRun is created at all.
func WithFrozenCheck(fn func(*contract.Contract) error) Option {
	return func(e *Engine) { e.verifyFrozen = fn }
}

// WithRecorder installs a hook called with the final manifest of every run,
// e.g. to register the run in the index.
func WithRecorder(fn func(*Manifest) error) Option {
	return func(e *Engine) { e.record = fn }
}

// NewEngine builds an engine over an artifact store, a transport factory,
// and a platform session configuration.
func NewEngine(store *artifact.Store, factory TransportFactory, sessCfg session.Config, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		newTransport: factory,
		sessCfg:      sessCfg,
		log:          logging.New("probe"),
		hosts:        make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// hostLock returns the per-host mutex. A device host is a single-session
// resource: concurrent runs against the same host are serialized in-process.
func (e *Engine) hostLock(host string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.hosts[host]; ok {
		return m
	}
	m := &sync.Mutex{}
	e.hosts[host] = m
	return m
}

// ProbeAll probes every device concurrently, one independent ProbeRun per
// device. Manifests are returned in device order; a device failure does not
// cancel the others.
func (e *Engine) ProbeAll(ctx context.Context, devices []Device, c *contract.Contract, creds Credentials) ([]*Manifest, error) {
	manifests := make([]*Manifest, len(devices))
	g, gctx := errgroup.WithContext(ctx)
	var errMu sync.Mutex
	var firstErr error
	for i, dev := range devices {
		g.Go(func() error {
			m, err := e.Probe(gctx, dev, c, creds)
			manifests[i] = m
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", dev.Host, err)
				}
				errMu.Unlock()
			}
			// Do not fail the group: other devices keep probing.
			return nil
		})
	}
	_ = g.Wait()
	return manifests, firstErr
}

// Probe executes the contract against one device: creates the ProbeRun,
// drives the session command by command in declared order, persists each raw
// artifact, and finishes with an atomic manifest write. The manifest is
// written on every outcome except a freeze-verification failure, which
// yields no ProbeRun at all.
func (e *Engine) Probe(ctx context.Context, dev Device, c *contract.Contract, creds Credentials) (*Manifest, error) {
	if e.verifyFrozen != nil {
		if err := e.verifyFrozen(c); err != nil {
			return nil, err
		}
	}

	lock := e.hostLock(dev.Host)
	lock.Lock()
	defer lock.Unlock()

	runID := uuid.New().String()
	if err := e.store.CreateRun(runID); err != nil {
		return nil, err
	}
	m := &Manifest{
		RunID:    runID,
		Host:     dev.Host,
		Platform: c.Platform(),
		Contract: ContractRef{Name: c.Name(), Revision: c.Revision(), Hash: c.Hash()},
		StartedAt: time.Now().UTC(),
	}
	log := e.log.With("run", runID, "host", dev.Host)
	log.Info("probe started", "contract", c.Name(), "commands", c.Len())

	runErr := e.execute(ctx, dev, c, creds, m, log)

	m.FinishedAt = time.Now().UTC()
	m.Status = finalStatus(m, c, runErr, ctx.Err())
	if err := e.store.WriteManifest(runID, ManifestName, m); err != nil {
		return m, err
	}
	if e.record != nil {
		if err := e.record(m); err != nil {
			return m, fmt.Errorf("record run: %w", err)
		}
	}
	log.Info("probe finished", "status", m.Status, "results", len(m.Results))
	return m, runErr
}

// execute drives the session. It appends CommandResults to m as it goes so
// that everything captured before an abort is preserved in the manifest.
func (e *Engine) execute(ctx context.Context, dev Device, c *contract.Contract, creds Credentials, m *Manifest, log *slog.Logger) error {
	sess, err := e.open(ctx, dev, creds, log)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	retried := false
	counts := map[string]int{}
	for _, group := range c.Groups() {
		for _, entry := range group.Entries {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			counts[group.Category]++
			name := fmt.Sprintf("%s_%d.txt", group.Category, counts[group.Category])

			cap, runErr := sess.Run(ctx, entry.Command)
			var tErr *session.TransportError
			if errors.As(runErr, &tErr) && !retried {
				// One retry of the whole session with fresh authentication,
				// then the failed command again.
				retried = true
				log.Warn("session lost, retrying once", "command", entry.Command, "err", runErr)
				_ = sess.Close()
				sess, err = e.open(ctx, dev, creds, log)
				if err != nil {
					e.append(m, group.Category, entry, name, cap, runErr)
					return err
				}
				cap, runErr = sess.Run(ctx, entry.Command)
			}

			e.append(m, group.Category, entry, name, cap, runErr)

			switch {
			case runErr == nil:
			case errors.As(runErr, new(*session.CommandTimeoutError)):
				log.Warn("command timed out", "command", entry.Command)
			case errors.As(runErr, new(*session.PaginationOverrunError)):
				log.Warn("pagination overrun", "command", entry.Command)
			case errors.As(runErr, &tErr):
				// Second transport failure: abort, keep what we have.
				return runErr
			case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
				return runErr
			default:
				return runErr
			}
		}
	}
	return nil
}

// open connects a fresh session, retrying once on transport-level connect
// failure. Authentication rejection is never retried.
func (e *Engine) open(ctx context.Context, dev Device, creds Credentials, log *slog.Logger) (*session.Session, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		sess := session.New(e.newTransport(dev, creds), e.sessCfg)
		err := sess.Open(ctx)
		if err == nil {
			return sess, nil
		}
		lastErr = err
		var authErr *session.AuthError
		if errors.As(err, &authErr) || ctx.Err() != nil {
			return nil, err
		}
		log.Warn("connect failed", "attempt", attempt+1, "err", err)
	}
	return nil, lastErr
}

// append persists the capture (even partial or empty) and records the
// CommandResult in execution order.
func (e *Engine) append(m *Manifest, category string, entry contract.CommandEntry, name string, cap *session.Capture, runErr error) {
	var output []byte
	var duration time.Duration
	if cap != nil {
		output = cap.Output
		duration = cap.Duration
	}
	ref, err := e.store.WriteArtifact(m.RunID, name, output)
	if err != nil {
		// Store rejection inside an engine-owned run is a framework bug;
		// surface it on the result rather than dropping the command.
		ref = ""
		if runErr == nil {
			runErr = err
		}
	}
	res := CommandResult{
		Command:    entry.Command,
		Category:   category,
		Optional:   entry.Optional,
		Artifact:   ref,
		Bytes:      len(output),
		Checksum:   artifact.Checksum(output),
		Status:     classify(runErr),
		DurationMS: duration.Milliseconds(),
		CapturedAt: time.Now().UTC(),
	}
	if runErr != nil {
		res.Error = runErr.Error()
	}
	m.Results = append(m.Results, res)
}

func classify(err error) CommandStatus {
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, new(*session.CommandTimeoutError)):
		return StatusTimeout
	default:
		return StatusSessionError
	}
}

// finalStatus derives the run status: complete only when every declared
// command produced an ok result; failed when the session died or never
// authenticated; partial otherwise (cancellation, timeouts, overruns).
func finalStatus(m *Manifest, c *contract.Contract, runErr, ctxErr error) RunStatus {
	okCount := 0
	for _, r := range m.Results {
		if r.Status == StatusOK {
			okCount++
		}
	}
	var authErr *session.AuthError
	var tErr *session.TransportError
	switch {
	case errors.As(runErr, &authErr), errors.As(runErr, &tErr):
		return RunFailed
	case ctxErr != nil, runErr != nil:
		return RunPartial
	case okCount == c.Len() && len(m.Results) == c.Len():
		return RunComplete
	default:
		return RunPartial
	}
}
