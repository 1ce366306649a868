package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"netaudit/internal/artifact"
	"netaudit/internal/contract"
	"netaudit/internal/session"
)

func testSessionConfig() session.Config {
	return session.Config{
		PromptPattern:       regexp.MustCompile(`^[\w.\-/()]+[#>]$`),
		ContinuationMarkers: []string{"-- MORE --"},
		ContinueInput:       " ",
		MaxContinuations:    10,
		CommandTimeout:      200 * time.Millisecond,
		ConnectTimeout:      200 * time.Millisecond,
	}
}

func mustContract(t *testing.T, doc string) *contract.Contract {
	t.Helper()
	c, violations := contract.NewValidator(contract.DefaultConfig()).Validate([]byte(doc))
	if len(violations) != 0 {
		t.Fatalf("contract invalid: %v", violations)
	}
	return c
}

func fiveCommandContract(t *testing.T) *contract.Contract {
	return mustContract(t, `name: test-set
platform: aos-switch
revision: "1"
commands:
  inventory:
    - command: show system
    - command: show version
  interfaces:
    - command: show interfaces brief
    - command: show lldp info remote-device
  vlans:
    - command: show vlan
`)
}

func scriptFactory(tr *session.ScriptTransport) TransportFactory {
	return func(Device, Credentials) session.Transport { return tr }
}

func allOKTransport() *session.ScriptTransport {
	return &session.ScriptTransport{
		Prompt: "switch#",
		Marker: "-- MORE --",
		Responses: map[string][]string{
			"show system":                  {"System Name : sw01\n"},
			"show version":                 {"WC.16.10.0003\n"},
			"show interfaces brief":        {"Port  Status\n1     Up\n"},
			"show lldp info remote-device": {"LocalPort | ChassisId\n"},
			"show vlan":                    {"  1 DEFAULT_VLAN\n", "  200 SERVER_VLAN\n"},
		},
	}
}

func TestProbe_OrderAndCompletion(t *testing.T) {
	store, _ := artifact.Open(t.TempDir())
	c := fiveCommandContract(t)
	e := NewEngine(store, scriptFactory(allOKTransport()), testSessionConfig())

	m, err := e.Probe(context.Background(), Device{Host: "sw01"}, c, Credentials{Username: "audit"})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if m.Status != RunComplete {
		t.Errorf("status = %s, want complete", m.Status)
	}
	if len(m.Results) != c.Len() {
		t.Fatalf("results = %d, want %d", len(m.Results), c.Len())
	}
	// CommandResults preserve the contract's declared order exactly.
	wantOrder := []string{
		"show system", "show version",
		"show interfaces brief", "show lldp info remote-device",
		"show vlan",
	}
	for i, want := range wantOrder {
		if m.Results[i].Command != want {
			t.Errorf("result[%d] = %q, want %q", i, m.Results[i].Command, want)
		}
		if m.Results[i].Status != StatusOK {
			t.Errorf("result[%d] status = %s", i, m.Results[i].Status)
		}
	}
	if m.Results[4].Artifact != "artifacts/vlans_1.txt" {
		t.Errorf("artifact ref = %q", m.Results[4].Artifact)
	}
	// Paginated output is stored as the concatenation of its pages.
	raw, err := store.ReadArtifact(m.RunID, m.Results[4].Artifact)
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	want := []byte("  1 DEFAULT_VLAN\n  200 SERVER_VLAN\nswitch#")
	if !bytes.Equal(raw, want) {
		t.Errorf("vlan artifact = %q, want %q", raw, want)
	}
	if m.Results[4].Checksum != artifact.Checksum(want) {
		t.Errorf("checksum mismatch")
	}
	// Manifest on disk matches the returned one.
	var stored Manifest
	if err := store.ReadManifest(m.RunID, ManifestName, &stored); err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if stored.RunID != m.RunID || len(stored.Results) != len(m.Results) {
		t.Errorf("stored manifest diverges: %+v", stored)
	}
	if stored.Contract.Hash != c.Hash() {
		t.Errorf("manifest hash = %q, want %q", stored.Contract.Hash, c.Hash())
	}
}

func TestProbe_TimeoutMidRunIsPartial(t *testing.T) {
	store, _ := artifact.Open(t.TempDir())
	c := fiveCommandContract(t)
	tr := allOKTransport()
	// Third declared command never answers.
	tr.Silent = map[string]bool{"show interfaces brief": true}
	e := NewEngine(store, scriptFactory(tr), testSessionConfig())

	m, err := e.Probe(context.Background(), Device{Host: "sw01"}, c, Credentials{})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(m.Results) != 5 {
		t.Fatalf("results = %d, want 5", len(m.Results))
	}
	if m.Results[2].Status != StatusTimeout {
		t.Errorf("third result status = %s, want timeout", m.Results[2].Status)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if m.Results[i].Status != StatusOK {
			t.Errorf("result[%d] status = %s, want ok", i, m.Results[i].Status)
		}
	}
	if m.Status != RunPartial {
		t.Errorf("run status = %s, want partial", m.Status)
	}
}

func TestProbe_AuthFailureIsFatal(t *testing.T) {
	store, _ := artifact.Open(t.TempDir())
	c := fiveCommandContract(t)
	tr := &session.ScriptTransport{Prompt: "switch#", RejectAuth: true}
	e := NewEngine(store, scriptFactory(tr), testSessionConfig())

	m, err := e.Probe(context.Background(), Device{Host: "sw01"}, c, Credentials{})
	var authErr *session.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthError, got %v", err)
	}
	if m.Status != RunFailed || len(m.Results) != 0 {
		t.Errorf("manifest = %s with %d results, want failed with none", m.Status, len(m.Results))
	}
}

func TestProbe_SessionRetryOnce(t *testing.T) {
	store, _ := artifact.Open(t.TempDir())
	c := fiveCommandContract(t)
	attempts := 0
	factory := func(Device, Credentials) session.Transport {
		attempts++
		tr := allOKTransport()
		if attempts == 1 {
			// First session dies on the second command.
			tr.DropOn = map[string]bool{"show version": true}
		}
		return tr
	}
	e := NewEngine(store, factory, testSessionConfig())

	m, err := e.Probe(context.Background(), Device{Host: "sw01"}, c, Credentials{})
	if err != nil {
		t.Fatalf("Probe after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("transport attempts = %d, want 2", attempts)
	}
	if len(m.Results) != 5 || m.Status != RunComplete {
		t.Errorf("status = %s, results = %d", m.Status, len(m.Results))
	}
}

func TestProbe_SecondDropAborts(t *testing.T) {
	store, _ := artifact.Open(t.TempDir())
	c := fiveCommandContract(t)
	factory := func(Device, Credentials) session.Transport {
		tr := allOKTransport()
		tr.DropOn = map[string]bool{"show version": true}
		return tr
	}
	e := NewEngine(store, factory, testSessionConfig())

	m, err := e.Probe(context.Background(), Device{Host: "sw01"}, c, Credentials{})
	var tErr *session.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("want TransportError, got %v", err)
	}
	if m.Status != RunFailed {
		t.Errorf("status = %s, want failed", m.Status)
	}
	// Everything captured before the abort is preserved.
	if len(m.Results) < 2 || m.Results[0].Status != StatusOK {
		t.Errorf("captured results not preserved: %+v", m.Results)
	}
}

func TestProbe_FrozenCheckBlocksRun(t *testing.T) {
	store, _ := artifact.Open(t.TempDir())
	c := fiveCommandContract(t)
	wantErr := fmt.Errorf("contract %s is not frozen", c.Name())
	e := NewEngine(store, scriptFactory(allOKTransport()), testSessionConfig(),
		WithFrozenCheck(func(*contract.Contract) error { return wantErr }))

	m, err := e.Probe(context.Background(), Device{Host: "sw01"}, c, Credentials{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("want frozen-check error, got %v", err)
	}
	if m != nil {
		t.Errorf("no ProbeRun may exist after a contract error, got %+v", m)
	}
	runs, _ := store.ListRuns()
	if len(runs) != 0 {
		t.Errorf("run directories created: %v", runs)
	}
}

func TestProbe_CancellationWritesPartialManifest(t *testing.T) {
	store, _ := artifact.Open(t.TempDir())
	c := fiveCommandContract(t)
	tr := allOKTransport()
	// Second command blocks; the caller cancels while it is in flight.
	tr.Silent = map[string]bool{"show version": true}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	e := NewEngine(store, scriptFactory(tr), testSessionConfig())
	m, err := e.Probe(ctx, Device{Host: "sw01"}, c, Credentials{})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if m == nil || m.Status != RunPartial {
		t.Fatalf("want partial manifest, got %+v", m)
	}
	var stored Manifest
	if err := store.ReadManifest(m.RunID, ManifestName, &stored); err != nil {
		t.Errorf("manifest missing after cancellation: %v", err)
	}
}

func TestProbeAll_IndependentRuns(t *testing.T) {
	store, _ := artifact.Open(t.TempDir())
	c := fiveCommandContract(t)
	factory := func(Device, Credentials) session.Transport { return allOKTransport() }
	e := NewEngine(store, factory, testSessionConfig())

	devices := []Device{{Host: "sw01"}, {Host: "sw02"}, {Host: "sw03"}}
	manifests, err := e.ProbeAll(context.Background(), devices, c, Credentials{})
	if err != nil {
		t.Fatalf("ProbeAll: %v", err)
	}
	seen := map[string]bool{}
	for i, m := range manifests {
		if m == nil || m.Status != RunComplete {
			t.Fatalf("device %d: %+v", i, m)
		}
		if seen[m.RunID] {
			t.Errorf("run UUID reused: %s", m.RunID)
		}
		seen[m.RunID] = true
		if m.Host != devices[i].Host {
			t.Errorf("manifest %d host = %s, want %s", i, m.Host, devices[i].Host)
		}
	}
	runs, _ := store.ListRuns()
	if len(runs) != 3 {
		t.Errorf("stored runs = %d, want 3", len(runs))
	}
}
