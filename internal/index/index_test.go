package index

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"netaudit/internal/contract"
	"netaudit/internal/probe"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "netaudit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func validateDoc(t *testing.T, doc string) *contract.Contract {
	t.Helper()
	c, violations := contract.NewValidator(contract.DefaultConfig()).Validate([]byte(doc))
	if len(violations) != 0 {
		t.Fatalf("contract invalid: %v", violations)
	}
	return c
}

const testDoc = `name: test-set
platform: aos-switch
revision: "1"
commands:
  inventory:
    - command: show system
`

func TestFreezeAndVerify(t *testing.T) {
	ix := openTestIndex(t)
	c := validateDoc(t, testDoc)
	if err := ix.VerifyFrozen(c); !errors.Is(err, ErrNotFrozen) {
		t.Errorf("unfrozen contract verified: %v", err)
	}
	if err := ix.Freeze(c); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if err := ix.VerifyFrozen(c); err != nil {
		t.Errorf("VerifyFrozen after freeze: %v", err)
	}
	// Freezing again with the same hash is a no-op.
	if err := ix.Freeze(c); err != nil {
		t.Errorf("idempotent freeze: %v", err)
	}
}

func TestAlteredContractIsRejected(t *testing.T) {
	ix := openTestIndex(t)
	c := validateDoc(t, testDoc)
	if err := ix.Freeze(c); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	// Same identity, altered command list: the bytes changed after freezing.
	altered := validateDoc(t, `name: test-set
platform: aos-switch
revision: "1"
commands:
  inventory:
    - command: show system information
`)
	var mismatch *HashMismatchError
	if err := ix.VerifyFrozen(altered); !errors.As(err, &mismatch) {
		t.Fatalf("want HashMismatchError, got %v", err)
	}
	if err := ix.Freeze(altered); !errors.Is(err, ErrAlreadyFrozen) {
		t.Errorf("re-freeze of altered document allowed: %v", err)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	ix := openTestIndex(t)
	now := time.Now().UTC().Truncate(time.Second)
	for i, status := range []probe.RunStatus{probe.RunComplete, probe.RunPartial} {
		m := &probe.Manifest{
			RunID:      []string{"aaa", "bbb"}[i],
			Host:       "sw01",
			Platform:   "aos-switch",
			Contract:   probe.ContractRef{Name: "test-set", Hash: "sha256:x"},
			StartedAt:  now.Add(time.Duration(i) * time.Minute),
			FinishedAt: now.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Status:     status,
			Results: []probe.CommandResult{
				{Command: "show system", Status: probe.StatusOK},
				{Command: "show vlan", Status: probe.StatusTimeout},
			},
		}
		if err := ix.RecordRun(m); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	runs, err := ix.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	// Most recent first.
	if runs[0].RunID != "bbb" || runs[1].RunID != "aaa" {
		t.Errorf("order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if runs[0].CommandsTotal != 2 || runs[0].CommandsOK != 1 {
		t.Errorf("counts: %+v", runs[0])
	}
	if !runs[1].StartedAt.Equal(now) {
		t.Errorf("started_at round trip: %v vs %v", runs[1].StartedAt, now)
	}
}
