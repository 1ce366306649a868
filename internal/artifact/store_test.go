package artifact

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestArtifactRoundTrip(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.CreateRun("run-1"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	// Trailing whitespace, CRLF, and high bytes must survive untouched.
	raw := []byte("Status and Counters\r\n  VLAN 1   \r\n\xc3\xa9\x00tail  ")
	ref, err := st.WriteArtifact("run-1", "vlans_1.txt", raw)
	if err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	got, err := st.ReadArtifact("run-1", ref)
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("stored bytes differ: got %q want %q", got, raw)
	}
}

func TestAppendOnly(t *testing.T) {
	st, _ := Open(t.TempDir())
	if err := st.CreateRun("run-1"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if _, err := st.WriteArtifact("run-1", "a.txt", []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := st.WriteArtifact("run-1", "a.txt", []byte("two")); !errors.Is(err, ErrExists) {
		t.Errorf("overwrite allowed: %v", err)
	}
	if err := st.CreateRun("run-1"); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate run allowed: %v", err)
	}
}

func TestManifestWriteOnce(t *testing.T) {
	st, _ := Open(t.TempDir())
	_ = st.CreateRun("run-1")
	type doc struct {
		Status string `json:"status"`
	}
	if err := st.WriteManifest("run-1", "probe_manifest.json", doc{Status: "complete"}); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	var got doc
	if err := st.ReadManifest("run-1", "probe_manifest.json", &got); err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.Status != "complete" {
		t.Errorf("round trip: %+v", got)
	}
	if err := st.WriteManifest("run-1", "probe_manifest.json", doc{Status: "partial"}); !errors.Is(err, ErrExists) {
		t.Errorf("manifest rewrite allowed: %v", err)
	}
	// No temp file left behind.
	entries, _ := os.ReadDir(filepath.Join(st.Root(), "runs", "run-1"))
	for _, e := range entries {
		if e.Name() != "probe_manifest.json" && e.Name() != "artifacts" {
			t.Errorf("stray file in run dir: %s", e.Name())
		}
	}
}

func TestCollectionsSupersede(t *testing.T) {
	st, _ := Open(t.TempDir())
	_ = st.CreateRun("run-1")
	if err := st.WriteCollection("run-1", "col-1", map[string]string{"v": "1"}); err != nil {
		t.Fatalf("first collection: %v", err)
	}
	if err := st.WriteCollection("run-1", "col-2", map[string]string{"v": "2"}); err != nil {
		t.Errorf("second collection must not conflict: %v", err)
	}
	if err := st.WriteCollection("run-1", "col-1", map[string]string{"v": "3"}); !errors.Is(err, ErrExists) {
		t.Errorf("collection rewrite allowed: %v", err)
	}
}

func TestListRuns(t *testing.T) {
	st, _ := Open(t.TempDir())
	for _, id := range []string{"b-run", "a-run"} {
		if err := st.CreateRun(id); err != nil {
			t.Fatalf("CreateRun %s: %v", id, err)
		}
	}
	ids, err := st.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a-run" || ids[1] != "b-run" {
		t.Errorf("ListRuns = %v", ids)
	}
}

func TestChecksum(t *testing.T) {
	c := Checksum([]byte("abc"))
	want := "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if c != want {
		t.Errorf("Checksum = %s, want %s", c, want)
	}
}
