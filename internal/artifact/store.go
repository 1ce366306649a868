// Package artifact is the append-only filesystem store for probe runs.
//
// Layout:
//
//	<root>/runs/<run-uuid>/artifacts/<category>_<n>.txt
//	<root>/runs/<run-uuid>/probe_manifest.json
//	<root>/runs/<run-uuid>/collections/<collection-uuid>.json
//
// Nothing in here is ever rewritten: artifacts are created exclusively
// (O_EXCL), manifests are written once via temp file + rename, and a
// re-collection produces a new collection file instead of patching an old
// one. Disjoint run UUIDs make the store safe for concurrent writers.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrExists is returned when a write would overwrite stored content.
var ErrExists = errors.New("artifact store is append-only")

// Store is a handle on the store root directory.
type Store struct {
	root string
}

// Open creates (if needed) and returns the store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "runs"), 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) runDir(runID string) string {
	return filepath.Join(s.root, "runs", runID)
}

// CreateRun allocates the directory structure for a new run. The run UUID
// must be fresh; an existing directory means a UUID collision or a misuse.
func (s *Store) CreateRun(runID string) error {
	dir := s.runDir(runID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("run %s: %w", runID, ErrExists)
	}
	if err := os.MkdirAll(filepath.Join(dir, "artifacts"), 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	return nil
}

// WriteArtifact stores one command's raw capture and returns its reference
// (path relative to the run directory). Creation is exclusive: a second
// write to the same name fails.
func (s *Store) WriteArtifact(runID, name string, data []byte) (string, error) {
	ref := filepath.Join("artifacts", name)
	path := filepath.Join(s.runDir(runID), ref)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("artifact %s/%s: %w", runID, name, ErrExists)
		}
		return "", fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return ref, nil
}

// ReadArtifact returns the exact stored bytes for an artifact reference.
func (s *Store) ReadArtifact(runID, ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), ref))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s/%s: %w", runID, ref, err)
	}
	return data, nil
}

// WriteManifest writes a JSON document once, atomically: marshal to a temp
// file in the run directory, then rename into place. A crash mid-write never
// leaves a manifest claiming completeness it did not reach.
func (s *Store) WriteManifest(runID, name string, v any) error {
	final := filepath.Join(s.runDir(runID), name)
	dir := filepath.Dir(final)
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("manifest %s/%s: %w", runID, name, ErrExists)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(name)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publish manifest: %w", err)
	}
	return nil
}

// ReadManifest unmarshals a stored JSON document into v.
func (s *Store) ReadManifest(runID, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), name))
	if err != nil {
		return fmt.Errorf("read manifest %s/%s: %w", runID, name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse manifest %s/%s: %w", runID, name, err)
	}
	return nil
}

// WriteCollection stores one collector result under the run it consumed.
// Each collection has its own UUID, so re-collection supersedes rather than
// patches.
func (s *Store) WriteCollection(runID, collectionID string, v any) error {
	dir := filepath.Join(s.runDir(runID), "collections")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create collections dir: %w", err)
	}
	return s.WriteManifest(runID, filepath.Join("collections", collectionID+".json"), v)
}

// ListRuns returns the stored run UUIDs, sorted.
func (s *Store) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "runs"))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Checksum returns the content digest of raw bytes, "sha256:<hex>".
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
