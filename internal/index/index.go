// Package index is the SQLite ledger for frozen contracts and probe runs.
//
// The artifact store on disk remains the source of truth for run content;
// the index exists for the freeze check (hash of record vs hash of load) and
// for fast run listing.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"netaudit/internal/contract"
	"netaudit/internal/probe"

	_ "modernc.org/sqlite"
)

// DefaultPath is the default relative index location (per-workspace).
const DefaultPath = ".netaudit/netaudit.db"

// ErrNotFrozen means a contract was never frozen and may not be probed.
var ErrNotFrozen = errors.New("contract is not frozen")

// ErrAlreadyFrozen means a freeze was attempted for a revision that is
// already frozen with a different hash. Frozen contracts are never edited;
// changes require a new revision.
var ErrAlreadyFrozen = errors.New("revision already frozen with a different hash")

// HashMismatchError means a loaded contract's recomputed hash differs from
// its frozen record: the document was altered after freezing.
type HashMismatchError struct {
	Name, Revision string
	Frozen, Got    string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("contract %s rev %s was altered after freezing (frozen %s, got %s)",
		e.Name, e.Revision, e.Frozen, e.Got)
}

// RunRecord is one row of the run ledger.
type RunRecord struct {
	RunID         string
	Host          string
	Platform      string
	ContractName  string
	ContractHash  string
	Status        string
	CommandsTotal int
	CommandsOK    int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Index wraps the SQLite handle.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index at path, creating the parent directory
// and migrating the schema as needed.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	ix := &Index{db: db}
	if err := ix.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) migrate() error {
	var tableCount int
	err := ix.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := ix.db.Exec(schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := ix.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}
	var v int
	if err := ix.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the underlying handle.
func (ix *Index) Close() error { return ix.db.Close() }

// Freeze records a validated contract's hash. Freezing the same revision
// with the same hash is a no-op; with a different hash it fails — the frozen
// document must never be edited in place.
func (ix *Index) Freeze(c *contract.Contract) error {
	var existing string
	err := ix.db.QueryRow(
		"SELECT hash FROM frozen_contracts WHERE name=? AND platform=? AND revision=?",
		c.Name(), c.Platform(), c.Revision(),
	).Scan(&existing)
	switch {
	case err == nil:
		if existing == c.Hash() {
			return nil
		}
		return fmt.Errorf("%s rev %s: %w", c.Name(), c.Revision(), ErrAlreadyFrozen)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("query frozen contract: %w", err)
	}
	_, err = ix.db.Exec(
		"INSERT INTO frozen_contracts(name, platform, revision, hash, frozen_at) VALUES(?,?,?,?,?)",
		c.Name(), c.Platform(), c.Revision(), c.Hash(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("freeze contract: %w", err)
	}
	return nil
}

// VerifyFrozen checks a freshly loaded contract against its frozen record.
// Performed on every load regardless of any file-system-level freeze
// enforcement outside this process.
func (ix *Index) VerifyFrozen(c *contract.Contract) error {
	var frozen string
	err := ix.db.QueryRow(
		"SELECT hash FROM frozen_contracts WHERE name=? AND platform=? AND revision=?",
		c.Name(), c.Platform(), c.Revision(),
	).Scan(&frozen)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s rev %s: %w", c.Name(), c.Revision(), ErrNotFrozen)
	}
	if err != nil {
		return fmt.Errorf("query frozen contract: %w", err)
	}
	if frozen != c.Hash() {
		return &HashMismatchError{Name: c.Name(), Revision: c.Revision(), Frozen: frozen, Got: c.Hash()}
	}
	return nil
}

// RecordRun appends one manifest to the run ledger.
func (ix *Index) RecordRun(m *probe.Manifest) error {
	okCount := 0
	for _, r := range m.Results {
		if r.Status == probe.StatusOK {
			okCount++
		}
	}
	_, err := ix.db.Exec(
		`INSERT INTO probe_runs(run_id, host, platform, contract_name, contract_hash,
			status, commands_total, commands_ok, started_at, finished_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		m.RunID, m.Host, m.Platform, m.Contract.Name, m.Contract.Hash,
		string(m.Status), len(m.Results), okCount,
		m.StartedAt.Format(time.RFC3339), m.FinishedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns the run ledger, most recent first.
func (ix *Index) ListRuns() ([]*RunRecord, error) {
	rows, err := ix.db.Query(
		`SELECT run_id, host, platform, contract_name, contract_hash,
			status, commands_total, commands_ok, started_at, finished_at
		 FROM probe_runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []*RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.RunID, &r.Host, &r.Platform, &r.ContractName, &r.ContractHash,
			&r.Status, &r.CommandsTotal, &r.CommandsOK, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, &r)
	}
	return out, rows.Err()
}
