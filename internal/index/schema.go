package index

// schemaVersion is the target schema for this build. Version 1 covers the
// freeze registry and the run ledger.
const schemaVersion = 1

const schemaSQL = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

-- Freeze registry: one row per validated contract revision. The hash never
-- changes for a given (name, platform, revision); a changed document is a
-- new revision, not an update.
CREATE TABLE frozen_contracts (
	name       TEXT NOT NULL,
	platform   TEXT NOT NULL,
	revision   TEXT NOT NULL,
	hash       TEXT NOT NULL,
	frozen_at  TEXT NOT NULL,
	PRIMARY KEY (name, platform, revision)
);

-- Run ledger: one row per ProbeRun manifest, append-only.
CREATE TABLE probe_runs (
	run_id         TEXT PRIMARY KEY,
	host           TEXT NOT NULL,
	platform       TEXT NOT NULL,
	contract_name  TEXT NOT NULL,
	contract_hash  TEXT NOT NULL,
	status         TEXT NOT NULL,
	commands_total INTEGER NOT NULL,
	commands_ok    INTEGER NOT NULL,
	started_at     TEXT NOT NULL,
	finished_at    TEXT NOT NULL
);

CREATE INDEX idx_probe_runs_host ON probe_runs(host);
`
