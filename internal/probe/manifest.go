package probe

import "time"

// ManifestName is the manifest filename inside a run directory.
const ManifestName = "probe_manifest.json"

// RunStatus is the overall outcome of a ProbeRun.
type RunStatus string

const (
	RunComplete RunStatus = "complete"
	RunPartial  RunStatus = "partial"
	RunFailed   RunStatus = "failed"
)

// CommandStatus is the outcome of one session turn.
type CommandStatus string

const (
	StatusOK           CommandStatus = "ok"
	StatusTimeout      CommandStatus = "timeout"
	StatusSessionError CommandStatus = "session-error"
)

// CommandResult records one executed command, in execution order.
type CommandResult struct {
	Command    string        `json:"command"`
	Category   string        `json:"category"`
	Optional   bool          `json:"optional"`
	Artifact   string        `json:"artifact"`
	Bytes      int           `json:"bytes"`
	Checksum   string        `json:"checksum"`
	Status     CommandStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	CapturedAt time.Time     `json:"captured_at"`
}

// ContractRef pins the manifest to the exact contract that drove the run.
type ContractRef struct {
	Name     string `json:"name"`
	Revision string `json:"revision"`
	Hash     string `json:"hash"`
}

// Manifest is the machine-readable record of one ProbeRun. Immutable once
// written; a re-probe produces a new run UUID, never a second manifest here.
// Credentials are deliberately absent.
type Manifest struct {
	RunID      string          `json:"run_id"`
	Host       string          `json:"host"`
	Platform   string          `json:"platform"`
	Contract   ContractRef     `json:"contract"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Status     RunStatus       `json:"status"`
	Results    []CommandResult `json:"results"`
}
