package collect

// Capability is what a probe run tells us about a feature's existence on a
// platform. Never inferred: a feature is unsupported only when the device
// said so in a recognized way, and unknown whenever we cannot tell.
type Capability string

const (
	Supported    Capability = "supported"
	NotSupported Capability = "not-supported"
	Unknown      Capability = "unknown"
)

// Outcome is the per-feature parse result recorded in the collector
// manifest. Parse failures are signal, not exceptions: they land here as
// data, never as a thrown error.
type Outcome string

const (
	OutcomeParsed       Outcome = "parsed"
	OutcomeNotSupported Outcome = "not-supported"
	OutcomeUnknown      Outcome = "unknown"
)
