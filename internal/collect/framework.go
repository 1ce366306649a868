// Package collect interprets stored probe artifacts into normalized,
// capability-annotated records. Collectors never execute commands and never
// write into a probe run's artifact set; each collection is a new,
// separately stored result referencing artifacts by id.
package collect

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"netaudit/internal/artifact"
	"netaudit/internal/logging"
	"netaudit/internal/probe"
)

// ErrIntegrity marks a framework bug: the probe manifest references an
// artifact the store cannot produce. Never degraded to unknown.
var ErrIntegrity = errors.New("collector integrity error")

// ParseFunc turns the raw artifacts of one feature (keyed by command text)
// into a normalized record. A returned error degrades the feature to
// unknown; it never aborts the collection.
type ParseFunc func(artifacts map[string][]byte) (any, error)

// Feature is one extraction registered for a platform.
type Feature struct {
	Name string
	// Commands are the contract command texts whose artifacts this feature
	// consumes.
	Commands []string
	Parse    ParseFunc
}

// Platform groups a platform's features with the literal device responses
// that mean "not supported" in its CLI dialect. Any other unparseable text
// is unknown and surfaced for review, never silently classified.
type Platform struct {
	Name                   string
	NotSupportedSignatures []string
	Features               []Feature
	// Derive, when set, runs after every feature has been resolved and may
	// add records computed from the parsed ones (no artifact access).
	Derive func(res *Result)
}

func (p *Platform) notSupported(text []byte) bool {
	s := string(text)
	for _, sig := range p.NotSupportedSignatures {
		if strings.Contains(s, sig) {
			return true
		}
	}
	return false
}

// Registry maps platform identities to their collector definitions,
// selected at collector construction.
type Registry struct {
	platforms map[string]*Platform
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]*Platform)}
}

// Register adds or replaces a platform definition.
func (r *Registry) Register(p *Platform) {
	r.platforms[p.Name] = p
}

// Platform looks up a platform definition.
func (r *Registry) Platform(name string) (*Platform, bool) {
	p, ok := r.platforms[name]
	return p, ok
}

// FeatureOutcome is one line of the collector manifest: what happened to one
// feature and which artifacts were consulted.
type FeatureOutcome struct {
	Feature   string   `json:"feature"`
	Outcome   Outcome  `json:"outcome"`
	Artifacts []string `json:"artifacts"`
	Note      string   `json:"note,omitempty"`
}

// Result is one collection over one probe run. Superseded, never patched:
// re-running the collector produces a new CollectionID.
type Result struct {
	CollectionID string                `json:"collection_id"`
	RunID        string                `json:"run_id"`
	Platform     string                `json:"platform"`
	CollectedAt  time.Time             `json:"collected_at"`
	Capabilities map[string]Capability `json:"capabilities"`
	Records      map[string]any        `json:"records"`
	Outcomes     []FeatureOutcome      `json:"outcomes"`
}

// Collector reads one store and interprets runs through a registry.
type Collector struct {
	store *artifact.Store
	reg   *Registry
	log   *slog.Logger
}

// New builds a collector over a store and a platform registry.
func New(store *artifact.Store, reg *Registry) *Collector {
	return &Collector{store: store, reg: reg, log: logging.New("collect")}
}

// Collect interprets one probe run into a Result. Only integrity errors and
// unreadable manifests are fatal; every per-feature condition is recorded as
// data and collection continues.
func (c *Collector) Collect(runID string) (*Result, error) {
	var m probe.Manifest
	if err := c.store.ReadManifest(runID, probe.ManifestName, &m); err != nil {
		return nil, err
	}
	platform, ok := c.reg.Platform(m.Platform)
	if !ok {
		return nil, fmt.Errorf("no collector registered for platform %q", m.Platform)
	}

	byCommand := make(map[string][]probe.CommandResult)
	for _, r := range m.Results {
		byCommand[r.Command] = append(byCommand[r.Command], r)
	}

	res := &Result{
		CollectionID: uuid.New().String(),
		RunID:        runID,
		Platform:     m.Platform,
		CollectedAt:  time.Now().UTC(),
		Capabilities: make(map[string]Capability),
		Records:      make(map[string]any),
	}

	for _, feature := range platform.Features {
		outcome := c.collectFeature(runID, platform, feature, byCommand)
		res.Outcomes = append(res.Outcomes, outcome.FeatureOutcome)
		res.Capabilities[feature.Name] = outcome.capability
		if outcome.record != nil {
			res.Records[feature.Name] = outcome.record
		}
		if outcome.err != nil {
			return nil, outcome.err
		}
	}
	if platform.Derive != nil {
		platform.Derive(res)
	}
	return res, nil
}

type featureResult struct {
	FeatureOutcome
	capability Capability
	record     any
	err        error // integrity only
}

// collectFeature resolves one feature against the run's artifacts.
func (c *Collector) collectFeature(runID string, platform *Platform, feature Feature, byCommand map[string][]probe.CommandResult) featureResult {
	out := featureResult{
		FeatureOutcome: FeatureOutcome{Feature: feature.Name, Outcome: OutcomeUnknown},
		capability:     Unknown,
	}

	artifacts := make(map[string][]byte)
	sawContent := false
	for _, cmd := range feature.Commands {
		results, ok := byCommand[cmd]
		if !ok {
			out.Note = fmt.Sprintf("command %q not in probe run", cmd)
			c.log.Warn("feature command missing from run", "run", runID, "feature", feature.Name, "command", cmd)
			return out
		}
		for _, r := range results {
			if r.Artifact == "" {
				out.Note = fmt.Sprintf("command %q captured no artifact", cmd)
				return out
			}
			out.Artifacts = append(out.Artifacts, r.Artifact)
			data, err := c.store.ReadArtifact(runID, r.Artifact)
			if err != nil {
				// The manifest names an artifact the store cannot read: a
				// framework bug, not a parse signal.
				out.err = fmt.Errorf("%w: %s references %s: %v", ErrIntegrity, runID, r.Artifact, err)
				return out
			}
			if r.Status != probe.StatusOK {
				out.Note = fmt.Sprintf("command %q status %s", cmd, r.Status)
				return out
			}
			if platform.notSupported(data) {
				out.Outcome = OutcomeNotSupported
				out.capability = NotSupported
				return out
			}
			if len(strings.TrimSpace(string(data))) > 0 {
				sawContent = true
			}
			artifacts[cmd] = data
		}
	}
	if !sawContent {
		out.Note = "artifacts empty"
		return out
	}

	record, err := feature.Parse(artifacts)
	if err != nil {
		// Parse failure is signal: degrade to unknown, log, continue.
		out.Note = "parse: " + err.Error()
		c.log.Warn("feature parse failed", "run", runID, "feature", feature.Name, "err", err)
		return out
	}
	out.Outcome = OutcomeParsed
	out.capability = Supported
	out.record = record
	return out
}

// Save persists a Result under its run, keyed by its own collection UUID.
func (c *Collector) Save(res *Result) error {
	return c.store.WriteCollection(res.RunID, res.CollectionID, res)
}
