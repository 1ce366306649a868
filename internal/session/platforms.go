package session

import (
	"regexp"
	"sort"
	"time"
)

// Per-platform session presets: prompt shapes, pager markers, and the
// paging-disable preamble each CLI dialect needs. These are data, not
// architecture; new platforms are added here.

var (
	// Switch/controller prompts: "hostname# " or "hostname> ".
	switchPrompt = regexp.MustCompile(`^[\w.\-/()]+[#>]$`)
	// Instant AP prompts on the AP MAC: "bc:9f:e4:c3:f2:82# ".
	apPrompt = regexp.MustCompile(`^([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}#$`)
	// Mobility controller prompts wrap the hostname: "(host) # ".
	controllerPrompt = regexp.MustCompile(`^\([\w.\-]+\) ?\*?[#>]$`)

	defaultMarkers = []string{"-- MORE --", "--More--", "Press any key to continue"}
)

var presets = map[string]Config{
	"aos-switch": {
		PromptPattern:       switchPrompt,
		ContinuationMarkers: defaultMarkers,
		ContinueInput:       " ",
		MaxContinuations:    200,
		CommandTimeout:      30 * time.Second,
		ConnectTimeout:      15 * time.Second,
		PagingDisable:       []string{"no page"},
	},
	"aos-cx": {
		PromptPattern:       switchPrompt,
		ContinuationMarkers: defaultMarkers,
		ContinueInput:       " ",
		MaxContinuations:    200,
		CommandTimeout:      30 * time.Second,
		ConnectTimeout:      15 * time.Second,
		PagingDisable:       []string{"no page"},
	},
	"aruba-ap": {
		PromptPattern:       apPrompt,
		ContinuationMarkers: defaultMarkers,
		ContinueInput:       " ",
		MaxContinuations:    100,
		CommandTimeout:      20 * time.Second,
		ConnectTimeout:      15 * time.Second,
		PagingDisable:       []string{"no paging"},
	},
	"aruba-controller": {
		PromptPattern:       controllerPrompt,
		ContinuationMarkers: append([]string{"--More-- (q) quit"}, defaultMarkers...),
		ContinueInput:       " ",
		MaxContinuations:    200,
		CommandTimeout:      30 * time.Second,
		ConnectTimeout:      15 * time.Second,
		PagingDisable:       []string{"no paging"},
	},
}

// Preset returns the session configuration for a platform identity.
func Preset(platform string) (Config, bool) {
	cfg, ok := presets[platform]
	if !ok {
		return Config{}, false
	}
	cfg.ContinuationMarkers = append([]string(nil), cfg.ContinuationMarkers...)
	cfg.PagingDisable = append([]string(nil), cfg.PagingDisable...)
	return cfg, true
}

// Platforms lists the known platform identities.
func Platforms() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
