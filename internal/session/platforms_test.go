package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPreset_PromptShapes(t *testing.T) {
	cases := []struct {
		platform string
		prompt   string
		match    bool
	}{
		{"aos-switch", "core-2930f#", true},
		{"aos-switch", "core-2930f>", true},
		{"aos-switch", "still printing output", false},
		{"aos-cx", "cx-agg-01#", true},
		{"aruba-ap", "bc:9f:e4:c3:f2:82#", true},
		{"aruba-ap", "core-2930f#", false},
		{"aruba-controller", "(wlc-01) #", true},
		{"aruba-controller", "(wlc-01) *#", true},
		{"aruba-controller", "wlc-01#", false},
	}
	for _, tc := range cases {
		cfg, ok := Preset(tc.platform)
		if !ok {
			t.Fatalf("no preset for %s", tc.platform)
		}
		if got := cfg.PromptPattern.MatchString(tc.prompt); got != tc.match {
			t.Errorf("%s: PromptPattern.MatchString(%q) = %v, want %v",
				tc.platform, tc.prompt, got, tc.match)
		}
	}
}

func TestPreset_ReturnsIndependentCopies(t *testing.T) {
	a, _ := Preset("aos-switch")
	b, _ := Preset("aos-switch")
	a.ContinuationMarkers[0] = "mutated"
	a.PagingDisable[0] = "mutated"
	if b.ContinuationMarkers[0] == "mutated" || b.PagingDisable[0] == "mutated" {
		t.Fatal("preset slices are shared between callers")
	}
}

func TestPreset_UnknownPlatform(t *testing.T) {
	if _, ok := Preset("junos"); ok {
		t.Fatal("preset returned for unknown platform")
	}
}

func TestPlatforms_Sorted(t *testing.T) {
	want := []string{"aos-cx", "aos-switch", "aruba-ap", "aruba-controller"}
	if diff := cmp.Diff(want, Platforms()); diff != "" {
		t.Errorf("platforms mismatch (-want +got):\n%s", diff)
	}
}
