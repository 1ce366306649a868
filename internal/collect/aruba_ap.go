package collect

import (
	"fmt"
	"regexp"
	"strings"
)

// Aruba Instant AP collector. The AP CLI prompts on the AP MAC address and
// rejects unknown commands with a parse error.

var (
	apModelVersion = regexp.MustCompile(`MODEL:\s*([^)]+)\).*Version\s+([\w.\-]+)`)
	apUptime       = regexp.MustCompile(`AP uptime is (.+)`)
	apPromptLine   = regexp.MustCompile(`(?i)^[0-9a-f]{2}(:[0-9a-f]{2}){5}#`)
)

func arubaAPPlatform() *Platform {
	return &Platform{
		Name: "aruba-ap",
		NotSupportedSignatures: []string{
			"Invalid input detected",
			"% Parse error",
		},
		Features: []Feature{
			{
				Name:     "inventory",
				Commands: []string{"show version"},
				Parse:    parseAPInventory,
			},
			{
				Name:     "power",
				Commands: []string{"show power status"},
				Parse:    parseAPPower,
			},
			{
				Name:     "vlan_table",
				Commands: []string{"show vlan"},
				Parse:    parseVLANTable("show vlan"),
			},
		},
	}
}

func parseAPInventory(artifacts map[string][]byte) (any, error) {
	text := string(artifacts["show version"])
	inv := InventoryRecord{}
	if m := apModelVersion.FindStringSubmatch(text); m != nil {
		inv.Model = strings.TrimSpace(m[1])
		inv.OSVersion = strings.TrimSpace(m[2])
	}
	if m := apUptime.FindStringSubmatch(text); m != nil {
		inv.Uptime = strings.TrimSpace(m[1])
	}
	if inv.Model == "" && inv.OSVersion == "" {
		return nil, fmt.Errorf("no model or version in output")
	}
	return inv, nil
}

func parseAPPower(artifacts map[string][]byte) (any, error) {
	power := PowerStatus{}
	for _, line := range strings.Split(stripPromptLines(string(artifacts["show power status"])), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "----") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		power[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if len(power) == 0 {
		return nil, fmt.Errorf("no power fields in output")
	}
	return power, nil
}

// stripPromptLines removes AP prompt lines ("bc:9f:e4:c3:f2:82#") from
// captured text before field parsing. The raw artifact is untouched.
func stripPromptLines(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if apPromptLine.MatchString(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
