package collect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	ctrlModelVersion = regexp.MustCompile(`ArubaOS \(MODEL:\s*([^)]+)\), Version ([\d.]+)`)
	ctrlUptime       = regexp.MustCompile(`Switch uptime is (.+)`)
	ctrlLicenseKey   = regexp.MustCompile(`^[A-Za-z0-9+/=-]{20,}$`)
	columnGap        = regexp.MustCompile(`\s{2,}`)
	profileRow       = regexp.MustCompile(`^\S+\s+\d+`)
	clientRow        = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+`)
)

func arubaControllerPlatform() *Platform {
	return &Platform{
		Name: "aruba-controller",
		NotSupportedSignatures: []string{
			"% Invalid input",
			"% Parse error",
		},
		Features: []Feature{
			{
				Name:     "inventory",
				Commands: []string{"show version"},
				Parse:    parseControllerVersion,
			},
			{
				Name:     "licenses",
				Commands: []string{"show license"},
				Parse:    parseControllerLicenses,
			},
			{
				Name:     "ssids",
				Commands: []string{"show wlan ssid-profile"},
				Parse:    parseProfileNames("show wlan ssid-profile", "SSID Profile List"),
			},
			{
				Name:     "virtual_aps",
				Commands: []string{"show wlan virtual-ap"},
				Parse:    parseProfileNames("show wlan virtual-ap", "Virtual AP profile List"),
			},
			{
				Name:     "clients",
				Commands: []string{"show user-table"},
				Parse:    parseClients,
			},
		},
		Derive: deriveClientMap,
	}
}

func parseControllerVersion(artifacts map[string][]byte) (any, error) {
	out := string(artifacts["show version"])
	m := ctrlModelVersion.FindStringSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("no ArubaOS banner in output")
	}
	inv := InventoryRecord{
		Model:     strings.TrimSpace(m[1]),
		OSVersion: m[2],
	}
	if u := ctrlUptime.FindStringSubmatch(out); u != nil {
		inv.Uptime = strings.TrimSpace(u[1])
	}
	return inv, nil
}

// parseControllerLicenses reads License Table rows. Each row starts with the
// license key and carries at least installed date, expiry, flags and service
// type separated by column gaps.
func parseControllerLicenses(artifacts map[string][]byte) (any, error) {
	var licenses []License
	for _, line := range strings.Split(string(artifacts["show license"]), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		cols := columnGap.Split(trimmed, -1)
		if len(cols) < 5 || !ctrlLicenseKey.MatchString(cols[0]) {
			continue
		}
		licenses = append(licenses, License{
			Key:       cols[0],
			Installed: cols[1],
			Expires:   cols[2],
			Flags:     cols[3],
			Service:   strings.Join(cols[4:], " "),
		})
	}
	if len(licenses) == 0 {
		return nil, fmt.Errorf("no license rows in output")
	}
	return licenses, nil
}

// parseProfileNames builds a parser over one profile listing ("show wlan
// ssid-profile", "show wlan virtual-ap"). Rows are "<name> <refcount>"; the
// built-in "default" profile is not inventory and is skipped. A present
// heading with zero rows is a supported, empty list.
func parseProfileNames(command, heading string) ParseFunc {
	return func(artifacts map[string][]byte) (any, error) {
		text := string(artifacts[command])
		if !strings.Contains(text, heading) {
			return nil, fmt.Errorf("no %q heading in output", heading)
		}
		names := []string{}
		for _, line := range strings.Split(text, "\n") {
			if !profileRow.MatchString(line) {
				continue
			}
			name := strings.Fields(line)[0]
			if strings.EqualFold(name, "default") {
				continue
			}
			names = append(names, name)
		}
		return names, nil
	}
}

// parseClients reads "show user-table" by slicing on the header's column
// offsets instead of splitting on whitespace, so an empty optional field
// (no Name, no Role) cannot shift the columns after it.
func parseClients(artifacts map[string][]byte) (any, error) {
	lines := strings.Split(string(artifacts["show user-table"]), "\n")
	header := ""
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "IP") {
			header = line
			break
		}
	}
	if header == "" {
		return nil, fmt.Errorf("no user-table header in output")
	}

	type column struct {
		name  string
		start int
	}
	var cols []column
	for _, name := range []string{"IP", "MAC", "Name", "Role", "Age", "AP name", "Essid"} {
		if i := strings.Index(header, name); i >= 0 {
			cols = append(cols, column{name, i})
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].start < cols[j].start })

	var clients []Client
	for _, line := range lines {
		if !clientRow.MatchString(line) {
			continue
		}
		fields := map[string]string{}
		for i, col := range cols {
			if col.start >= len(line) {
				continue
			}
			end := len(line)
			if i+1 < len(cols) && cols[i+1].start < end {
				end = cols[i+1].start
			}
			fields[col.name] = strings.TrimSpace(line[col.start:end])
		}
		clients = append(clients, Client{
			IP:      fields["IP"],
			MAC:     fields["MAC"],
			Name:    fields["Name"],
			Role:    fields["Role"],
			AuthAge: fields["Age"],
			AP:      fields["AP name"],
			ESSID:   fields["Essid"],
		})
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no client rows in output")
	}
	return clients, nil
}

// deriveClientMap groups the parsed user table by reported AP name. Runs
// only when the clients feature parsed; a missing AP field groups under
// UNKNOWN rather than guessing.
func deriveClientMap(res *Result) {
	clients, ok := res.Records["clients"].([]Client)
	if !ok {
		return
	}
	m := APClientMap{ClientsSeen: len(clients), APs: map[string][]Client{}}
	for _, c := range clients {
		ap := c.AP
		if ap == "" {
			ap = "UNKNOWN"
		}
		m.APs[ap] = append(m.APs[ap], c)
	}
	res.Records["client_map"] = m
}
