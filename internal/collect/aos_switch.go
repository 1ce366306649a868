package collect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ArubaOS-Switch (provision/2930F class) collector.

var (
	vlanRow = regexp.MustCompile(`^\s*(\d+)\s+(\S+)\s*(.*)$`)
	lldpRow = regexp.MustCompile(`^\s*(\S+)\s*\|\s*(\S+)\s+(\S+)\s*(.*)$`)
)

func aosSwitchPlatform() *Platform {
	return &Platform{
		Name: "aos-switch",
		NotSupportedSignatures: []string{
			"Invalid input:",
			"Incomplete input:",
		},
		Features: []Feature{
			{
				Name:     "inventory",
				Commands: []string{"show system"},
				Parse:    parseSwitchSystem,
			},
			{
				Name:     "vlan_table",
				Commands: []string{"show vlan"},
				Parse:    parseVLANTable("show vlan"),
			},
			{
				Name:     "lldp_neighbors",
				Commands: []string{"show lldp info remote-device"},
				Parse:    parseLLDPNeighbors,
			},
		},
	}
}

// parseSwitchSystem reads the colon-separated fields of "show system".
func parseSwitchSystem(artifacts map[string][]byte) (any, error) {
	inv := InventoryRecord{}
	for _, line := range strings.Split(string(artifacts["show system"]), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "System Name":
			if inv.Model == "" {
				inv.Model = value
			}
		case "Software revision":
			inv.OSVersion = value
		case "Serial Number":
			inv.Serial = value
		case "Up Time":
			inv.Uptime = value
		}
	}
	if inv.OSVersion == "" && inv.Serial == "" {
		return nil, fmt.Errorf("no system fields in output")
	}
	return inv, nil
}

// parseVLANTable builds a parser over one VLAN summary command. Rows start
// with the VLAN ID, as in " 200  DLR_SERVER_VLAN | Port-based ...".
func parseVLANTable(command string) ParseFunc {
	return func(artifacts map[string][]byte) (any, error) {
		var vlans []VLAN
		for _, line := range strings.Split(string(artifacts[command]), "\n") {
			m := vlanRow.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			id, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			vlans = append(vlans, VLAN{
				ID:     id,
				Name:   strings.Trim(m[2], "|"),
				Status: strings.TrimSpace(strings.TrimLeft(m[3], "| ")),
			})
		}
		if len(vlans) == 0 {
			return nil, fmt.Errorf("no VLAN rows in output")
		}
		return vlans, nil
	}
}

// parseLLDPNeighbors reads the remote-device summary table: local port,
// then chassis id, port id and system name separated by the column bar.
func parseLLDPNeighbors(artifacts map[string][]byte) (any, error) {
	var neighbors []LLDPNeighbor
	for _, line := range strings.Split(string(artifacts["show lldp info remote-device"]), "\n") {
		if strings.Contains(line, "ChassisId") || strings.HasPrefix(strings.TrimSpace(line), "---") {
			continue
		}
		m := lldpRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		neighbors = append(neighbors, LLDPNeighbor{
			LocalPort: m[1],
			ChassisID: m[2],
			PortID:    m[3],
			SysName:   strings.TrimSpace(m[4]),
		})
	}
	if len(neighbors) == 0 {
		return nil, fmt.Errorf("no LLDP rows in output")
	}
	return neighbors, nil
}
