package collect

import (
	"fmt"
	"strings"
)

// AOS-CX collector. CX "show system" uses the same colon-field layout with
// different key names; the VLAN summary matches the shared row shape.

func aosCXPlatform() *Platform {
	return &Platform{
		Name: "aos-cx",
		NotSupportedSignatures: []string{
			"% Unknown command",
			"Unknown command.",
		},
		Features: []Feature{
			{
				Name:     "inventory",
				Commands: []string{"show system"},
				Parse:    parseCXSystem,
			},
			{
				Name:     "vlan_table",
				Commands: []string{"show vlan"},
				Parse:    parseVLANTable("show vlan"),
			},
			{
				Name:     "lldp_neighbors",
				Commands: []string{"show lldp neighbor-info"},
				Parse:    parseCXLLDP,
			},
		},
	}
}

func parseCXSystem(artifacts map[string][]byte) (any, error) {
	inv := InventoryRecord{}
	for _, line := range strings.Split(string(artifacts["show system"]), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "Product Name":
			inv.Model = value
		case "ArubaOS-CX Version":
			inv.OSVersion = value
		case "Chassis Serial Nbr", "Serial Nbr":
			inv.Serial = value
		case "Up Time":
			inv.Uptime = value
		}
	}
	if inv.Model == "" && inv.OSVersion == "" {
		return nil, fmt.Errorf("no system fields in output")
	}
	return inv, nil
}

// parseCXLLDP reads "show lldp neighbor-info" summary rows:
// port, neighbor chassis id, port id, ttl, system name.
func parseCXLLDP(artifacts map[string][]byte) (any, error) {
	var neighbors []LLDPNeighbor
	inTable := false
	for _, line := range strings.Split(string(artifacts["show lldp neighbor-info"]), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "----") {
			inTable = true
			continue
		}
		if !inTable || trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 3 {
			continue
		}
		n := LLDPNeighbor{LocalPort: fields[0], ChassisID: fields[1], PortID: fields[2]}
		if len(fields) >= 5 {
			n.SysName = fields[len(fields)-1]
		}
		neighbors = append(neighbors, n)
	}
	if len(neighbors) == 0 {
		return nil, fmt.Errorf("no LLDP rows in output")
	}
	return neighbors, nil
}
