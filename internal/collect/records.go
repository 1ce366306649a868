package collect

// Normalized record shapes shared across platforms. Fields a platform does
// not report stay empty; absence is expressed through the capability map,
// never by inventing values.

// InventoryRecord is the device identity and software state.
type InventoryRecord struct {
	Model     string `json:"model,omitempty"`
	OSVersion string `json:"os_version,omitempty"`
	Serial    string `json:"serial,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}

// PowerStatus is the per-field power/PoE report, kept as the device's own
// key/value vocabulary.
type PowerStatus map[string]string

// VLAN is one row of a VLAN table.
type VLAN struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// LLDPNeighbor is one remote device seen on a local port.
type LLDPNeighbor struct {
	LocalPort string `json:"local_port"`
	ChassisID string `json:"chassis_id"`
	PortID    string `json:"port_id,omitempty"`
	SysName   string `json:"sys_name,omitempty"`
}

// Client is one controller user-table row.
type Client struct {
	IP      string `json:"ip"`
	MAC     string `json:"mac"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	AuthAge string `json:"auth_age,omitempty"`
	AP      string `json:"ap,omitempty"`
	ESSID   string `json:"essid,omitempty"`
}

// APClientMap groups controller clients under the AP name each row
// reported. Clients with no AP field land under "UNKNOWN"; nothing is
// dropped or inferred.
type APClientMap struct {
	ClientsSeen int                 `json:"clients_seen"`
	APs         map[string][]Client `json:"aps"`
}

// License is one controller license table row.
type License struct {
	Key       string `json:"key"`
	Installed string `json:"installed"`
	Expires   string `json:"expires"`
	Flags     string `json:"flags,omitempty"`
	Service   string `json:"service,omitempty"`
}
