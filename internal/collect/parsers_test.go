package collect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSwitchSystem(t *testing.T) {
	out := ` Status and Counters - General System Information

  System Name        : core-2930f
  System Contact     :
  Up Time            : 214 days
  Software revision  : WC.16.10.0003
  Serial Number      : SG01XYZ123
switch# `
	got, err := parseSwitchSystem(map[string][]byte{"show system": []byte(out)})
	if err != nil {
		t.Fatalf("parseSwitchSystem: %v", err)
	}
	want := InventoryRecord{
		Model:     "core-2930f",
		OSVersion: "WC.16.10.0003",
		Serial:    "SG01XYZ123",
		Uptime:    "214 days",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inventory mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVLANTable(t *testing.T) {
	out := ` Status and Counters - VLAN Information

  VLAN ID Name           | Status
  ------- -------------- + ----------
  1       DEFAULT_VLAN   | Port-based
  200     SERVER_VLAN    | Port-based
switch# `
	got, err := parseVLANTable("show vlan")(map[string][]byte{"show vlan": []byte(out)})
	if err != nil {
		t.Fatalf("parseVLANTable: %v", err)
	}
	want := []VLAN{
		{ID: 1, Name: "DEFAULT_VLAN", Status: "Port-based"},
		{ID: 200, Name: "SERVER_VLAN", Status: "Port-based"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("vlans mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVLANTable_NoRows(t *testing.T) {
	if _, err := parseVLANTable("show vlan")(map[string][]byte{"show vlan": []byte("nothing here\n")}); err == nil {
		t.Fatalf("empty table parsed without error")
	}
}

func TestParseLLDPNeighbors(t *testing.T) {
	out := ` LLDP Remote Devices Information

  LocalPort | ChassisId         PortId  SysName
  --------- + ----------------- ------- -------------
  1         | a0:b1:c2:d3:e4:f5 47      dist-sw-01
  12        | 00:11:22:33:44:55 1/1/22  ap-lobby
switch# `
	got, err := parseLLDPNeighbors(map[string][]byte{"show lldp info remote-device": []byte(out)})
	if err != nil {
		t.Fatalf("parseLLDPNeighbors: %v", err)
	}
	want := []LLDPNeighbor{
		{LocalPort: "1", ChassisID: "a0:b1:c2:d3:e4:f5", PortID: "47", SysName: "dist-sw-01"},
		{LocalPort: "12", ChassisID: "00:11:22:33:44:55", PortID: "1/1/22", SysName: "ap-lobby"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("neighbors mismatch (-want +got):\n%s", diff)
	}
}

func TestParseControllerVersion(t *testing.T) {
	out := `Aruba Operating System Software.
ArubaOS (MODEL: Aruba7010-US), Version 8.6.0.4
Website: http://www.arubanetworks.com
Switch uptime is 120 days 4 hours 12 minutes
(host) # `
	got, err := parseControllerVersion(map[string][]byte{"show version": []byte(out)})
	if err != nil {
		t.Fatalf("parseControllerVersion: %v", err)
	}
	want := InventoryRecord{
		Model:     "Aruba7010-US",
		OSVersion: "8.6.0.4",
		Uptime:    "120 days 4 hours 12 minutes",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inventory mismatch (-want +got):\n%s", diff)
	}
}

func TestParseControllerLicenses(t *testing.T) {
	out := `License Table
-------------
Key                                           Installed       Expires    Flags  Service Type
ABCDEFGH-IJKLMNOP-QRSTUVWX-YZ012345-ABCDEF12  2021-03-04      Never      E      Access Points
ZYXWVUTS-RQPONMLK-JIHGFEDC-BA987654-ZYXWVU98  2021-03-04      Never      E      PEF

Total licenses: 2
(host) # `
	got, err := parseControllerLicenses(map[string][]byte{"show license": []byte(out)})
	if err != nil {
		t.Fatalf("parseControllerLicenses: %v", err)
	}
	want := []License{
		{Key: "ABCDEFGH-IJKLMNOP-QRSTUVWX-YZ012345-ABCDEF12", Installed: "2021-03-04", Expires: "Never", Flags: "E", Service: "Access Points"},
		{Key: "ZYXWVUTS-RQPONMLK-JIHGFEDC-BA987654-ZYXWVU98", Installed: "2021-03-04", Expires: "Never", Flags: "E", Service: "PEF"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("licenses mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProfileNames(t *testing.T) {
	out := `SSID Profile List
-----------------
Name            References  Profile Status
----            ----------  --------------
default         1
corp-ssid       2
guest-ssid      1
(wlc-01) # `
	got, err := parseProfileNames("show wlan ssid-profile", "SSID Profile List")(
		map[string][]byte{"show wlan ssid-profile": []byte(out)})
	if err != nil {
		t.Fatalf("parseProfileNames: %v", err)
	}
	want := []string{"corp-ssid", "guest-ssid"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ssids mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProfileNames_HeadingOnlyIsEmptyList(t *testing.T) {
	out := "Virtual AP profile List\n-----------------------\n(wlc-01) # "
	got, err := parseProfileNames("show wlan virtual-ap", "Virtual AP profile List")(
		map[string][]byte{"show wlan virtual-ap": []byte(out)})
	if err != nil {
		t.Fatalf("parseProfileNames: %v", err)
	}
	if names := got.([]string); len(names) != 0 {
		t.Errorf("names = %v, want empty list", names)
	}
}

func TestParseProfileNames_NoHeading(t *testing.T) {
	if _, err := parseProfileNames("show wlan ssid-profile", "SSID Profile List")(
		map[string][]byte{"show wlan ssid-profile": []byte("something else\n")}); err == nil {
		t.Fatalf("output without heading parsed without error")
	}
}

const userTableOutput = `Users
-----
IP            MAC                Name     Role      Age(d:h:m)  AP name    Essid
----------    ------------       ------   ----      ----------  -------    -----
10.1.30.101   aa:bb:cc:dd:ee:01  jdoe     employee  00:04:12    AP-LOBBY   CORP
10.1.30.102   aa:bb:cc:dd:ee:02           guest     00:00:03    AP-LOBBY   GUEST
10.1.30.103   aa:bb:cc:dd:ee:03  svc-cam  camera    01:02:03               IOT

User Entries: 3/3
(wlc-01) # `

func TestParseClients_ColumnSlicing(t *testing.T) {
	got, err := parseClients(map[string][]byte{"show user-table": []byte(userTableOutput)})
	if err != nil {
		t.Fatalf("parseClients: %v", err)
	}
	want := []Client{
		{IP: "10.1.30.101", MAC: "aa:bb:cc:dd:ee:01", Name: "jdoe", Role: "employee", AuthAge: "00:04:12", AP: "AP-LOBBY", ESSID: "CORP"},
		// Empty Name must not shift the columns after it.
		{IP: "10.1.30.102", MAC: "aa:bb:cc:dd:ee:02", Role: "guest", AuthAge: "00:00:03", AP: "AP-LOBBY", ESSID: "GUEST"},
		{IP: "10.1.30.103", MAC: "aa:bb:cc:dd:ee:03", Name: "svc-cam", Role: "camera", AuthAge: "01:02:03", ESSID: "IOT"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("clients mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveClientMap(t *testing.T) {
	res := &Result{Records: map[string]any{
		"clients": []Client{
			{IP: "10.1.30.101", AP: "AP-LOBBY"},
			{IP: "10.1.30.102", AP: "AP-LOBBY"},
			{IP: "10.1.30.103"},
		},
	}}
	deriveClientMap(res)

	m, ok := res.Records["client_map"].(APClientMap)
	if !ok {
		t.Fatalf("client_map record = %T, want APClientMap", res.Records["client_map"])
	}
	if m.ClientsSeen != 3 {
		t.Errorf("ClientsSeen = %d, want 3", m.ClientsSeen)
	}
	if got := len(m.APs["AP-LOBBY"]); got != 2 {
		t.Errorf("AP-LOBBY clients = %d, want 2", got)
	}
	if got := len(m.APs["UNKNOWN"]); got != 1 {
		t.Errorf("UNKNOWN clients = %d, want 1", got)
	}
}

func TestDeriveClientMap_NoClientsRecord(t *testing.T) {
	res := &Result{Records: map[string]any{}}
	deriveClientMap(res)
	if _, ok := res.Records["client_map"]; ok {
		t.Fatal("client_map derived without a clients record")
	}
}

func TestParseCXSystem(t *testing.T) {
	out := `Hostname              : cx-agg-01
Product Name          : 6300M 24G
Chassis Serial Nbr    : SG9ZK0X01H
ArubaOS-CX Version    : 10.08.1021
Up Time               : 33 days, 2 hours
cx-agg-01# `
	got, err := parseCXSystem(map[string][]byte{"show system": []byte(out)})
	if err != nil {
		t.Fatalf("parseCXSystem: %v", err)
	}
	want := InventoryRecord{
		Model:     "6300M 24G",
		OSVersion: "10.08.1021",
		Serial:    "SG9ZK0X01H",
		Uptime:    "33 days, 2 hours",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inventory mismatch (-want +got):\n%s", diff)
	}
}
