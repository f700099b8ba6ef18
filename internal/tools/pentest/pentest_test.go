package pentest

import "testing"

func TestValidTarget(t *testing.T) {
	valid := []string{
		"example.com",
		"sub.example.com",
		"192.168.1.1",
		"10.0.0.0/24",
		"localhost",
		"host-with-dash.example.org",
	}
	for _, target := range valid {
		if !ValidTarget(target) {
			t.Errorf("ValidTarget(%q) = false, want true", target)
		}
	}

	invalid := []string{
		"",
		"example.com; rm -rf /",
		"host | cat",
		"host && true",
		"$(whoami)",
		"`id`",
		"host name",
		"host\nname",
		"-badflag",
	}
	for _, target := range invalid {
		if ValidTarget(target) {
			t.Errorf("ValidTarget(%q) = true, want false", target)
		}
	}
}

const scanOutput = `Starting Nmap 7.94 ( https://nmap.org )
Nmap scan report for router.lan (192.168.1.1)
Host is up (0.0012s latency).
PORT    STATE  SERVICE  VERSION
22/tcp  open   ssh      OpenSSH 9.6
80/tcp  open   http     nginx 1.24.0
443/tcp closed https

Nmap scan report for 192.168.1.5
Host is up.
PORT   STATE SERVICE
22/tcp open  ssh

Nmap done: 2 IP addresses (2 hosts up) scanned in 4.21 seconds
`

func TestParseScanOutput(t *testing.T) {
	hosts := ParseScanOutput(scanOutput)
	if len(hosts) != 2 {
		t.Fatalf("hosts = %d, want 2", len(hosts))
	}

	first := hosts[0]
	if first["host"] != "router.lan (192.168.1.1)" {
		t.Errorf("host = %v", first["host"])
	}
	ports := first["ports"].([]map[string]any)
	if len(ports) != 3 {
		t.Fatalf("ports = %d, want 3", len(ports))
	}
	if ports[0]["port"] != 22 || ports[0]["state"] != "open" || ports[0]["service"] != "ssh" {
		t.Errorf("port 0 = %v", ports[0])
	}
	if ports[1]["version"] != "nginx 1.24.0" {
		t.Errorf("version = %v", ports[1]["version"])
	}
	if _, has := ports[2]["version"]; has {
		t.Error("version set on line without one")
	}

	second := hosts[1]
	if second["host"] != "192.168.1.5" {
		t.Errorf("second host = %v", second["host"])
	}
}

func TestParseScanOutputGarbage(t *testing.T) {
	if hosts := ParseScanOutput("not scanner output"); len(hosts) != 0 {
		t.Errorf("garbage parsed into %d hosts", len(hosts))
	}
}

func TestProfilesTable(t *testing.T) {
	for _, name := range profileNames {
		if _, ok := profiles[name.(string)]; !ok {
			t.Errorf("profile %v missing from table", name)
		}
	}
	if len(profiles) != len(profileNames) {
		t.Errorf("profiles = %d, choices = %d", len(profiles), len(profileNames))
	}
}
