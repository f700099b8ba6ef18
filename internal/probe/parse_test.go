package probe

import (
	"reflect"
	"testing"
)

const linuxPing = `PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data.
64 bytes from 8.8.8.8: icmp_seq=1 ttl=116 time=12.3 ms
64 bytes from 8.8.8.8: icmp_seq=2 ttl=116 time=11.9 ms

--- 8.8.8.8 ping statistics ---
4 packets transmitted, 3 received, 25% packet loss, time 3004ms
rtt min/avg/max/mdev = 11.912/12.405/13.102/0.447 ms
`

const windowsPing = `Pinging 8.8.8.8 with 32 bytes of data:
Reply from 8.8.8.8: bytes=32 time=12ms TTL=116

Ping statistics for 8.8.8.8:
    Packets: Sent = 4, Received = 4, Lost = 0 (0% loss),
Approximate round trip times in milli-seconds:
    Minimum = 11ms, Maximum = 14ms, Average = 12ms
`

func TestParsePingLinux(t *testing.T) {
	s := ParsePing(linuxPing)
	if s.PacketsSent != 4 || s.PacketsReceived != 3 {
		t.Fatalf("counts = %d/%d, want 4/3", s.PacketsSent, s.PacketsReceived)
	}
	if s.PacketLoss != 25 {
		t.Errorf("loss = %v, want 25", s.PacketLoss)
	}
	if s.AvgRTT != 12.405 {
		t.Errorf("avg = %v, want 12.405", s.AvgRTT)
	}
}

func TestParsePingWindows(t *testing.T) {
	s := ParsePing(windowsPing)
	if s.PacketsSent != 4 || s.PacketsReceived != 4 {
		t.Fatalf("counts = %d/%d, want 4/4", s.PacketsSent, s.PacketsReceived)
	}
	if s.MinRTT != 11 || s.MaxRTT != 14 || s.AvgRTT != 12 {
		t.Errorf("rtt = %v/%v/%v, want 11/12/14", s.MinRTT, s.AvgRTT, s.MaxRTT)
	}
}

func TestParsePingGarbage(t *testing.T) {
	s := ParsePing("not ping output at all")
	if s.PacketsSent != 0 || s.AvgRTT != 0 {
		t.Errorf("garbage input produced non-zero stats: %+v", s)
	}
}

const traceOut = `traceroute to 8.8.8.8 (8.8.8.8), 30 hops max, 60 byte packets
 1  192.168.1.1  1.102 ms  0.987 ms  1.233 ms
 2  * * *
 3  10.20.30.1  8.441 ms  8.102 ms  7.995 ms
`

func TestParseTraceroute(t *testing.T) {
	hops := ParseTraceroute(traceOut)
	if len(hops) != 3 {
		t.Fatalf("hops = %d, want 3", len(hops))
	}
	if hops[0].Address != "192.168.1.1" || len(hops[0].RTTs) != 3 {
		t.Errorf("hop 1 = %+v", hops[0])
	}
	if !hops[1].Timeout {
		t.Errorf("hop 2 should be a timeout: %+v", hops[1])
	}
	if hops[2].Number != 3 || hops[2].Address != "10.20.30.1" {
		t.Errorf("hop 3 = %+v", hops[2])
	}
}

const ipAddrOut = `1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue state UNKNOWN
    link/loopback 00:00:00:00:00:00 brd 00:00:00:00:00:00
    inet 127.0.0.1/8 scope host lo
2: eth0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc fq state UP
    link/ether aa:bb:cc:dd:ee:ff brd ff:ff:ff:ff:ff:ff
    inet 192.168.1.42/24 brd 192.168.1.255 scope global eth0
    inet6 fe80::1/64 scope link
`

func TestParseInterfaces(t *testing.T) {
	ifaces := ParseInterfaces(ipAddrOut)
	if len(ifaces) != 2 {
		t.Fatalf("interfaces = %d, want 2", len(ifaces))
	}
	eth := ifaces[1]
	if eth.Name != "eth0" {
		t.Errorf("name = %q, want eth0", eth.Name)
	}
	if eth.MAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("mac = %q", eth.MAC)
	}
	want := []string{"192.168.1.42", "fe80::1"}
	if !reflect.DeepEqual(eth.Addresses, want) {
		t.Errorf("addresses = %v, want %v", eth.Addresses, want)
	}
	if !eth.Up {
		t.Error("eth0 should be up")
	}
}

func TestParseARPEntry(t *testing.T) {
	out := "? (192.168.1.1) at a4:b1:c2:d3:e4:f5 [ether] on eth0\n"
	if got := ParseARPEntry(out, "192.168.1.1"); got != "a4:b1:c2:d3:e4:f5" {
		t.Errorf("mac = %q", got)
	}
	if got := ParseARPEntry("? (192.168.1.9) at <incomplete> on eth0", "192.168.1.9"); got != "" {
		t.Errorf("incomplete entry should yield empty, got %q", got)
	}
	windows := "  192.168.1.1           a4-b1-c2-d3-e4-f5     dynamic\n"
	if got := ParseARPEntry(windows, "192.168.1.1"); got != "a4:b1:c2:d3:e4:f5" {
		t.Errorf("windows mac = %q", got)
	}
}

func TestParseDefaultGateway(t *testing.T) {
	cases := []struct {
		os, out, want string
	}{
		{OSLinux, "default via 192.168.1.1 dev eth0 proto dhcp metric 100\n", "192.168.1.1"},
		{OSDarwin, "   route to: default\ndestination: default\n    gateway: 10.0.0.1\n", "10.0.0.1"},
		{OSWindows, "          0.0.0.0          0.0.0.0      172.16.0.1     172.16.0.10     25\n", "172.16.0.1"},
		{OSLinux, "no default route", ""},
	}
	for _, c := range cases {
		if got := ParseDefaultGateway(c.os, c.out); got != c.want {
			t.Errorf("ParseDefaultGateway(%s) = %q, want %q", c.os, got, c.want)
		}
	}
}

func TestParseDNSAnswersDig(t *testing.T) {
	out := "93.184.216.34\n2606:2800:220:1:248:1893:25c8:1946\n"
	got := ParseDNSAnswers(out)
	if !reflect.DeepEqual(got, []string{"93.184.216.34"}) {
		t.Errorf("answers = %v", got)
	}
}

func TestParseDNSAnswersNslookup(t *testing.T) {
	out := `Server:         192.168.1.1
Address:        192.168.1.1#53

Non-authoritative answer:
Name:   example.com
Address: 93.184.216.34
Name:   example.com
Address: 93.184.216.34
`
	got := ParseDNSAnswers(out)
	if !reflect.DeepEqual(got, []string{"93.184.216.34"}) {
		t.Errorf("answers = %v (resolver address must be excluded, duplicates collapsed)", got)
	}
}

func TestParseDNSAnswersRejectsBadOctets(t *testing.T) {
	if got := ParseDNSAnswers("999.1.2.3\n"); len(got) != 0 {
		t.Errorf("invalid address accepted: %v", got)
	}
}

func TestParseManufLine(t *testing.T) {
	e, ok := ParseManufLine("00:00:0C\tCisco\tCisco Systems, Inc")
	if !ok {
		t.Fatal("line rejected")
	}
	if e.Prefix != "00000C" || e.PrefixLen != 6 || e.Vendor != "Cisco Systems, Inc" {
		t.Errorf("entry = %+v", e)
	}

	e, ok = ParseManufLine("00:55:DA:80/28\tShortName\tLong Vendor Name")
	if !ok {
		t.Fatal("masked line rejected")
	}
	if e.Prefix != "0055DA8" || e.PrefixLen != 7 {
		t.Errorf("masked entry = %+v", e)
	}

	if _, ok := ParseManufLine("# comment line"); ok {
		t.Error("comment accepted")
	}
	if _, ok := ParseManufLine(""); ok {
		t.Error("blank accepted")
	}
}

func TestRunTruncation(t *testing.T) {
	long := "a\nb\nc\nd\n"
	if got := truncateLines(long, 2); got != "a\nb\n[output truncated]" {
		t.Errorf("truncated = %q", got)
	}
	if got := truncateLines(long, 0); got != long {
		t.Errorf("unlimited should pass through, got %q", got)
	}
}
