package probe

import (
	"regexp"
	"strconv"
	"strings"
)

// The parsers in this file are tolerant by design: they accept whatever
// text the platform tool produced and extract the fields they recognize.
// Unrecognized input yields sparse results, never an error.

var (
	ipv4Re      = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)
	macRe       = regexp.MustCompile(`(?i)\b([0-9a-f]{2}[:-]){5}[0-9a-f]{2}\b`)
	pingStatsRe = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)
	pingRTTRe   = regexp.MustCompile(`(?:round-trip|rtt)[^=]*= ([\d.]+)/([\d.]+)/([\d.]+)`)
	pingWinRe   = regexp.MustCompile(`Sent = (\d+), Received = (\d+)`)
	pingWinRTT  = regexp.MustCompile(`Minimum = (\d+)ms, Maximum = (\d+)ms, Average = (\d+)ms`)
	hopLineRe   = regexp.MustCompile(`^\s*(\d+)\s+(.*)$`)
	rttRe       = regexp.MustCompile(`([\d.]+)\s*ms`)
)

// PingStats is the distilled summary of a ping transcript.
type PingStats struct {
	PacketsSent     int     `json:"packets_sent"`
	PacketsReceived int     `json:"packets_received"`
	PacketLoss      float64 `json:"packet_loss_percent"`
	MinRTT          float64 `json:"min_rtt_ms"`
	AvgRTT          float64 `json:"avg_rtt_ms"`
	MaxRTT          float64 `json:"max_rtt_ms"`
}

// ParsePing extracts packet counts and RTT figures from Unix or Windows
// ping output.
func ParsePing(output string) PingStats {
	var s PingStats
	if m := pingStatsRe.FindStringSubmatch(output); m != nil {
		s.PacketsSent, _ = strconv.Atoi(m[1])
		s.PacketsReceived, _ = strconv.Atoi(m[2])
	} else if m := pingWinRe.FindStringSubmatch(output); m != nil {
		s.PacketsSent, _ = strconv.Atoi(m[1])
		s.PacketsReceived, _ = strconv.Atoi(m[2])
	}
	if s.PacketsSent > 0 {
		s.PacketLoss = float64(s.PacketsSent-s.PacketsReceived) / float64(s.PacketsSent) * 100
	}
	if m := pingRTTRe.FindStringSubmatch(output); m != nil {
		s.MinRTT, _ = strconv.ParseFloat(m[1], 64)
		s.AvgRTT, _ = strconv.ParseFloat(m[2], 64)
		s.MaxRTT, _ = strconv.ParseFloat(m[3], 64)
	} else if m := pingWinRTT.FindStringSubmatch(output); m != nil {
		s.MinRTT, _ = strconv.ParseFloat(m[1], 64)
		s.MaxRTT, _ = strconv.ParseFloat(m[2], 64)
		s.AvgRTT, _ = strconv.ParseFloat(m[3], 64)
	}
	return s
}

// Hop is one line of a traceroute transcript.
type Hop struct {
	Number  int      `json:"hop"`
	Address string   `json:"address,omitempty"`
	RTTs    []string `json:"rtts_ms,omitempty"`
	Timeout bool     `json:"timeout,omitempty"`
}

// ParseTraceroute extracts numbered hops from traceroute or tracert output.
// Lines that do not start with a hop number are skipped.
func ParseTraceroute(output string) []Hop {
	var hops []Hop
	for _, line := range strings.Split(output, "\n") {
		m := hopLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rest := m[2]
		hop := Hop{Number: n}
		if addr := ipv4Re.FindString(rest); addr != "" {
			hop.Address = addr
		}
		for _, rm := range rttRe.FindAllStringSubmatch(rest, -1) {
			hop.RTTs = append(hop.RTTs, rm[1])
		}
		if hop.Address == "" && strings.Contains(rest, "*") {
			hop.Timeout = true
		}
		hops = append(hops, hop)
	}
	return hops
}

// Interface is one network interface extracted from ip/ifconfig/ipconfig
// output.
type Interface struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses,omitempty"`
	MAC       string   `json:"mac,omitempty"`
	Up        bool     `json:"up"`
}

// ParseInterfaces walks `ip addr show` or `ifconfig` output and groups
// addresses under their interface.
func ParseInterfaces(output string) []Interface {
	var ifaces []Interface
	var cur *Interface
	flush := func() {
		if cur != nil {
			ifaces = append(ifaces, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			name := interfaceName(line)
			if name == "" {
				continue
			}
			flush()
			cur = &Interface{Name: name, Up: strings.Contains(line, "UP")}
			continue
		}
		if cur == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "inet ") || strings.HasPrefix(trimmed, "inet6 ") {
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 {
				addr := strings.SplitN(fields[1], "/", 2)[0]
				cur.Addresses = append(cur.Addresses, addr)
			}
		}
		if mac := macRe.FindString(trimmed); mac != "" && cur.MAC == "" {
			if strings.HasPrefix(trimmed, "ether ") || strings.HasPrefix(trimmed, "link/ether ") {
				cur.MAC = mac
			}
		}
	}
	flush()
	return ifaces
}

// interfaceName pulls the interface name off an `ip addr` ("2: eth0: ...")
// or ifconfig ("eth0: flags=...") header line.
func interfaceName(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	// ip addr prefixes headers with an index.
	if strings.HasSuffix(first, ":") {
		if _, err := strconv.Atoi(strings.TrimSuffix(first, ":")); err == nil && len(fields) > 1 {
			return strings.TrimSuffix(fields[1], ":")
		}
		return strings.TrimSuffix(first, ":")
	}
	return ""
}

// ParseARPEntry extracts the MAC address paired with ip from `arp` output.
// Returns "" when the table has no complete entry for the address.
func ParseARPEntry(output, ip string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, ip) {
			continue
		}
		if strings.Contains(line, "incomplete") || strings.Contains(line, "no entry") {
			continue
		}
		if mac := macRe.FindString(line); mac != "" {
			return strings.ToLower(strings.ReplaceAll(mac, "-", ":"))
		}
	}
	return ""
}

// ParseDefaultGateway extracts the default gateway address from the
// platform route command's output.
func ParseDefaultGateway(osTag, output string) string {
	switch osTag {
	case OSDarwin:
		for _, line := range strings.Split(output, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "gateway:") {
				return strings.TrimSpace(strings.TrimPrefix(trimmed, "gateway:"))
			}
		}
	case OSWindows:
		for _, line := range strings.Split(output, "\n") {
			fields := strings.Fields(line)
			if len(fields) >= 3 && fields[0] == "0.0.0.0" && fields[1] == "0.0.0.0" {
				return fields[2]
			}
		}
	default:
		for _, line := range strings.Split(output, "\n") {
			fields := strings.Fields(line)
			for i, f := range fields {
				if f == "via" && i+1 < len(fields) {
					return fields[i+1]
				}
			}
		}
	}
	return ""
}

// ParseDNSAnswers extracts the IPv4 answers from dig +short or nslookup
// output. Non-address lines (CNAME targets, banners, server lines) are
// discarded; nslookup's own server address is excluded by skipping
// everything before the first blank-line separator when one exists.
func ParseDNSAnswers(output string) []string {
	body := output
	if idx := strings.Index(output, "\n\n"); idx >= 0 {
		body = output[idx:]
	}
	seen := make(map[string]bool)
	var addrs []string
	for _, line := range strings.Split(body, "\n") {
		// nslookup labels its answers; dig +short emits bare values.
		candidate := line
		if strings.Contains(line, "Address:") {
			candidate = strings.SplitN(line, "Address:", 2)[1]
		}
		ip := ipv4Re.FindString(candidate)
		if ip == "" || !validIPv4(ip) || seen[ip] {
			continue
		}
		seen[ip] = true
		addrs = append(addrs, ip)
	}
	return addrs
}

func validIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// ManufEntry is one prefix line from a Wireshark manufacturer database.
type ManufEntry struct {
	Prefix    string
	PrefixLen int
	Vendor    string
}

// ParseManufLine parses one line of the manuf file format:
// "00:00:0C<tab>Cisco<tab>Cisco Systems, Inc". Prefixes may carry a /28
// or /36 mask. Comment and malformed lines return ok=false.
func ParseManufLine(line string) (ManufEntry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ManufEntry{}, false
	}
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		fields = strings.Fields(line)
		if len(fields) < 2 {
			return ManufEntry{}, false
		}
	}
	prefix := fields[0]
	bits := 24
	if idx := strings.Index(prefix, "/"); idx >= 0 {
		n, err := strconv.Atoi(prefix[idx+1:])
		if err != nil {
			return ManufEntry{}, false
		}
		bits = n
		prefix = prefix[:idx]
	}
	hex := strings.ToUpper(strings.NewReplacer(":", "", "-", "", ".", "").Replace(prefix))
	nibbles := bits / 4
	if len(hex) < nibbles {
		return ManufEntry{}, false
	}
	vendor := strings.TrimSpace(fields[len(fields)-1])
	if len(fields) >= 3 && strings.TrimSpace(fields[2]) != "" {
		vendor = strings.TrimSpace(fields[2])
	} else if strings.TrimSpace(fields[1]) != "" {
		vendor = strings.TrimSpace(fields[1])
	}
	return ManufEntry{Prefix: hex[:nibbles], PrefixLen: nibbles, Vendor: vendor}, true
}
