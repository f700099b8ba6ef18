// Package whoischeck probes WHOIS registry servers and performs raw
// port-43 lookups.
package whoischeck

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/tools"
)

const whoisPort = 43

// whoisServers is the fixed registry set probed for reachability.
var whoisServers = map[string]string{
	"Verisign (com/net)": "whois.verisign-grs.com",
	"ARIN":               "whois.arin.net",
	"RIPE":               "whois.ripe.net",
	"APNIC":              "whois.apnic.net",
	"LACNIC":             "whois.lacnic.net",
	"AFRINIC":            "whois.afrinic.net",
	"IANA":               "whois.iana.org",
	"PIR (org)":          "whois.pir.org",
}

// tldServers routes lookups for a few common TLDs; everything else goes
// through IANA.
var tldServers = map[string]string{
	"com": "whois.verisign-grs.com",
	"net": "whois.verisign-grs.com",
	"org": "whois.pir.org",
	"io":  "whois.nic.io",
	"dev": "whois.nic.google",
}

// ServerFor picks the WHOIS server for a domain by its TLD.
func ServerFor(domain string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSuffix(domain, ".")), ".")
	if len(parts) >= 2 {
		if server, ok := tldServers[parts[len(parts)-1]]; ok {
			return server
		}
	}
	return "whois.iana.org"
}

// CheckWHOISServers TCP-probes port 43 on each registry server, retrying
// once on failure.
func CheckWHOISServers(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_whois_servers").
		Command(fmt.Sprintf("tcp probes of whois port %d", whoisPort))

	names := make([]string, 0, len(whoisServers))
	for name := range whoisServers {
		names = append(names, name)
	}
	sort.Strings(names)

	reachableRows := []map[string]any{}
	unreachableRows := []map[string]any{}
	for _, name := range names {
		host := whoisServers[name]
		res := probe.TCPConnect(ctx, host, whoisPort, envelope.Timeout("whois"))
		if !res.Connected {
			// One retry; registry servers rate-limit aggressively.
			res = probe.TCPConnect(ctx, host, whoisPort, envelope.Timeout("whois"))
		}
		if res.Connected {
			reachableRows = append(reachableRows, map[string]any{
				"registry":        name,
				"host":            host,
				"connect_time_ms": float64(res.ConnectTime.Microseconds()) / 1000,
			})
			continue
		}
		unreachableRows = append(unreachableRows, map[string]any{
			"registry":      name,
			"host":          host,
			"error_type":    string(res.ErrorCode.Category()),
			"error_message": res.ErrorDetail,
		})
	}

	if len(reachableRows) == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "whois servers"})
	}
	return b.Success(map[string]any{
		"reachable_servers":   reachableRows,
		"unreachable_servers": unreachableRows,
		"reachable":           len(reachableRows),
		"total":               len(names),
	})
}

// rawQuery speaks the WHOIS protocol: send the query line, read until
// EOF or deadline.
func rawQuery(ctx context.Context, server, query string, timeout time.Duration) (string, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(server, fmt.Sprintf("%d", whoisPort)))
	if err != nil {
		return "", err
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	if _, err := fmt.Fprintf(conn, "%s\r\n", query); err != nil {
		return "", err
	}
	var sb strings.Builder
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// WHOISLookup performs a raw port-43 lookup for a domain.
func WHOISLookup(ctx context.Context, args map[string]any) *envelope.Result {
	domain := tools.StringArg(args, "target", "")
	b := envelope.New("whois_lookup").Target(domain)
	if domain == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "whois_lookup"})
	}

	server := tools.StringArg(args, "server", ServerFor(domain))
	b.Command(fmt.Sprintf("whois query %s via %s:%d", domain, server, whoisPort)).
		Options(map[string]any{"server": server})

	text, err := rawQuery(ctx, server, domain, envelope.Timeout("whois"))
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	b.Output(text, "")
	return b.Success(map[string]any{
		"server":       server,
		"response_len": len(text),
		"fields":       summarizeWHOIS(text),
	})
}

// summarizeWHOIS extracts a few well-known keys from a WHOIS response.
func summarizeWHOIS(text string) map[string]string {
	wanted := map[string]string{
		"registrar":     "",
		"creation date": "",
		"expiry date":   "",
		"name server":   "",
	}
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		if value == "" {
			continue
		}
		for want := range wanted {
			if strings.Contains(key, want) {
				if _, seen := out[want]; !seen {
					out[want] = value
				}
			}
		}
	}
	return out
}
