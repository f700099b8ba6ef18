// Package dnscheck implements the DNS probes: resolution, resolver
// comparison, reverse lookup, propagation checking, and root-server
// reachability.
package dnscheck

import (
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

// recordTypes the resolve probe accepts.
var recordTypes = []any{"A", "AAAA", "MX", "TXT", "NS", "CNAME", "SOA"}

// publicResolvers is the fixed resolver set used for comparison and
// propagation checks.
var publicResolvers = []struct {
	Name string
	IP   string
}{
	{"Google", "8.8.8.8"},
	{"Cloudflare", "1.1.1.1"},
	{"Quad9", "9.9.9.9"},
	{"OpenDNS", "208.67.222.222"},
	{"AdGuard", "94.140.14.14"},
}

// canaryName is the stable name used to measure resolver health.
const canaryName = "example.com"

// rootServers: the thirteen root name servers.
var rootServers = map[string]string{
	"a.root-servers.net": "198.41.0.4",
	"b.root-servers.net": "170.247.170.2",
	"c.root-servers.net": "192.33.4.12",
	"d.root-servers.net": "199.7.91.13",
	"e.root-servers.net": "192.203.230.10",
	"f.root-servers.net": "192.5.5.241",
	"g.root-servers.net": "192.112.36.4",
	"h.root-servers.net": "198.97.190.53",
	"i.root-servers.net": "192.36.148.17",
	"j.root-servers.net": "192.58.128.30",
	"k.root-servers.net": "193.0.14.129",
	"l.root-servers.net": "199.7.83.42",
	"m.root-servers.net": "202.12.27.33",
}

// ResolveHostname resolves a name. A records go through the system
// resolver; other record types shell out to dig or nslookup and extract
// answers from the output.
func ResolveHostname(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	recordType := strings.ToUpper(tools.StringArg(args, "record_type", "A"))
	b := envelope.New("resolve_hostname").
		Target(target).
		Options(map[string]any{"record_type": recordType})
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "resolve_hostname"})
	}

	if recordType == "A" {
		b.Command(fmt.Sprintf("system resolver lookup %s", target))
		lookupCtx, cancel := context.WithTimeout(ctx, envelope.Timeout("dns_query"))
		defer cancel()
		addrs, err := net.DefaultResolver.LookupHost(lookupCtx, target)
		if err != nil {
			code, detail := probe.ClassifyNetError(err)
			return b.FailureMessage(code, detail)
		}
		var v4 []string
		for _, a := range addrs {
			if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
				v4 = append(v4, a)
			}
		}
		return b.Success(map[string]any{
			"record_type": "A",
			"addresses":   v4,
			"count":       len(v4),
		})
	}

	argv := probe.DNSLookupCommand(probe.CurrentOS(), target, recordType)
	b.Command(strings.Join(argv, " "))
	out, err := probe.Run(ctx, envelope.Timeout("dns_query"), 0, argv...)
	b.Output(out.Stdout, out.Stderr)
	if err != nil {
		if out.TimedOut {
			return b.Failure(envelope.CodeTimeout, map[string]any{"target": target, "timeout": envelope.TimeoutSeconds("dns_query")})
		}
		return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
	}

	answers := extractAnswers(out.Stdout, recordType)
	if len(answers) == 0 {
		return b.Failure(envelope.CodeDNSResolution, map[string]any{"target": target})
	}
	return b.Success(map[string]any{
		"record_type": recordType,
		"answers":     answers,
		"count":       len(answers),
	})
}

// extractAnswers pulls record values out of dig +short or nslookup
// output. Address types use the strict IPv4 extractor; text types keep
// non-empty lines.
func extractAnswers(output, recordType string) []string {
	switch recordType {
	case "A":
		return probe.ParseDNSAnswers(output)
	default:
		var answers []string
		for _, line := range strings.Split(output, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, ";") {
				continue
			}
			// Skip nslookup preamble.
			if strings.HasPrefix(line, "Server:") || strings.HasPrefix(line, "Address:") {
				continue
			}
			answers = append(answers, line)
		}
		return answers
	}
}

// resolverAt builds a resolver pinned to one server address.
func resolverAt(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: envelope.Timeout("dns_query")}
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
}

// queryServer resolves name against one server, timing the round trip.
func queryServer(ctx context.Context, server, name string) (addrs []string, elapsed time.Duration, err error) {
	lookupCtx, cancel := context.WithTimeout(ctx, envelope.Timeout("dns_query"))
	defer cancel()
	start := time.Now()
	addrs, err = resolverAt(server).LookupHost(lookupCtx, name)
	return addrs, time.Since(start), err
}

// TestDNSServers queries each resolver in the comparison set (or a
// caller-supplied list) against the canary name and ranks by latency.
func TestDNSServers(ctx context.Context, args map[string]any) *envelope.Result {
	servers := tools.StringListArg(args, "servers")
	if len(servers) == 0 {
		for _, r := range publicResolvers {
			servers = append(servers, r.IP)
		}
	}
	b := envelope.New("test_dns_servers").
		Command("resolver comparison against " + canaryName).
		Options(map[string]any{"servers": servers})

	type serverResult struct {
		server  string
		addrs   []string
		elapsed time.Duration
		err     error
	}
	results := make([]serverResult, len(servers))
	for i, server := range servers {
		addrs, elapsed, err := queryServer(ctx, server, canaryName)
		results[i] = serverResult{server, addrs, elapsed, err}
	}

	workingRows := []map[string]any{}
	failedRows := []map[string]any{}
	fastest := ""
	fastestTime := time.Duration(-1)
	for _, r := range results {
		if r.err == nil {
			workingRows = append(workingRows, map[string]any{
				"server":           r.server,
				"response_time_ms": float64(r.elapsed.Microseconds()) / 1000,
				"resolved":         r.addrs,
			})
			if fastestTime < 0 || r.elapsed < fastestTime {
				fastest, fastestTime = r.server, r.elapsed
			}
			continue
		}
		code, detail := probe.ClassifyNetError(r.err)
		failedRows = append(failedRows, map[string]any{
			"server":        r.server,
			"error_type":    string(code.Category()),
			"error_message": detail,
		})
	}
	if len(workingRows) == 0 {
		return b.Failure(envelope.CodeDNSResolution, map[string]any{"target": canaryName})
	}
	return b.Success(map[string]any{
		"working_servers": workingRows,
		"failed_servers":  failedRows,
		"fastest":         fastest,
		"working":         len(workingRows),
		"total":           len(servers),
	})
}

// ReverseDNSLookup maps an IP back to hostnames.
func ReverseDNSLookup(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	b := envelope.New("reverse_dns_lookup").
		Target(target).
		Command(fmt.Sprintf("ptr lookup %s", target))
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "reverse_dns_lookup"})
	}
	if net.ParseIP(target) == nil {
		return b.Failure(envelope.CodeInvalidTarget, map[string]any{"target": target})
	}

	lookupCtx, cancel := context.WithTimeout(ctx, envelope.Timeout("dns_query"))
	defer cancel()
	names, err := net.DefaultResolver.LookupAddr(lookupCtx, target)
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	return b.Success(map[string]any{
		"hostnames": names,
		"count":     len(names),
	})
}

// GroupAnswers buckets per-resolver answer sets for propagation analysis.
// Each answer set is normalized (sorted, joined) so resolvers returning
// the same records in different order land in one group.
func GroupAnswers(perServer map[string][]string) map[string][]string {
	groups := make(map[string][]string)
	for server, addrs := range perServer {
		key := "(no answer)"
		if len(addrs) > 0 {
			sorted := append([]string(nil), addrs...)
			sort.Strings(sorted)
			key = strings.Join(sorted, ",")
		}
		groups[key] = append(groups[key], server)
	}
	for _, servers := range groups {
		sort.Strings(servers)
	}
	return groups
}

// CheckDNSPropagation issues the same query against the public resolver
// set and groups resolvers by the answer they returned. Propagation is
// complete iff every resolver agrees on a single answer set.
func CheckDNSPropagation(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	b := envelope.New("check_dns_propagation").
		Target(target).
		Command("multi-resolver comparison")
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "check_dns_propagation"})
	}

	perServer := make(map[string][]string, len(publicResolvers))
	for _, r := range publicResolvers {
		addrs, _, err := queryServer(ctx, r.IP, target)
		if err != nil {
			perServer[r.Name] = nil
			continue
		}
		perServer[r.Name] = addrs
	}

	groups := GroupAnswers(perServer)
	answerGroups := 0
	for key := range groups {
		if key != "(no answer)" {
			answerGroups++
		}
	}
	if answerGroups == 0 {
		return b.Failure(envelope.CodeDNSResolution, map[string]any{"target": target})
	}
	return b.Success(map[string]any{
		"groups":               groups,
		"answer_groups":        answerGroups,
		"propagation_complete": answerGroups == 1 && len(groups) == 1,
	})
}

// CheckDNSResolvers TCP-probes port 53 on the well-known public
// resolvers and reports reachability per resolver.
func CheckDNSResolvers(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_dns_resolvers").Command("tcp probes of public resolvers")

	reachableRows := []map[string]any{}
	unreachableRows := []map[string]any{}
	for _, r := range publicResolvers {
		res := probe.TCPConnect(ctx, r.IP, 53, 2*time.Second)
		if res.Connected {
			reachableRows = append(reachableRows, map[string]any{
				"resolver":        r.Name,
				"ip":              r.IP,
				"connect_time_ms": float64(res.ConnectTime.Microseconds()) / 1000,
			})
			continue
		}
		unreachableRows = append(unreachableRows, map[string]any{
			"resolver":      r.Name,
			"ip":            r.IP,
			"error_type":    string(res.ErrorCode.Category()),
			"error_message": res.ErrorDetail,
		})
	}
	if len(reachableRows) == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "dns resolvers"})
	}
	return b.Success(map[string]any{
		"reachable_resolvers":   reachableRows,
		"unreachable_resolvers": unreachableRows,
		"reachable":             len(reachableRows),
		"total":                 len(publicResolvers),
	})
}

// CheckDNSRootServers TCP-probes port 53 on every root server.
func CheckDNSRootServers(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_dns_root_servers").Command("tcp probes of the root servers")

	names := make([]string, 0, len(rootServers))
	for name := range rootServers {
		names = append(names, name)
	}
	sort.Strings(names)

	reachableRows := []map[string]any{}
	unreachableRows := []map[string]any{}
	for _, name := range names {
		res := probe.TCPConnect(ctx, rootServers[name], 53, 5*time.Second)
		if res.Connected {
			reachableRows = append(reachableRows, map[string]any{
				"server":          name,
				"ip":              rootServers[name],
				"connect_time_ms": float64(res.ConnectTime.Microseconds()) / 1000,
			})
			continue
		}
		unreachableRows = append(unreachableRows, map[string]any{
			"server":        name,
			"ip":            rootServers[name],
			"error_type":    string(res.ErrorCode.Category()),
			"error_message": res.ErrorDetail,
		})
	}
	if len(reachableRows) == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "root servers"})
	}
	return b.Success(map[string]any{
		"reachable_servers":   reachableRows,
		"unreachable_servers": unreachableRows,
		"reachable":           len(reachableRows),
		"total":               len(names),
	})
}
