// Package connectivity implements the reachability probes: ping,
// traceroute, TCP port checks, local network scanning, and the composite
// internet connectivity check.
package connectivity

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/haasonsaas/netprobe/internal/batch"
	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/tools"
)

// PingHost sends N ICMP echoes via the platform ping binary and parses
// the summary statistics.
func PingHost(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	count := tools.IntArg(args, "count", 4)
	b := envelope.New("ping_host").Target(target).Options(map[string]any{"count": count})
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "ping_host"})
	}
	if count < 1 || count > 100 {
		return b.FailureMessage(envelope.CodeInvalidFormat, fmt.Sprintf("count must be 1..100, got %d", count))
	}

	perPacket := int(envelope.Timeout("ping").Seconds())
	argv := probe.PingCommand(probe.CurrentOS(), target, count, perPacket)
	b.Command(strings.Join(argv, " "))

	total := envelope.Timeout("ping") * time.Duration(count+1)
	out, err := probe.Run(ctx, total, 0, argv...)
	b.Output(out.Stdout, out.Stderr)
	if err != nil {
		if out.TimedOut {
			return b.Failure(envelope.CodeTimeout, map[string]any{"target": target, "timeout": fmt.Sprintf("%.0f", total.Seconds())})
		}
		return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
	}

	stats := probe.ParsePing(out.Stdout)
	if out.ExitCode != 0 && stats.PacketsReceived == 0 {
		if strings.Contains(out.Stdout+out.Stderr, "unknown host") ||
			strings.Contains(out.Stdout+out.Stderr, "not known") {
			return b.ExitCode(out.ExitCode).Failure(envelope.CodeDNSResolution, map[string]any{"target": target})
		}
		return b.ExitCode(out.ExitCode).Failure(envelope.CodeUnreachable, map[string]any{"target": target})
	}
	return b.Success(map[string]any{
		"packets_sent":        stats.PacketsSent,
		"packets_received":    stats.PacketsReceived,
		"packet_loss_percent": stats.PacketLoss,
		"min_rtt_ms":          stats.MinRTT,
		"avg_rtt_ms":          stats.AvgRTT,
		"max_rtt_ms":          stats.MaxRTT,
	})
}

// TracerouteHost maps the path to a target.
func TracerouteHost(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	maxHops := tools.IntArg(args, "max_hops", 30)
	b := envelope.New("traceroute_host").Target(target).Options(map[string]any{"max_hops": maxHops})
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "traceroute_host"})
	}

	argv := probe.TracerouteCommand(probe.CurrentOS(), target, maxHops)
	b.Command(strings.Join(argv, " "))

	out, err := probe.Run(ctx, envelope.Timeout("traceroute"), 0, argv...)
	b.Output(out.Stdout, out.Stderr)
	if err != nil {
		if out.TimedOut {
			return b.Failure(envelope.CodeTimeout, map[string]any{"target": target, "timeout": envelope.TimeoutSeconds("traceroute")})
		}
		return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
	}

	hops := probe.ParseTraceroute(out.Stdout)
	hopList := make([]map[string]any, 0, len(hops))
	for _, h := range hops {
		hopList = append(hopList, map[string]any{
			"hop":     h.Number,
			"address": h.Address,
			"rtts_ms": h.RTTs,
			"timeout": h.Timeout,
		})
	}
	return b.Success(map[string]any{
		"hops":      hopList,
		"hop_count": len(hopList),
	})
}

// TestPortConnectivity opens a TCP connection to (target, port).
func TestPortConnectivity(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	port := tools.IntArg(args, "port", 0)
	b := envelope.New("test_port_connectivity").
		Target(target).
		Options(map[string]any{"port": port}).
		Command(fmt.Sprintf("tcp connect %s:%d", target, port))
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "test_port_connectivity"})
	}
	if port < 1 || port > 65535 {
		return b.Failure(envelope.CodeInvalidPort, map[string]any{"port": port})
	}

	res := probe.TCPConnect(ctx, target, port, envelope.Timeout("port_scan"))
	if !res.Connected {
		out := b.Failure(res.ErrorCode, map[string]any{"target": fmt.Sprintf("%s:%d", target, port), "timeout": envelope.TimeoutSeconds("port_scan")})
		// A refused or unanswered connect cannot distinguish a closed port
		// from a filtering firewall.
		out.ParsedData = map[string]any{
			"port":   port,
			"open":   false,
			"status": "closed/filtered",
		}
		return out
	}
	return b.Success(map[string]any{
		"port":            port,
		"open":            true,
		"connect_time_ms": float64(res.ConnectTime.Microseconds()) / 1000,
	})
}

// SampleHosts picks the sparse host sample probed by scan_local_network:
// the gateway-likely low addresses, a mid-range slice, and the top of the
// /24. Scanning 254 hosts serially would blow the probe budget.
var sampleOffsets = []int{1, 2, 3, 4, 5, 10, 20, 50, 100, 150, 200, 254}

// SampleHosts derives the probe targets for a /24 derived from localIP.
func SampleHosts(localIP string) ([]string, error) {
	parsed := net.ParseIP(localIP)
	if parsed == nil || parsed.To4() == nil {
		return nil, fmt.Errorf("invalid IPv4 address %q", localIP)
	}
	v4 := parsed.To4()
	base := fmt.Sprintf("%d.%d.%d.", v4[0], v4[1], v4[2])
	hosts := make([]string, 0, len(sampleOffsets))
	for _, off := range sampleOffsets {
		hosts = append(hosts, fmt.Sprintf("%s%d", base, off))
	}
	return hosts, nil
}

// ScanLocalNetwork probes a sparse sample of the local /24 with bounded
// concurrency and reports which hosts answered.
func ScanLocalNetwork(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("scan_local_network").Command("tcp sample of local /24")
	local, err := probe.LocalIP()
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	hosts, err := SampleHosts(local)
	if err != nil {
		return b.FailureMessage(envelope.CodeInvalidFormat, err.Error())
	}
	b.Target(local)

	scan := func(ctx context.Context, host string) *envelope.Result {
		hb := envelope.New("scan_local_network").Target(host)
		for _, port := range []int{80, 443, 22} {
			res := probe.TCPConnect(ctx, host, port, 1*time.Second)
			if res.Connected {
				return hb.Success(map[string]any{"host": host, "port": port})
			}
		}
		return hb.Failure(envelope.CodeUnreachable, map[string]any{"target": host})
	}

	outcomes, summary := batch.Run(ctx, hosts, scan, batch.Options{
		Workers:          8,
		PerTargetTimeout: 5 * time.Second,
	})

	reachableHosts, unreachableHosts := batch.Split(outcomes)
	return b.Success(map[string]any{
		"network":           local,
		"sampled_hosts":     len(hosts),
		"reachable_hosts":   reachableHosts,
		"unreachable_hosts": unreachableHosts,
		"alive_count":       len(reachableHosts),
		"summary": map[string]any{
			"total":        summary.Total,
			"succeeded":    summary.Succeeded,
			"failed":       summary.Failed,
			"success_rate": summary.SuccessRate,
			"status":       summary.Status,
		},
	})
}

// ParseNetworkQuality extracts the summary metrics from networkQuality
// output. Lines it does not recognize are ignored.
func ParseNetworkQuality(output string) map[string]string {
	metrics := map[string]string{}
	labels := map[string]string{
		"Uplink capacity":         "uplink_capacity",
		"Downlink capacity":       "downlink_capacity",
		"Uplink Responsiveness":   "uplink_responsiveness",
		"Downlink Responsiveness": "downlink_responsiveness",
		"Idle Latency":            "idle_latency",
	}
	for _, line := range strings.Split(output, "\n") {
		for label, key := range labels {
			if strings.Contains(line, label) {
				if _, value, ok := strings.Cut(line, ": "); ok {
					metrics[key] = strings.TrimSpace(value)
				}
			}
		}
	}
	return metrics
}

// RunSpeedTest measures link capacity and responsiveness via the
// networkQuality binary, which ships with macOS 12 and later.
func RunSpeedTest(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("run_speed_test").Command("networkQuality -p -s")
	if probe.CurrentOS() != "darwin" {
		return b.Failure(envelope.CodeInvalidPlatform, map[string]any{
			"tool":     "run_speed_test",
			"platform": probe.CurrentOS(),
		})
	}

	out, err := probe.Run(ctx, envelope.Timeout("speed_test"), 0, "networkQuality", "-p", "-s")
	b.Output(out.Stdout, out.Stderr)
	if err != nil {
		if out.TimedOut {
			return b.Failure(envelope.CodeTimeout, map[string]any{
				"target":  "speed test",
				"timeout": envelope.TimeoutSeconds("speed_test"),
			})
		}
		return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
	}
	if out.ExitCode != 0 {
		return b.ExitCode(out.ExitCode).Failure(envelope.CodeCommandFailed,
			map[string]any{"command": "networkQuality -p -s"})
	}

	metrics := ParseNetworkQuality(out.Stdout)
	if len(metrics) == 0 {
		return b.FailureMessage(envelope.CodeParsingError, "no metrics found in networkQuality output")
	}
	parsed := make(map[string]any, len(metrics))
	for k, v := range metrics {
		parsed[k] = v
	}
	return b.Success(parsed)
}

// internetCheckTargets are well-known anycast addresses probed by the
// composite connectivity check.
var internetCheckTargets = []struct {
	Host string
	Port int
}{
	{"8.8.8.8", 53},
	{"1.1.1.1", 53},
	{"9.9.9.9", 53},
}

// CheckInternetConnection probes well-known anycast resolvers and a DNS
// lookup to classify overall connectivity.
func CheckInternetConnection(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_internet_connection").Command("tcp probes of anycast resolvers")

	reachable := 0
	details := make([]map[string]any, 0, len(internetCheckTargets))
	for _, t := range internetCheckTargets {
		res := probe.TCPConnect(ctx, t.Host, t.Port, 3*time.Second)
		details = append(details, map[string]any{
			"host":      t.Host,
			"port":      t.Port,
			"reachable": res.Connected,
		})
		if res.Connected {
			reachable++
		}
	}

	dnsOK := false
	resolveCtx, cancel := context.WithTimeout(ctx, envelope.Timeout("dns_query"))
	if addrs, err := net.DefaultResolver.LookupHost(resolveCtx, "example.com"); err == nil && len(addrs) > 0 {
		dnsOK = true
	}
	cancel()

	if reachable == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "internet"})
	}
	status := "online"
	if !dnsOK {
		status = "degraded"
	}
	return b.Success(map[string]any{
		"status":        status,
		"dns_working":   dnsOK,
		"targets":       details,
		"reachable":     reachable,
		"total_targets": len(internetCheckTargets),
	})
}
