// Package pentest wraps an external scanner binary with fixed, safe
// profiles. The tools are only registered when the binary is installed.
package pentest

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/tools"
)

const scannerBinary = "nmap"

// profiles maps profile names to scanner arguments and timeout keys.
var profiles = map[string]struct {
	args       []string
	timeoutKey string
	privileged bool
}{
	"basic":           {[]string{"-sT", "--top-ports", "100"}, "nmap_basic", false},
	"quick":           {[]string{"-sT", "-T4", "--top-ports", "20"}, "nmap_basic", false},
	"service-version": {[]string{"-sT", "-sV", "--top-ports", "100"}, "nmap_service", false},
	"os-detection":    {[]string{"-O"}, "nmap_os", true},
	"comprehensive":   {[]string{"-sT", "-sV", "-O", "--top-ports", "1000"}, "comprehensive_scan", true},
}

var profileNames = []any{"basic", "quick", "service-version", "os-detection", "comprehensive"}

// ValidTarget accepts hostnames, IPv4 addresses, and CIDR networks.
// Shell metacharacters are rejected outright; the target is passed as a
// single argv element but defense in depth costs nothing here.
func ValidTarget(target string) bool {
	if target == "" || len(target) > 253 {
		return false
	}
	if strings.ContainsAny(target, " ;|&$`<>(){}'\"\\\n\t") {
		return false
	}
	if _, _, err := net.ParseCIDR(target); err == nil {
		return true
	}
	if net.ParseIP(target) != nil {
		return true
	}
	return hostnameRe.MatchString(target)
}

var hostnameRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9.-]*[a-zA-Z0-9])?$`)

var portLineRe = regexp.MustCompile(`^(\d+)/(tcp|udp)\s+(\S+)\s+(\S+)(?:\s+(.*))?$`)

// ParseScanOutput extracts per-host port listings from the scanner's
// normal output. Unparseable sections are simply skipped; the raw text
// stays in stdout.
func ParseScanOutput(output string) []map[string]any {
	var hosts []map[string]any
	var current map[string]any
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Nmap scan report for ") {
			if current != nil {
				hosts = append(hosts, current)
			}
			current = map[string]any{
				"host":  strings.TrimPrefix(line, "Nmap scan report for "),
				"ports": []map[string]any{},
			}
			continue
		}
		if current == nil {
			continue
		}
		if m := portLineRe.FindStringSubmatch(line); m != nil {
			port, _ := strconv.Atoi(m[1])
			entry := map[string]any{
				"port":     port,
				"protocol": m[2],
				"state":    m[3],
				"service":  m[4],
			}
			if m[5] != "" {
				entry["version"] = strings.TrimSpace(m[5])
			}
			current["ports"] = append(current["ports"].([]map[string]any), entry)
		}
	}
	if current != nil {
		hosts = append(hosts, current)
	}
	return hosts
}

// runProfile executes one scanner profile against a target.
func runProfile(ctx context.Context, profile, target string) *envelope.Result {
	spec, ok := profiles[profile]
	if !ok {
		return envelope.New("nmap_scan").FailureMessage(envelope.CodeInvalidFormat,
			fmt.Sprintf("unknown scan profile %q", profile))
	}
	toolName := "nmap_" + strings.ReplaceAll(profile, "-", "_")
	b := envelope.New(toolName).
		Target(target).
		Options(map[string]any{"profile": profile})
	if !ValidTarget(target) {
		return b.Failure(envelope.CodeInvalidTarget, map[string]any{"target": target})
	}

	argv := append([]string{scannerBinary}, spec.args...)
	argv = append(argv, target)
	b.Command(strings.Join(argv, " "))

	out, err := probe.Run(ctx, envelope.Timeout(spec.timeoutKey), 500, argv...)
	b.Output(out.Stdout, out.Stderr)
	if err != nil {
		if out.TimedOut {
			return b.Failure(envelope.CodeTimeout, map[string]any{
				"target":  target,
				"timeout": envelope.TimeoutSeconds(spec.timeoutKey),
			})
		}
		return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
	}
	if out.ExitCode != 0 {
		combined := out.Stdout + out.Stderr
		if spec.privileged && (strings.Contains(combined, "requires root") ||
			strings.Contains(combined, "Permission denied") ||
			strings.Contains(combined, "requires privileged access")) {
			return b.ExitCode(out.ExitCode).Failure(envelope.CodePermissionDenied,
				map[string]any{"operation": profile + " scan"})
		}
		return b.ExitCode(out.ExitCode).Failure(envelope.CodeCommandFailed,
			map[string]any{"command": strings.Join(argv, " ")})
	}

	parsed := map[string]any{"profile": profile}
	if hosts := ParseScanOutput(out.Stdout); len(hosts) > 0 {
		parsed["hosts"] = hosts
		parsed["host_count"] = len(hosts)
	}
	return b.Success(parsed)
}

func profileHandler(profile string) tools.Handler {
	return func(ctx context.Context, args map[string]any) *envelope.Result {
		target := tools.StringArg(args, "target", "")
		if target == "" {
			toolName := "nmap_" + strings.ReplaceAll(profile, "-", "_")
			return envelope.New(toolName).Failure(envelope.CodeMissingParameter,
				map[string]any{"parameter": "target", "tool": toolName})
		}
		return runProfile(ctx, profile, target)
	}
}

// ScanHandler dispatches on a profile parameter instead of a fixed one.
func ScanHandler(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	profile := tools.StringArg(args, "profile", "basic")
	if target == "" {
		return envelope.New("nmap_scan").Failure(envelope.CodeMissingParameter,
			map[string]any{"parameter": "target", "tool": "nmap_scan"})
	}
	return runProfile(ctx, profile, target)
}

// Register adds the scanner wrappers, but only when the binary is
// installed. An absent scanner means no entries at all rather than
// permanently failing tools.
func Register(r *tools.Registry) {
	if !r.Binaries().Available(scannerBinary) {
		return
	}
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "nmap_scan",
			Description: "Run a scanner profile against a host or CIDR network",
			Category:    "pentesting",
			Binaries:    []string{scannerBinary},
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Host, IP, or CIDR", Required: true},
				{Name: "profile", Type: tools.TypeString, Description: "Scan profile", Default: "basic", Choices: profileNames},
			},
			Examples: []string{`nmap_scan {"target": "192.168.1.0/24", "profile": "quick"}`},
		},
		Run: ScanHandler,
	})
	for _, profile := range []string{"basic", "quick", "service-version", "os-detection", "comprehensive"} {
		name := "nmap_" + strings.ReplaceAll(profile, "-", "_")
		r.Register(&tools.Tool{
			Meta: tools.Metadata{
				Name:        name,
				Description: fmt.Sprintf("Run the %s scan profile", profile),
				Category:    "pentesting",
				Binaries:    []string{scannerBinary},
				Parameters: []tools.ParameterInfo{
					{Name: "target", Type: tools.TypeString, Description: "Host, IP, or CIDR", Required: true},
				},
				PrivilegeRequired: profiles[profile].privileged,
			},
			Run: profileHandler(profile),
		})
	}
}
