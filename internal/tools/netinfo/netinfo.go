// Package netinfo implements the link and host level probes: local
// addressing, interfaces, gateway, DNS configuration, external IP
// discovery, NAT classification, change tracking, and IP reputation.
package netinfo

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"runtime"
	"strings"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
)

// LocalIP reports the primary outbound IPv4 address.
func LocalIP(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("get_local_ip").Command("udp connect 8.8.8.8:80")
	ip, err := probe.LocalIP()
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	return b.Target(ip).Success(map[string]any{"local_ip": ip})
}

// SystemInfo reports host identity basics.
func SystemInfo(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("get_system_info").Command("runtime inspection")
	hostname, _ := os.Hostname()
	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	return b.Success(map[string]any{
		"hostname":     hostname,
		"os":           runtime.GOOS,
		"architecture": runtime.GOARCH,
		"user":         username,
		"go_version":   runtime.Version(),
	})
}

// InterfaceStatus enumerates interfaces, optionally filtered to one name.
func InterfaceStatus(ctx context.Context, args map[string]any) *envelope.Result {
	name := stringArg(args, "interface")
	b := envelope.New("check_interface_status").Command("interface enumeration")
	if name != "" {
		b.Target(name)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
	}

	var listed []map[string]any
	for _, iface := range ifaces {
		if name != "" && iface.Name != name {
			continue
		}
		entry := map[string]any{
			"name": iface.Name,
			"mac":  iface.HardwareAddr.String(),
			"up":   iface.Flags&net.FlagUp != 0,
			"mtu":  iface.MTU,
		}
		var addrs []string
		if ifAddrs, err := iface.Addrs(); err == nil {
			for _, a := range ifAddrs {
				addrs = append(addrs, a.String())
			}
		}
		entry["addresses"] = addrs
		listed = append(listed, entry)
	}
	if name != "" && len(listed) == 0 {
		return b.Failure(envelope.CodeInvalidTarget, map[string]any{"target": name})
	}
	return b.Success(map[string]any{"interfaces": listed, "count": len(listed)})
}

// InterfaceMAC reports the hardware address of a named interface, or the
// first non-loopback interface when none is named.
func InterfaceMAC(ctx context.Context, args map[string]any) *envelope.Result {
	name := stringArg(args, "interface")
	b := envelope.New("get_interface_mac_address").Command("interface enumeration")
	ifaces, err := net.Interfaces()
	if err != nil {
		return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
	}
	for _, iface := range ifaces {
		if name != "" {
			if iface.Name != name {
				continue
			}
		} else if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return b.Target(iface.Name).Success(map[string]any{
			"interface": iface.Name,
			"mac":       iface.HardwareAddr.String(),
		})
	}
	return b.Failure(envelope.CodeInvalidTarget, map[string]any{"target": name})
}

// GatewayInfo reports the default gateway, attempting an ARP lookup for
// its hardware address.
func GatewayInfo(ctx context.Context, args map[string]any) *envelope.Result {
	osTag := probe.CurrentOS()
	argv := probe.RouteCommand(osTag)
	b := envelope.New("get_gateway_info").Command(strings.Join(argv, " "))

	out, err := probe.Run(ctx, envelope.Timeout("ping"), 0, argv...)
	b.Output(out.Stdout, out.Stderr)
	if err != nil {
		return failFromRun(b, out, err, "gateway lookup")
	}
	gateway := probe.ParseDefaultGateway(osTag, out.Stdout)
	if gateway == "" {
		return b.FailureMessage(envelope.CodeParsingError, "no default gateway found in route output")
	}

	parsed := map[string]any{"gateway_ip": gateway}
	arpArgv := probe.ARPCommand(osTag, gateway)
	if arpOut, err := probe.Run(ctx, envelope.Timeout("ping"), 0, arpArgv...); err == nil {
		if mac := probe.ParseARPEntry(arpOut.Stdout, gateway); mac != "" {
			parsed["gateway_mac"] = mac
		}
	}
	return b.Target(gateway).Success(parsed)
}

// DNSConfig reports the host's configured resolvers.
func DNSConfig(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("get_dns_config")
	switch probe.CurrentOS() {
	case probe.OSWindows:
		argv := []string{"ipconfig", "/all"}
		b.Command(strings.Join(argv, " "))
		out, err := probe.Run(ctx, envelope.Timeout("dns_query"), 0, argv...)
		b.Output(out.Stdout, out.Stderr)
		if err != nil {
			return failFromRun(b, out, err, "dns config")
		}
		var servers []string
		for _, line := range strings.Split(out.Stdout, "\n") {
			if strings.Contains(line, "DNS Servers") {
				if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
					if s := strings.TrimSpace(parts[1]); s != "" {
						servers = append(servers, s)
					}
				}
			}
		}
		return b.Success(map[string]any{"dns_servers": servers})
	default:
		b.Command("read /etc/resolv.conf")
		data, err := os.ReadFile("/etc/resolv.conf")
		if err != nil {
			return b.Failure(envelope.CodeFileNotFound, map[string]any{"path": "/etc/resolv.conf"})
		}
		servers, search := parseResolvConf(string(data))
		return b.Success(map[string]any{
			"dns_servers":    servers,
			"search_domains": search,
		})
	}
}

func parseResolvConf(content string) (servers, search []string) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "nameserver":
			servers = append(servers, fields[1])
		case "search", "domain":
			search = append(search, fields[1:]...)
		}
	}
	return servers, search
}

// NetworkConfig reports per-interface IP, netmask, and derived network
// address for IPv4 interfaces.
func NetworkConfig(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("get_network_config").Command("interface enumeration")
	ifaces, err := net.Interfaces()
	if err != nil {
		return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
	}
	var configs []map[string]any
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			network := ipNet.IP.Mask(ipNet.Mask)
			configs = append(configs, map[string]any{
				"interface":       iface.Name,
				"ip":              ipNet.IP.String(),
				"netmask":         net.IP(ipNet.Mask).String(),
				"network_address": network.String(),
				"cidr":            ipNet.String(),
			})
		}
	}
	return b.Success(map[string]any{"configurations": configs, "count": len(configs)})
}

// NetworkAddress derives the network address for an IPv4 address and
// netmask pair. Split out for testing.
func NetworkAddress(ip, netmask string) (string, error) {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil || parsedIP.To4() == nil {
		return "", fmt.Errorf("invalid IPv4 address %q", ip)
	}
	maskIP := net.ParseIP(netmask)
	if maskIP == nil || maskIP.To4() == nil {
		return "", fmt.Errorf("invalid netmask %q", netmask)
	}
	mask := net.IPMask(maskIP.To4())
	return parsedIP.To4().Mask(mask).String(), nil
}

func stringArg(args map[string]any, name string) string {
	if v, ok := args[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func failFromRun(b *envelope.Builder, out probe.CaptureResult, err error, operation string) *envelope.Result {
	b.ExitCode(out.ExitCode)
	if out.TimedOut {
		return b.Failure(envelope.CodeTimeout, map[string]any{
			"operation": operation,
			"timeout":   fmt.Sprintf("%.0f", out.Elapsed.Seconds()),
		})
	}
	return b.FailureMessage(envelope.CodeCommandFailed, err.Error())
}
