package probe

import (
	"fmt"
	"runtime"
)

// OS tags used by the command chooser and the parsers.
const (
	OSLinux   = "linux"
	OSDarwin  = "darwin"
	OSWindows = "windows"
)

// CurrentOS returns the runtime OS tag.
func CurrentOS() string { return runtime.GOOS }

// PingCommand builds the platform ping invocation for count packets with a
// per-packet timeout in seconds.
func PingCommand(osTag, target string, count, timeoutSec int) []string {
	switch osTag {
	case OSWindows:
		return []string{"ping", "-n", fmt.Sprintf("%d", count), "-w", fmt.Sprintf("%d", timeoutSec*1000), target}
	case OSDarwin:
		return []string{"ping", "-c", fmt.Sprintf("%d", count), "-t", fmt.Sprintf("%d", timeoutSec), target}
	default:
		return []string{"ping", "-c", fmt.Sprintf("%d", count), "-W", fmt.Sprintf("%d", timeoutSec), target}
	}
}

// TracerouteCommand builds the platform traceroute invocation.
func TracerouteCommand(osTag, target string, maxHops int) []string {
	if osTag == OSWindows {
		return []string{"tracert", "-h", fmt.Sprintf("%d", maxHops), "-d", target}
	}
	return []string{"traceroute", "-m", fmt.Sprintf("%d", maxHops), "-n", target}
}

// InterfaceCommand builds the platform interface-listing invocation.
func InterfaceCommand(osTag string) []string {
	switch osTag {
	case OSWindows:
		return []string{"ipconfig", "/all"}
	case OSDarwin:
		return []string{"ifconfig"}
	default:
		if _, ok := BinaryPath("ip"); ok {
			return []string{"ip", "addr", "show"}
		}
		return []string{"ifconfig"}
	}
}

// RouteCommand builds the platform default-route query.
func RouteCommand(osTag string) []string {
	switch osTag {
	case OSWindows:
		return []string{"route", "print", "0.0.0.0"}
	case OSDarwin:
		return []string{"route", "-n", "get", "default"}
	default:
		return []string{"ip", "route", "show", "default"}
	}
}

// ARPCommand builds the platform ARP-table query for one IP.
func ARPCommand(osTag, ip string) []string {
	if osTag == OSWindows {
		return []string{"arp", "-a", ip}
	}
	return []string{"arp", "-n", ip}
}

// DNSLookupCommand builds a record-type lookup, preferring dig where
// present. The caller parses with ParseDNSAnswers.
func DNSLookupCommand(osTag, name, recordType string) []string {
	if osTag == OSWindows {
		return []string{"nslookup", "-type=" + recordType, name}
	}
	if _, ok := BinaryPath("dig"); ok {
		return []string{"dig", "+short", name, recordType}
	}
	return []string{"nslookup", "-type=" + recordType, name}
}

// DNSServerQueryCommand builds a lookup directed at a specific resolver.
func DNSServerQueryCommand(osTag, name, server, recordType string) []string {
	if osTag == OSWindows {
		return []string{"nslookup", name, server}
	}
	if _, ok := BinaryPath("dig"); ok {
		return []string{"dig", "@" + server, "+short", name, recordType}
	}
	return []string{"nslookup", name, server}
}
