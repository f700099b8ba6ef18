package envelope

import (
	"sync"
	"time"
)

// Default per-operation timeouts in seconds. Probes look up their timeout
// here; configuration may override individual entries at startup.
var defaultTimeouts = map[string]int{
	"ping":               5,
	"dns_query":          10,
	"web_request":        15,
	"port_scan":          30,
	"traceroute":         30,
	"whois":              10,
	"ntp_query":          5,
	"network_discovery":  120,
	"comprehensive_scan": 600,
	"nmap_basic":         60,
	"nmap_service":       120,
	"nmap_os":            180,
	"speed_test":         90,
	"file_download":      30,
}

var (
	timeoutMu sync.RWMutex
	timeouts  = func() map[string]int {
		m := make(map[string]int, len(defaultTimeouts))
		for k, v := range defaultTimeouts {
			m[k] = v
		}
		return m
	}()
)

// Timeout returns the configured timeout for a keyed operation. Unknown
// keys fall back to the web_request default so a missing entry can never
// produce an unbounded wait.
func Timeout(key string) time.Duration {
	timeoutMu.RLock()
	defer timeoutMu.RUnlock()
	if s, ok := timeouts[key]; ok {
		return time.Duration(s) * time.Second
	}
	return time.Duration(timeouts["web_request"]) * time.Second
}

// TimeoutSeconds is Timeout expressed in whole seconds, for message
// formatting and options echo.
func TimeoutSeconds(key string) int {
	return int(Timeout(key) / time.Second)
}

// SetTimeout overrides a single timeout entry. Called once at startup from
// configuration; zero or negative values are ignored.
func SetTimeout(key string, seconds int) {
	if seconds <= 0 {
		return
	}
	timeoutMu.Lock()
	defer timeoutMu.Unlock()
	timeouts[key] = seconds
}
