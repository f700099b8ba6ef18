package ntpcheck

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the time probes to the registry.
func Register(r *tools.Registry) {
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "test_ntp_server",
			Description: "Query one NTP server and report offset, stratum, and delay",
			Category:    "network_diagnostics",
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "NTP server hostname", Default: "pool.ntp.org"},
			},
		},
		Run: TestNTPServer,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_ntp_servers",
			Description: "Sweep a pool of NTP servers concurrently and rank by offset",
			Category:    "network_diagnostics",
			Parameters: []tools.ParameterInfo{
				{Name: "servers", Type: tools.TypeList, Description: "Servers to sweep", ElementHint: "string"},
			},
		},
		Run: CheckNTPServers,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "analyze_ntp_sync",
			Description: "Analyze clock offset statistics across NTP servers",
			Category:    "network_diagnostics",
			Parameters: []tools.ParameterInfo{
				{Name: "servers", Type: tools.TypeList, Description: "Servers to sample", ElementHint: "string"},
			},
		},
		Run: AnalyzeNTPSync,
	})
}
