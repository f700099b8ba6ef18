package connectivity

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the reachability probes to the registry.
func Register(r *tools.Registry) {
	one, maxPort := 1.0, 65535.0
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "ping_host",
			Description: "Ping a host and report packet loss and round-trip times",
			Category:    "network_diagnostics",
			Aliases:     []string{"ping"},
			Binaries:    []string{"ping"},
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Hostname or IP to ping", Required: true},
				{Name: "count", Type: tools.TypeInteger, Description: "Echo requests to send", Default: 4},
			},
		},
		Run: PingHost,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "traceroute_host",
			Description: "Trace the network path to a host",
			Category:    "network_diagnostics",
			Aliases:     []string{"traceroute"},
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Hostname or IP to trace", Required: true},
				{Name: "max_hops", Type: tools.TypeInteger, Description: "Hop limit", Default: 30},
			},
		},
		Run: TracerouteHost,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "test_port_connectivity",
			Description: "Check whether a TCP port accepts connections",
			Category:    "network_diagnostics",
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Hostname or IP", Required: true},
				{Name: "port", Type: tools.TypeInteger, Description: "TCP port", Required: true, Minimum: &one, Maximum: &maxPort},
			},
		},
		Run: TestPortConnectivity,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "scan_local_network",
			Description: "Probe a sparse sample of the local /24 for live hosts",
			Category:    "network_diagnostics",
		},
		Run: ScanLocalNetwork,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "run_speed_test",
			Description: "Measure link capacity and responsiveness (macOS networkQuality)",
			Category:    "network_diagnostics",
			Binaries:    []string{"networkQuality"},
		},
		Run: RunSpeedTest,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_internet_connection",
			Description: "Classify overall internet connectivity",
			Category:    "network_diagnostics",
		},
		Run: CheckInternetConnection,
	})
}
