package ixpcheck

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the IXP reachability probe to the registry.
func Register(r *tools.Registry) {
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "monitor_ixp_connectivity",
			Description: "Probe the public endpoints of major internet exchange points",
			Category:    "network_diagnostics",
			Parameters: []tools.ParameterInfo{
				{Name: "insecure", Type: tools.TypeBoolean, Description: "Skip TLS verification", Default: false},
				{Name: "proxy", Type: tools.TypeString, Description: "Upstream proxy URL"},
			},
		},
		Run: MonitorIXPConnectivity,
	})
}
