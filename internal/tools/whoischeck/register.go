package whoischeck

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the WHOIS probes to the registry.
func Register(r *tools.Registry) {
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_whois_servers",
			Description: "Probe reachability of the major WHOIS registry servers",
			Category:    "web",
		},
		Run: CheckWHOISServers,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "whois_lookup",
			Description: "Raw port-43 WHOIS lookup for a domain",
			Category:    "web",
			Aliases:     []string{"whois"},
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Domain to look up", Required: true},
				{Name: "server", Type: tools.TypeString, Description: "Override the WHOIS server"},
			},
		},
		Run: WHOISLookup,
	})
}
