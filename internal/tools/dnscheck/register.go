package dnscheck

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the DNS probes to the registry.
func Register(r *tools.Registry) {
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "resolve_hostname",
			Description: "Resolve a hostname for a given record type",
			Category:    "dns",
			Aliases:     []string{"dns_lookup"},
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Name to resolve", Required: true},
				{Name: "record_type", Type: tools.TypeString, Description: "DNS record type", Default: "A", Choices: recordTypes},
			},
		},
		Run: ResolveHostname,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "test_dns_servers",
			Description: "Compare response time and health of DNS resolvers",
			Category:    "dns",
			Parameters: []tools.ParameterInfo{
				{Name: "servers", Type: tools.TypeList, Description: "Resolver addresses to test", ElementHint: "string"},
			},
		},
		Run: TestDNSServers,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "reverse_dns_lookup",
			Description: "Map an IP address back to hostnames",
			Category:    "dns",
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "IP address", Required: true},
			},
		},
		Run: ReverseDNSLookup,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_dns_propagation",
			Description: "Check whether public resolvers agree on a name's answer",
			Category:    "dns",
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Name to check", Required: true},
			},
		},
		Run: CheckDNSPropagation,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_dns_resolvers",
			Description: "Probe reachability of well-known public DNS resolvers",
			Category:    "dns",
		},
		Run: CheckDNSResolvers,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_dns_root_servers",
			Description: "Probe reachability of the thirteen DNS root servers",
			Category:    "dns",
		},
		Run: CheckDNSRootServers,
	})
}
