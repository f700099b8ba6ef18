package netinfo

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the link and host level probes to the registry.
func Register(r *tools.Registry) {
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "get_local_ip",
			Description: "Report the primary outbound IPv4 address of this host",
			Category:    "network_diagnostics",
			Aliases:     []string{"local_ip"},
		},
		Run: LocalIP,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "get_system_info",
			Description: "Report hostname, OS, architecture, and current user",
			Category:    "system_info",
		},
		Run: SystemInfo,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_interface_status",
			Description: "Enumerate network interfaces with addresses and state",
			Category:    "network_diagnostics",
			Parameters: []tools.ParameterInfo{
				{Name: "interface", Type: tools.TypeString, Description: "Limit output to one interface name"},
			},
		},
		Run: InterfaceStatus,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "get_interface_mac_address",
			Description: "Report the hardware address of an interface",
			Category:    "network_diagnostics",
			Parameters: []tools.ParameterInfo{
				{Name: "interface", Type: tools.TypeString, Description: "Interface name; defaults to first non-loopback"},
			},
		},
		Run: InterfaceMAC,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "get_gateway_info",
			Description: "Report the default gateway IP and, when resolvable, its MAC",
			Category:    "network_diagnostics",
		},
		Run: GatewayInfo,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "get_dns_config",
			Description: "Report the host's configured DNS resolvers",
			Category:    "dns",
		},
		Run: DNSConfig,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "get_network_config",
			Description: "Report per-interface IPv4 address, netmask, and network address",
			Category:    "network_diagnostics",
		},
		Run: NetworkConfig,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "get_external_ip",
			Description: "Discover the public IPv4 address via HTTP echo services",
			Category:    "network_diagnostics",
			Aliases:     []string{"external_ip"},
		},
		Run: ExternalIP,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_nat_status",
			Description: "Classify this host as behind NAT, directly connected, or uncertain",
			Category:    "network_diagnostics",
		},
		Run: NATStatus,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "monitor_external_ip_changes",
			Description: "Track external IP changes against a persisted history file",
			Category:    "network_diagnostics",
		},
		Run: MonitorExternalIPChanges,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_external_ip_reputation",
			Description: "Check the external IP against AbuseIPDB and Spamhaus blacklists",
			Category:    "security",
		},
		Run: CheckExternalIPReputation,
	})
}
