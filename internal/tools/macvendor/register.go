package macvendor

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the manufacturer lookup probes to the registry.
func Register(r *tools.Registry) {
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "mac_address_manufacturer_lookup",
			Description: "Resolve a MAC address to its manufacturer via the local database",
			Category:    "network_diagnostics",
			Aliases:     []string{"mac_lookup"},
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "MAC address in any common notation", Required: true},
			},
		},
		Run: MACManufacturerLookup,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "fetch_latest_wireshark_manuf_file",
			Description: "Download the latest manufacturer database",
			Category:    "network_diagnostics",
			Parameters: []tools.ParameterInfo{
				{Name: "silent", Type: tools.TypeBoolean, Description: "Skip the confirmation prompt", Default: false},
			},
		},
		Run: FetchManufFile,
	})
}
