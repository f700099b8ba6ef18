package mailcheck

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the email infrastructure probes to the registry.
func Register(r *tools.Registry) {
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_smtp_connectivity",
			Description: "Probe the SMTP submission port of major mail providers",
			Category:    "email_diagnostics",
		},
		Run: CheckSMTPConnectivity,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_imap_connectivity",
			Description: "Probe the IMAPS port of major mail providers",
			Category:    "email_diagnostics",
		},
		Run: CheckIMAPConnectivity,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_all_email_services",
			Description: "Combined SMTP and IMAP sweep with an overall rating",
			Category:    "email_diagnostics",
		},
		Run: CheckAllEmailServices,
	})
}
