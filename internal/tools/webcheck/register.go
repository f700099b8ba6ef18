package webcheck

import "github.com/haasonsaas/netprobe/internal/tools"

// Register adds the web probes to the registry.
func Register(r *tools.Registry) {
	one, maxPort := 1.0, 65535.0
	common := []tools.ParameterInfo{
		{Name: "follow_redirects", Type: tools.TypeBoolean, Description: "Follow HTTP redirects", Default: true},
		{Name: "max_redirects", Type: tools.TypeInteger, Description: "Redirect limit", Default: 5},
		{Name: "insecure", Type: tools.TypeBoolean, Description: "Skip TLS verification", Default: false},
		{Name: "proxy", Type: tools.TypeString, Description: "Upstream proxy URL"},
	}

	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "test_http_connectivity",
			Description: "Fetch a URL and report status, headers, timing, and TLS details",
			Category:    "web",
			Aliases:     []string{"http_check"},
			Parameters: append([]tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "URL or hostname", Required: true},
			}, common...),
		},
		Run: TestHTTPConnectivity,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_ssl_certificate",
			Description: "Inspect the TLS certificate presented by a host",
			Category:    "web",
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Hostname or URL", Required: true},
				{Name: "port", Type: tools.TypeInteger, Description: "TLS port", Default: 443, Minimum: &one, Maximum: &maxPort},
			},
		},
		Run: CheckSSLCertificate,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "test_web_service_health",
			Description: "Compare a service's HTTP status against an expected value",
			Category:    "web",
			Parameters: append([]tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Service URL", Required: true},
				{Name: "expected_status", Type: tools.TypeInteger, Description: "Expected HTTP status", Default: 200},
			}, common...),
		},
		Run: TestWebServiceHealth,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_multiple_endpoints",
			Description: "Fetch a batch of URLs and summarize availability",
			Category:    "web",
			Parameters: append([]tools.ParameterInfo{
				{Name: "urls", Type: tools.TypeList, Description: "URLs to fetch", Required: true, ElementHint: "string"},
			}, common...),
		},
		Run: CheckMultipleEndpoints,
	})
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "check_website_accessibility",
			Description: "Composite HTTP, HTTPS, certificate, and subdomain check for a domain",
			Category:    "web",
			Parameters: append([]tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Description: "Domain name", Required: true},
			}, common...),
		},
		Run: CheckWebsiteAccessibility,
	})
}
