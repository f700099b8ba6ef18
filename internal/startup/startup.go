// Package startup runs the four-phase readiness sequence shared by the
// interactive shell and the selftest command.
package startup

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/haasonsaas/netprobe/internal/config"
	"github.com/haasonsaas/netprobe/internal/observability"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/tools"
	"github.com/haasonsaas/netprobe/internal/tools/connectivity"
	"github.com/haasonsaas/netprobe/internal/tools/netinfo"
)

// Phase is one step of the startup sequence.
type Phase struct {
	Name    string   `json:"name"`
	OK      bool     `json:"ok"`
	Fatal   bool     `json:"fatal"`
	Details []string `json:"details,omitempty"`
}

// Report is the outcome of the full sequence. Status is "ok" when every
// phase passed, "degraded" when only non-fatal phases failed, and
// "failed" when a fatal phase failed.
type Report struct {
	Phases []Phase `json:"phases"`
	Status string  `json:"status"`
}

// Checker runs the startup sequence against live dependencies.
type Checker struct {
	Config   *config.Config
	Registry *tools.Registry
	Logger   *observability.Logger

	// httpClient is swappable for tests.
	httpClient *http.Client
}

// NewChecker builds a checker. logger may be nil.
func NewChecker(cfg *config.Config, registry *tools.Registry, logger *observability.Logger) *Checker {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Checker{
		Config:     cfg,
		Registry:   registry,
		Logger:     logger,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Run executes all four phases in order. Later phases still run when an
// earlier one fails so the report is complete.
func (c *Checker) Run(ctx context.Context) *Report {
	report := &Report{}
	report.Phases = append(report.Phases,
		c.checkEnvironment(),
		c.checkLLM(ctx),
		c.checkRegistry(),
		c.checkNetwork(ctx),
	)

	report.Status = summarizeStatus(report.Phases)
	return report
}

func summarizeStatus(phases []Phase) string {
	status := "ok"
	for _, p := range phases {
		if p.OK {
			continue
		}
		if p.Fatal {
			return "failed"
		}
		status = "degraded"
	}
	return status
}

// checkEnvironment verifies the terminal and process environment.
func (c *Checker) checkEnvironment() Phase {
	p := Phase{Name: "environment", OK: true, Fatal: true}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		p.Details = append(p.Details, "stdin is a terminal")
	} else {
		p.Details = append(p.Details, "stdin is not a terminal (piped input)")
	}
	if _, err := os.UserConfigDir(); err != nil {
		p.OK = false
		p.Details = append(p.Details, fmt.Sprintf("no user config directory: %v", err))
	}
	return p
}

// checkLLM probes the chat model endpoint. A missing model backend is
// non-fatal: tools still work directly.
func (c *Checker) checkLLM(ctx context.Context) Phase {
	p := Phase{Name: "llm", OK: true, Fatal: false}

	host := strings.TrimSuffix(c.Config.LLM.Host, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/api/tags", nil)
	if err != nil {
		p.OK = false
		p.Details = append(p.Details, err.Error())
		return p
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		p.OK = false
		p.Details = append(p.Details, fmt.Sprintf("endpoint %s unreachable: %v", host, err))
		return p
	}
	resp.Body.Close()
	p.Details = append(p.Details, fmt.Sprintf("endpoint %s reachable (HTTP %d), model %s",
		host, resp.StatusCode, c.Config.LLM.Model))
	return p
}

// checkRegistry verifies registry integrity: a populated tool list and
// the availability of the external binaries tools shell out to.
func (c *Checker) checkRegistry() Phase {
	p := Phase{Name: "registry", OK: true, Fatal: true}

	metas := c.Registry.List()
	if len(metas) == 0 {
		p.OK = false
		p.Details = append(p.Details, "no tools registered")
		return p
	}
	p.Details = append(p.Details, fmt.Sprintf("%d tools registered", len(metas)))

	missing := map[string]bool{}
	for _, meta := range metas {
		for _, bin := range meta.Binaries {
			if !c.Registry.Binaries().Available(bin) {
				missing[bin] = true
			}
		}
	}
	for bin := range missing {
		p.Details = append(p.Details, fmt.Sprintf("binary %q not found; dependent tools will fail", bin))
	}
	return p
}

// checkNetwork establishes a network baseline: local address, default
// gateway, and internet reachability.
func (c *Checker) checkNetwork(ctx context.Context) Phase {
	p := Phase{Name: "network", OK: true, Fatal: false}

	if ip, err := probe.LocalIP(); err == nil {
		p.Details = append(p.Details, "local ip "+ip)
	} else {
		p.OK = false
		p.Details = append(p.Details, fmt.Sprintf("no local address: %v", err))
	}

	if res := netinfo.GatewayInfo(ctx, map[string]any{}); res.Success {
		if gw, ok := res.ParsedData["gateway_ip"].(string); ok {
			p.Details = append(p.Details, "gateway "+gw)
		}
	} else {
		p.Details = append(p.Details, "default gateway not detected")
	}

	res := connectivity.CheckInternetConnection(ctx, map[string]any{})
	if !res.Success {
		p.OK = false
		p.Details = append(p.Details, "internet unreachable")
		return p
	}
	if status, ok := res.ParsedData["status"].(string); ok {
		p.Details = append(p.Details, "internet "+status)
		if status != "online" {
			p.OK = false
		}
	}
	return p
}
