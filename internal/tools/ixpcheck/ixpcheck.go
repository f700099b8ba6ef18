// Package ixpcheck monitors the public web presence of major internet
// exchange points as a coarse signal of inter-provider reachability.
package ixpcheck

import (
	"context"
	"sort"
	"time"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/retry"
	"github.com/haasonsaas/netprobe/internal/tools"
)

// ixpEndpoints maps exchange names to their public endpoints.
var ixpEndpoints = map[string]string{
	"DE-CIX":         "https://www.de-cix.net",
	"LINX":           "https://www.linx.net",
	"AMS-IX":         "https://www.ams-ix.net",
	"NYIIX":          "https://www.nyiix.net",
	"HKIX":           "https://www.hkix.net",
	"Equinix-Status": "https://status.equinix.com",
}

// rate mirrors the reachability bands used by the email sweep.
func rate(reachable, total int) string {
	if total == 0 {
		return "poor"
	}
	pct := float64(reachable) / float64(total) * 100
	switch {
	case reachable == total:
		return "excellent"
	case pct >= 80:
		return "good"
	case pct >= 50:
		return "partial"
	default:
		return "poor"
	}
}

// MonitorIXPConnectivity fetches each IXP endpoint with per-endpoint
// retries and exponential backoff, reporting timing and an overall band.
func MonitorIXPConnectivity(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("monitor_ixp_connectivity").
		Command("http probes of ixp endpoints")

	opts := probe.HTTPOptions{
		Timeout:         envelope.Timeout("web_request"),
		FollowRedirects: true,
		MaxRedirects:    5,
		InsecureTLS:     tools.BoolArg(args, "insecure", false),
		ProxyURL:        tools.StringArg(args, "proxy", ""),
	}
	retryCfg := retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Factor:       2,
	}

	names := make([]string, 0, len(ixpEndpoints))
	for name := range ixpEndpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	reachableRows := []map[string]any{}
	unreachableRows := []map[string]any{}
	for _, name := range names {
		endpoint := ixpEndpoints[name]
		result, err := retry.DoWithValue(ctx, retryCfg, func(ctx context.Context) (*probe.HTTPResult, error) {
			return probe.Get(ctx, endpoint, opts)
		})
		if err != nil {
			code, detail := probe.ClassifyNetError(err)
			unreachableRows = append(unreachableRows, map[string]any{
				"ixp":           name,
				"endpoint":      endpoint,
				"error_type":    string(code.Category()),
				"error_message": detail,
			})
			continue
		}
		reachableRows = append(reachableRows, map[string]any{
			"ixp":              name,
			"endpoint":         endpoint,
			"status_code":      result.StatusCode,
			"response_time_ms": float64(result.ResponseTime.Microseconds()) / 1000,
		})
	}

	if len(reachableRows) == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "ixp endpoints"})
	}
	return b.Success(map[string]any{
		"reachable_endpoints":   reachableRows,
		"unreachable_endpoints": unreachableRows,
		"reachable":             len(reachableRows),
		"total":                 len(names),
		"rating":                rate(len(reachableRows), len(names)),
	})
}
