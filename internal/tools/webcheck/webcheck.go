// Package webcheck implements the HTTP and TLS probes: connectivity,
// certificate inspection, service health, endpoint batches, and the
// composite website accessibility check.
package webcheck

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/haasonsaas/netprobe/internal/batch"
	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/tools"
)

// commonSubdomains probed by the accessibility composite.
var commonSubdomains = []string{"www", "mail", "api", "blog", "shop"}

func httpOptions(args map[string]any) probe.HTTPOptions {
	return probe.HTTPOptions{
		Timeout:         envelope.Timeout("web_request"),
		FollowRedirects: tools.BoolArg(args, "follow_redirects", true),
		MaxRedirects:    tools.IntArg(args, "max_redirects", 5),
		InsecureTLS:     tools.BoolArg(args, "insecure", false),
		ProxyURL:        tools.StringArg(args, "proxy", ""),
	}
}

func httpResultData(r *probe.HTTPResult) map[string]any {
	data := map[string]any{
		"status_code":      r.StatusCode,
		"response_time_ms": float64(r.ResponseTime.Microseconds()) / 1000,
		"final_url":        r.FinalURL,
		"redirect_count":   r.RedirectCount,
		"server":           r.Server,
		"content_type":     r.ContentType,
		"content_length":   r.ContentLength,
		"body_preview":     r.BodyPreview,
	}
	if r.TLS != nil {
		data["certificate"] = certData(r.TLS)
	}
	return data
}

func certData(c *probe.CertSummary) map[string]any {
	return map[string]any{
		"subject":             c.Subject,
		"issuer":              c.Issuer,
		"serial_number":       c.SerialNumber,
		"not_before":          c.NotBefore.Format(time.RFC3339),
		"not_after":           c.NotAfter.Format(time.RFC3339),
		"days_until_expiry":   c.DaysUntilExpiry,
		"sans":                c.SANs,
		"signature_algorithm": c.SignatureAlgorithm,
		"key_bits":            c.KeyBits,
		"self_signed":         c.SelfSigned,
		"expired":             c.Expired,
	}
}

// TestHTTPConnectivity fetches a URL and reports status, timing, and
// certificate details for HTTPS.
func TestHTTPConnectivity(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	b := envelope.New("test_http_connectivity").
		Target(target).
		Command(fmt.Sprintf("http get %s", target))
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "test_http_connectivity"})
	}

	result, err := probe.Get(ctx, target, httpOptions(args))
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	return b.Success(httpResultData(result))
}

// CheckSSLCertificate inspects the TLS certificate presented by a host.
func CheckSSLCertificate(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	port := tools.IntArg(args, "port", 443)
	b := envelope.New("check_ssl_certificate").
		Target(target).
		Options(map[string]any{"port": port}).
		Command(fmt.Sprintf("tls handshake %s:%d", target, port))
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "check_ssl_certificate"})
	}
	// Accept URLs as well as bare hostnames.
	if strings.Contains(target, "://") {
		if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
			target = u.Hostname()
		}
	}
	if port < 1 || port > 65535 {
		return b.Failure(envelope.CodeInvalidPort, map[string]any{"port": port})
	}

	cert, err := probe.TLSPeek(ctx, target, port, envelope.Timeout("web_request"))
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	data := certData(cert)
	data["valid"] = !cert.Expired && !cert.SelfSigned
	return b.Success(data)
}

// ClassifyHealth compares an observed status code against the expected
// one and labels the outcome.
func ClassifyHealth(expected, actual int) string {
	switch {
	case actual == expected:
		return "healthy"
	case actual >= 500:
		return "server_error"
	case actual >= 400:
		return "client_error"
	case actual >= 300:
		return "redirected"
	default:
		return "unexpected"
	}
}

// TestWebServiceHealth fetches a URL and compares the status against an
// expected value.
func TestWebServiceHealth(ctx context.Context, args map[string]any) *envelope.Result {
	target := tools.StringArg(args, "target", "")
	expected := tools.IntArg(args, "expected_status", 200)
	b := envelope.New("test_web_service_health").
		Target(target).
		Options(map[string]any{"expected_status": expected}).
		Command(fmt.Sprintf("http get %s", target))
	if target == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "test_web_service_health"})
	}

	result, err := probe.Get(ctx, target, httpOptions(args))
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	health := ClassifyHealth(expected, result.StatusCode)
	data := httpResultData(result)
	data["expected_status"] = expected
	data["health"] = health
	data["healthy"] = health == "healthy"
	return b.Success(data)
}

// CheckMultipleEndpoints fetches a batch of URLs concurrently and
// reports per-endpoint outcomes plus an averaged response time.
func CheckMultipleEndpoints(ctx context.Context, args map[string]any) *envelope.Result {
	urls := tools.StringListArg(args, "urls")
	b := envelope.New("check_multiple_endpoints").
		Command("http get batch").
		Options(map[string]any{"urls": urls})
	if len(urls) == 0 {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "urls", "tool": "check_multiple_endpoints"})
	}

	opts := httpOptions(args)
	fetch := func(ctx context.Context, target string) *envelope.Result {
		eb := envelope.New("check_multiple_endpoints").Target(target)
		result, err := probe.Get(ctx, target, opts)
		if err != nil {
			code, detail := probe.ClassifyNetError(err)
			return eb.FailureMessage(code, detail)
		}
		row := httpResultData(result)
		row["url"] = target
		return eb.Success(row)
	}

	outcomes, summary := batch.Run(ctx, urls, fetch, batch.Options{
		Workers:          5,
		PerTargetTimeout: opts.Timeout + 5*time.Second,
	})

	reachable, unreachable := batch.Split(outcomes)
	var totalMs float64
	timed := 0
	for _, row := range reachable {
		if ms, ok := row["response_time_ms"].(float64); ok {
			totalMs += ms
			timed++
		}
	}

	data := map[string]any{
		"reachable_endpoints":   reachable,
		"unreachable_endpoints": unreachable,
		"summary": map[string]any{
			"total":        summary.Total,
			"succeeded":    summary.Succeeded,
			"failed":       summary.Failed,
			"success_rate": summary.SuccessRate,
			"status":       summary.Status,
		},
	}
	if timed > 0 {
		data["average_response_time_ms"] = totalMs / float64(timed)
	}
	if summary.Succeeded == 0 {
		return b.FailureMessage(envelope.CodeConnectionFailed, "all endpoints failed")
	}
	return b.Success(data)
}

// CheckWebsiteAccessibility composes HTTP, HTTPS, certificate, and
// common-subdomain checks for a domain.
func CheckWebsiteAccessibility(ctx context.Context, args map[string]any) *envelope.Result {
	domain := tools.StringArg(args, "target", "")
	b := envelope.New("check_website_accessibility").
		Target(domain).
		Command(fmt.Sprintf("composite accessibility check of %s", domain))
	if domain == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "check_website_accessibility"})
	}
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	domain = strings.TrimSuffix(domain, "/")

	opts := httpOptions(args)
	data := map[string]any{"domain": domain}

	if r, err := probe.Get(ctx, "http://"+domain, opts); err == nil {
		data["http"] = map[string]any{"ok": true, "status_code": r.StatusCode}
	} else {
		code, _ := probe.ClassifyNetError(err)
		data["http"] = map[string]any{"ok": false, "error": string(code)}
	}
	httpsOK := false
	if r, err := probe.Get(ctx, "https://"+domain, opts); err == nil {
		httpsOK = true
		entry := map[string]any{"ok": true, "status_code": r.StatusCode}
		if r.TLS != nil {
			entry["certificate"] = certData(r.TLS)
		}
		data["https"] = entry
	} else {
		code, _ := probe.ClassifyNetError(err)
		data["https"] = map[string]any{"ok": false, "error": string(code)}
	}

	sub := make(map[string]bool, len(commonSubdomains))
	for _, prefix := range commonSubdomains {
		_, err := probe.Get(ctx, "https://"+prefix+"."+domain, opts)
		sub[prefix] = err == nil
	}
	data["subdomains"] = sub

	if !httpsOK {
		if httpEntry, ok := data["http"].(map[string]any); !ok || httpEntry["ok"] != true {
			return b.Failure(envelope.CodeUnreachable, map[string]any{"target": domain})
		}
	}
	return b.Success(data)
}
