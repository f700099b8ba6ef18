package netinfo

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
)

// echoServices is the ordered list of HTTP IP-echo endpoints tried for
// external IP discovery. Order matters: the first success wins.
var echoServices = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
	"https://checkip.amazonaws.com",
}

// fetchExternalIP tries each echo service in order and returns the first
// valid IPv4 answer plus the service that produced it.
func fetchExternalIP(ctx context.Context, client *http.Client) (ip, service string, err error) {
	var lastErr error
	for _, svc := range echoServices {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, svc, nil)
		if reqErr != nil {
			lastErr = reqErr
			continue
		}
		req.Header.Set("User-Agent", probe.UserAgent)
		resp, getErr := client.Do(req)
		if getErr != nil {
			lastErr = getErr
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64))
		resp.Body.Close()
		if readErr != nil || resp.StatusCode != http.StatusOK {
			lastErr = getErr
			continue
		}
		candidate := strings.TrimSpace(string(body))
		if parsed := net.ParseIP(candidate); parsed != nil && parsed.To4() != nil {
			return candidate, svc, nil
		}
	}
	if lastErr == nil {
		lastErr = context.DeadlineExceeded
	}
	return "", "", lastErr
}

func echoClient() *http.Client {
	return &http.Client{Timeout: envelope.Timeout("web_request")}
}

// ExternalIP discovers the host's public IPv4 address.
func ExternalIP(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("get_external_ip").Command("http ip echo")
	ip, service, err := fetchExternalIP(ctx, echoClient())
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	return b.Target(ip).Success(map[string]any{
		"external_ip": ip,
		"service":     service,
	})
}

// ClassifyNAT compares the local and external addresses. The result is
// "nat" when they differ and the local address is private, "direct" when
// they match, and "uncertain" when they differ but the local address is
// itself public.
func ClassifyNAT(localIP, externalIP string) string {
	if localIP == externalIP {
		return "direct"
	}
	parsed := net.ParseIP(localIP)
	if parsed != nil && (parsed.IsPrivate() || parsed.IsLinkLocalUnicast()) {
		return "nat"
	}
	return "uncertain"
}

// NATStatus classifies the host's NAT situation.
func NATStatus(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_nat_status").Command("compare local and external address")
	local, err := probe.LocalIP()
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	external, service, err := fetchExternalIP(ctx, echoClient())
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	status := ClassifyNAT(local, external)
	return b.Target(external).Success(map[string]any{
		"local_ip":    local,
		"external_ip": external,
		"service":     service,
		"nat_status":  status,
		"behind_nat":  status == "nat",
	})
}
