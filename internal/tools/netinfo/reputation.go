package netinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
)

const abuseIPDBEndpoint = "https://api.abuseipdb.com/api/v2/check"

// spamhausZones are the DNSBL zones consulted for listings. PBL hits are
// informational (residential policy ranges), SBL and CSS indicate threat.
var spamhausZones = []struct {
	Zone   string
	Label  string
	Threat bool
}{
	{"sbl.spamhaus.org", "SBL", true},
	{"css.spamhaus.org", "CSS", true},
	{"pbl.spamhaus.org", "PBL", false},
}

// ReverseIPv4 flips the octets of an IPv4 address for DNSBL queries.
func ReverseIPv4(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return "", fmt.Errorf("not an IPv4 address: %q", ip)
	}
	octets := strings.Split(parsed.To4().String(), ".")
	return strings.Join([]string{octets[3], octets[2], octets[1], octets[0]}, "."), nil
}

type abuseReport struct {
	AbuseConfidence int    `json:"abuseConfidenceScore"`
	TotalReports    int    `json:"totalReports"`
	LastReportedAt  string `json:"lastReportedAt"`
	CountryCode     string `json:"countryCode"`
	ISP             string `json:"isp"`
	Domain          string `json:"domain"`
}

func queryAbuseIPDB(ctx context.Context, client *http.Client, apiKey, ip string) (*abuseReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, abuseIPDBEndpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", "90")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Key", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("abuseipdb returned status %d", resp.StatusCode)
	}
	var payload struct {
		Data abuseReport `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode abuseipdb response: %w", err)
	}
	return &payload.Data, nil
}

// dnsblListings checks the reversed IP under each Spamhaus zone. Any
// successful resolution means listed; NXDOMAIN means clean.
func dnsblListings(ctx context.Context, resolver *net.Resolver, reversed string) (listings []map[string]any, threat bool) {
	for _, zone := range spamhausZones {
		query := reversed + "." + zone.Zone
		lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		addrs, err := resolver.LookupHost(lookupCtx, query)
		cancel()
		if err != nil || len(addrs) == 0 {
			continue
		}
		listings = append(listings, map[string]any{
			"list":          zone.Label,
			"zone":          zone.Zone,
			"response":      addrs[0],
			"informational": !zone.Threat,
		})
		if zone.Threat {
			threat = true
		}
	}
	return listings, threat
}

// CheckExternalIPReputation fetches the external IP and consults
// AbuseIPDB (when an API key is present in the environment) and the
// Spamhaus DNS blacklists.
func CheckExternalIPReputation(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_external_ip_reputation").Command("ip echo + reputation lookups")

	ip, service, err := fetchExternalIP(ctx, echoClient())
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	b.Target(ip)

	parsed := map[string]any{
		"external_ip": ip,
		"service":     service,
	}

	if apiKey := os.Getenv("ABUSEIPDB_API_KEY"); apiKey != "" {
		report, err := queryAbuseIPDB(ctx, echoClient(), apiKey, ip)
		if err != nil {
			parsed["abuseipdb_error"] = err.Error()
		} else {
			parsed["abuseipdb"] = map[string]any{
				"confidence_score": report.AbuseConfidence,
				"total_reports":    report.TotalReports,
				"last_reported_at": report.LastReportedAt,
				"country":          report.CountryCode,
				"isp":              report.ISP,
				"domain":           report.Domain,
			}
		}
	} else {
		parsed["abuseipdb"] = "skipped: no API key configured"
	}

	reversed, err := ReverseIPv4(ip)
	if err != nil {
		return b.FailureMessage(envelope.CodeInvalidFormat, err.Error())
	}
	listings, threat := dnsblListings(ctx, net.DefaultResolver, reversed)
	parsed["spamhaus_listings"] = listings
	parsed["spamhaus_listed"] = len(listings) > 0
	parsed["threat_detected"] = threat

	return b.Success(parsed)
}
