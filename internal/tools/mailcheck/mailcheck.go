// Package mailcheck probes the SMTP and IMAP endpoints of the major mail
// providers and rates overall email infrastructure reachability.
package mailcheck

import (
	"context"
	"fmt"
	"sort"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
)

// Provider endpoint maps. Submission on 587, IMAPS on 993.
var smtpServers = map[string]string{
	"Gmail":     "smtp.gmail.com",
	"Outlook":   "smtp-mail.outlook.com",
	"Office365": "smtp.office365.com",
	"Yahoo":     "smtp.mail.yahoo.com",
	"iCloud":    "smtp.mail.me.com",
	"AOL":       "smtp.aol.com",
	"Zoho":      "smtp.zoho.com",
	"Mail.com":  "smtp.mail.com",
	"GMX":       "mail.gmx.com",
	"Fastmail":  "smtp.fastmail.com",
}

var imapServers = map[string]string{
	"Gmail":    "imap.gmail.com",
	"Outlook":  "outlook.office365.com",
	"Yahoo":    "imap.mail.yahoo.com",
	"iCloud":   "imap.mail.me.com",
	"AOL":      "imap.aol.com",
	"Zoho":     "imap.zoho.com",
	"Mail.com": "imap.mail.com",
	"GMX":      "imap.gmx.com",
	"Fastmail": "imap.fastmail.com",
}

const (
	smtpPort = 587
	imapPort = 993
)

// Rate maps a reachability percentage onto the rating bands.
func Rate(reachable, total int) string {
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

func sweep(ctx context.Context, servers map[string]string, port int) (reachable, unreachable []map[string]any) {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	reachable = []map[string]any{}
	unreachable = []map[string]any{}
	for _, name := range names {
		host := servers[name]
		res := probe.TCPConnect(ctx, host, port, envelope.Timeout("port_scan"))
		if res.Connected {
			reachable = append(reachable, map[string]any{
				"provider":        name,
				"host":            host,
				"port":            port,
				"connect_time_ms": float64(res.ConnectTime.Microseconds()) / 1000,
			})
			continue
		}
		unreachable = append(unreachable, map[string]any{
			"provider":      name,
			"host":          host,
			"port":          port,
			"error_type":    string(res.ErrorCode.Category()),
			"error_message": res.ErrorDetail,
		})
	}
	return reachable, unreachable
}

// CheckSMTPConnectivity probes the submission port of each provider.
func CheckSMTPConnectivity(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_smtp_connectivity").
		Command(fmt.Sprintf("tcp probes of smtp submission port %d", smtpPort))
	reachable, unreachable := sweep(ctx, smtpServers, smtpPort)
	if len(reachable) == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "smtp providers"})
	}
	return b.Success(map[string]any{
		"reachable_servers":   reachable,
		"unreachable_servers": unreachable,
		"reachable":           len(reachable),
		"total":               len(smtpServers),
		"rating":              Rate(len(reachable), len(smtpServers)),
	})
}

// CheckIMAPConnectivity probes the IMAPS port of each provider.
func CheckIMAPConnectivity(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_imap_connectivity").
		Command(fmt.Sprintf("tcp probes of imaps port %d", imapPort))
	reachable, unreachable := sweep(ctx, imapServers, imapPort)
	if len(reachable) == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "imap providers"})
	}
	return b.Success(map[string]any{
		"reachable_servers":   reachable,
		"unreachable_servers": unreachable,
		"reachable":           len(reachable),
		"total":               len(imapServers),
		"rating":              Rate(len(reachable), len(imapServers)),
	})
}

// CheckAllEmailServices composes the SMTP and IMAP sweeps into one
// overall rating.
func CheckAllEmailServices(ctx context.Context, args map[string]any) *envelope.Result {
	b := envelope.New("check_all_email_services").
		Command("smtp and imap provider sweeps")

	smtpUp, smtpDown := sweep(ctx, smtpServers, smtpPort)
	imapUp, imapDown := sweep(ctx, imapServers, imapPort)

	total := len(smtpServers) + len(imapServers)
	reachable := len(smtpUp) + len(imapUp)
	if reachable == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "email providers"})
	}
	return b.Success(map[string]any{
		"smtp": map[string]any{
			"reachable_servers":   smtpUp,
			"unreachable_servers": smtpDown,
			"reachable":           len(smtpUp),
			"total":               len(smtpServers),
			"rating":              Rate(len(smtpUp), len(smtpServers)),
		},
		"imap": map[string]any{
			"reachable_servers":   imapUp,
			"unreachable_servers": imapDown,
			"reachable":           len(imapUp),
			"total":               len(imapServers),
			"rating":              Rate(len(imapUp), len(imapServers)),
		},
		"overall_rating": Rate(reachable, total),
	})
}
