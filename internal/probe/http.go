package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UserAgent identifies the engine in outbound HTTP requests.
const UserAgent = "netprobe/1.0 (network diagnostics)"

// bodyPreviewLimit bounds how much of a response body is retained.
const bodyPreviewLimit = 500

// HTTPOptions tunes a single HTTP fetch.
type HTTPOptions struct {
	Timeout         time.Duration
	FollowRedirects bool
	MaxRedirects    int
	InsecureTLS     bool
	ProxyURL        string
	UserAgent       string
}

// HTTPResult is the distilled outcome of one GET.
type HTTPResult struct {
	StatusCode    int
	ResponseTime  time.Duration
	FinalURL      string
	RedirectCount int
	Server        string
	ContentType   string
	ContentLength string
	BodyPreview   string
	TLS           *CertSummary
}

// CertSummary captures the peer certificate fields the web probes report.
type CertSummary struct {
	Subject            string
	Issuer             string
	SerialNumber       string
	NotBefore          time.Time
	NotAfter           time.Time
	DaysUntilExpiry    int
	SANs               []string
	SignatureAlgorithm string
	KeyBits            int
	SelfSigned         bool
	Expired            bool
}

// Get performs a single HTTP(S) GET with the configured limits and
// returns the distilled result. A scheme-less URL is assumed https.
func Get(ctx context.Context, rawURL string, opts HTTPOptions) (*HTTPResult, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: opts.InsecureTLS,
		},
	}
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	redirects := 0
	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !opts.FollowRedirects {
				return http.ErrUseLastResponse
			}
			redirects = len(via)
			if len(via) >= opts.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", opts.MaxRedirects)
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLimit))

	result := &HTTPResult{
		StatusCode:    resp.StatusCode,
		ResponseTime:  elapsed,
		FinalURL:      resp.Request.URL.String(),
		RedirectCount: redirects,
		Server:        resp.Header.Get("Server"),
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.Header.Get("Content-Length"),
		BodyPreview:   string(preview),
	}
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		result.TLS = summarizeCert(resp.TLS.PeerCertificates[0], time.Now())
	}
	return result, nil
}

// TLSPeek opens a TLS session to (host, port) and returns the peer
// certificate summary without transferring application data. TLS 1.2 is
// the floor; verification failures still return the presented chain so
// self-signed certificates can be reported rather than hidden.
func TLSPeek(ctx context.Context, host string, port int, timeout time.Duration) (*CertSummary, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	d := net.Dialer{Timeout: timeout}
	rawConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer rawConn.Close()

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = rawConn.SetDeadline(deadline)

	conn := tls.Client(rawConn, &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		// Verification handled manually below so the chain is still
		// inspectable when it fails.
		InsecureSkipVerify: true,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no peer certificate presented by %s", addr)
	}

	summary := summarizeCert(certs[0], time.Now())

	pool := x509.NewCertPool()
	for _, c := range certs[1:] {
		pool.AddCert(c)
	}
	_, verifyErr := certs[0].Verify(x509.VerifyOptions{
		DNSName:       host,
		Intermediates: pool,
	})
	if verifyErr != nil && isSelfSigned(certs[0]) {
		summary.SelfSigned = true
	}
	return summary, nil
}

func summarizeCert(cert *x509.Certificate, now time.Time) *CertSummary {
	days := int(cert.NotAfter.Sub(now).Hours() / 24)
	keyBits := 0
	if cert.PublicKey != nil {
		type bitSizer interface{ Size() int }
		if k, ok := cert.PublicKey.(bitSizer); ok {
			keyBits = k.Size() * 8
		}
	}
	return &CertSummary{
		Subject:            cert.Subject.String(),
		Issuer:             cert.Issuer.String(),
		SerialNumber:       cert.SerialNumber.String(),
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
		DaysUntilExpiry:    days,
		SANs:               cert.DNSNames,
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		KeyBits:            keyBits,
		SelfSigned:         isSelfSigned(cert),
		Expired:            now.After(cert.NotAfter),
	}
}

func isSelfSigned(cert *x509.Certificate) bool {
	if cert.Subject.String() != cert.Issuer.String() {
		return false
	}
	return cert.CheckSignatureFrom(cert) == nil
}
