package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/haasonsaas/netprobe/internal/envelope"
)

// TCPResult records the outcome of a single TCP connect probe.
type TCPResult struct {
	Host        string
	Port        int
	Connected   bool
	ConnectTime time.Duration
	ErrorCode   envelope.Code
	ErrorDetail string
}

// TCPConnect dials (host, port) with the given timeout and classifies any
// failure into the network taxonomy.
func TCPConnect(ctx context.Context, host string, port int, timeout time.Duration) TCPResult {
	res := TCPResult{Host: host, Port: port}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	d := net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)
	res.ConnectTime = time.Since(start)
	if err != nil {
		res.ErrorCode, res.ErrorDetail = ClassifyNetError(err)
		return res
	}
	conn.Close()
	res.Connected = true
	return res
}

// ClassifyNetError maps a dial/read error onto the taxonomy's network
// codes: timeout, dns_resolution, connection_failed, or unreachable.
func ClassifyNetError(err error) (envelope.Code, string) {
	if err == nil {
		return "", ""
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return envelope.CodeDNSResolution, dnsErr.Error()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return envelope.CodeTimeout, err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return envelope.CodeTimeout, err.Error()
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return envelope.CodeConnectionFailed, err.Error()
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return envelope.CodeUnreachable, err.Error()
	}
	// String probing as a last resort; some platforms wrap the syscall
	// errno beyond errors.Is reach.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such host"):
		return envelope.CodeDNSResolution, msg
	case strings.Contains(msg, "refused"):
		return envelope.CodeConnectionFailed, msg
	case strings.Contains(msg, "unreachable"):
		return envelope.CodeUnreachable, msg
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return envelope.CodeTimeout, msg
	}
	return envelope.CodeConnectionFailed, msg
}

// UDPExchange sends a datagram to addr and waits for one reply within the
// timeout. Used by the NTP probe.
func UDPExchange(ctx context.Context, addr string, request []byte, timeout time.Duration, replySize int) ([]byte, time.Duration, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, 0, err
	}

	start := time.Now()
	if _, err := conn.Write(request); err != nil {
		return nil, 0, err
	}
	reply := make([]byte, replySize)
	n, err := conn.Read(reply)
	rtt := time.Since(start)
	if err != nil {
		return nil, rtt, err
	}
	return reply[:n], rtt, nil
}

// LocalIP discovers the host's primary outbound IPv4 address using the
// UDP-connect trick: no packet is sent, the kernel just picks the source
// address it would use to reach a public destination.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("determine local address: %w", err)
	}
	defer conn.Close()
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", errors.New("unexpected local address type")
	}
	return local.IP.String(), nil
}
