// Package probe measures round-trip latency to a remote host. It is the external
// sample source for the monitor; nothing here classifies or stores samples.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Prober performs one latency measurement.
type Prober interface {
	Probe(ctx context.Context) (time.Duration, error)
}

// TCPProber measures the time to complete a TCP handshake.
type TCPProber struct {
	addr    string
	timeout time.Duration
}

// NewTCPProber targets host:port.
func NewTCPProber(addr string, timeout time.Duration) *TCPProber {
	return &TCPProber{addr: addr, timeout: timeout}
}

// Probe dials the target and closes the connection immediately.
func (p *TCPProber) Probe(ctx context.Context) (time.Duration, error) {
	dialer := net.Dialer{Timeout: p.timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", p.addr)
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, fmt.Errorf("tcp probe %s: %w", p.addr, err)
	}
	_ = conn.Close()
	return elapsed, nil
}

// HTTPProber measures a HEAD request round trip.
type HTTPProber struct {
	url        string
	httpClient *http.Client
}

// NewHTTPProber targets url with the given request timeout.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		url: strings.TrimSpace(url),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Probe issues a HEAD request; any HTTP status counts as a reply.
func (p *HTTPProber) Probe(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build probe request: %w", err)
	}
	start := time.Now()
	resp, err := p.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, fmt.Errorf("http probe %s: %w", p.url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return elapsed, nil
}

// New builds a prober for kind "tcp" or "http".
func New(kind, target string, timeout time.Duration) (Prober, error) {
	switch strings.ToLower(kind) {
	case "", "tcp":
		return NewTCPProber(target, timeout), nil
	case "http", "https":
		return NewHTTPProber(target, timeout), nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q", kind)
	}
}
