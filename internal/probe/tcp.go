package probe

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/shihabalter/bdixprobe/internal/catalog"
)

// TCPProber checks reachability with a bare TCP connect.
//
// It is cheaper than the HTTP prober and useful for servers that reject GET
// requests at the application layer but are plainly on the network. The
// configured timeout is attached to the dialer itself, so the connect cannot
// outlive the budget even under hard cancellation.
type TCPProber struct {
	dialer  *net.Dialer
	timeout time.Duration
}

// NewTCPProber creates a [TCPProber] with the given per-probe timeout.
func NewTCPProber(timeout time.Duration) *TCPProber {
	return &TCPProber{
		dialer:  &net.Dialer{Timeout: timeout},
		timeout: timeout,
	}
}

// Probe dials the endpoint's host and classifies the result. A successful
// connect is closed immediately; no bytes are exchanged.
func (p *TCPProber) Probe(ctx context.Context, ep catalog.Endpoint) Result {
	addr, err := hostPort(ep.URL)
	if err != nil {
		return Result{
			Name:      ep.Name,
			URL:       ep.URL,
			Outcome:   Failed,
			CheckedAt: time.Now(),
			Err:       err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	latency := time.Since(start)
	if err != nil {
		outcome, perr := classify(err)
		return Result{
			Name:      ep.Name,
			URL:       ep.URL,
			Outcome:   outcome,
			CheckedAt: time.Now(),
			Err:       perr,
		}
	}
	_ = conn.Close()

	return Result{
		Name:      ep.Name,
		URL:       ep.URL,
		Outcome:   Reachable,
		Latency:   latency,
		CheckedAt: time.Now(),
	}
}

// hostPort extracts a dialable host:port from an endpoint address,
// defaulting the port from the scheme (80 for http, 443 for https).
func hostPort(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid address %q: no host", rawURL)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
