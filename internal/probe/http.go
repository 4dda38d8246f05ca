package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shihabalter/bdixprobe/internal/catalog"
)

// connection pooling limits to prevent resource exhaustion on large catalogs
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// maxRedirects bounds redirect chains; BDIX media servers commonly bounce
// through one or two redirects before the index page.
const maxRedirects = 5

// HTTPProber checks reachability with an HTTP GET.
//
// The configured timeout is attached to every request as a context deadline,
// which the transport honours natively for dialing, TLS, and reads. That
// keeps hard cancellation from leaking sockets past the budget.
//
// Any 2xx status counts as reachable. Other statuses mean the server
// answered and refused, which is reported as Unreachable.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProber creates an [HTTPProber] with the given per-probe timeout.
//
// The underlying client pools connections with conservative per-host limits
// so a large catalog with repeated hosts does not exhaust sockets.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		timeout: timeout,
		client: &http.Client{
			// no client-level timeout: the per-request context deadline is
			// the single source of truth for the time budget
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Probe issues one GET against the endpoint and classifies the result.
func (p *HTTPProber) Probe(ctx context.Context, ep catalog.Endpoint) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return Result{
			Name:      ep.Name,
			URL:       ep.URL,
			Outcome:   Failed,
			CheckedAt: time.Now(),
			Err:       fmt.Errorf("invalid address: %w", err),
		}
	}

	resp, err := p.client.Do(req)
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

	// drain a little so the connection can be reused, then close
	_, _ = io.CopyN(io.Discard, resp.Body, 512)
	_ = resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{
			Name:      ep.Name,
			URL:       ep.URL,
			Outcome:   Reachable,
			Latency:   latency,
			CheckedAt: time.Now(),
		}
	}

	return Result{
		Name:      ep.Name,
		URL:       ep.URL,
		Outcome:   Unreachable,
		CheckedAt: time.Now(),
		Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
	}
}

// Close releases idle pooled connections. The prober stays usable; new
// connections are dialed on demand. Safe to call multiple times.
func (p *HTTPProber) Close() {
	if p == nil || p.client == nil {
		return
	}
	if transport, ok := p.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
