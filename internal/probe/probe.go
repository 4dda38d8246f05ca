// Package probe performs single-endpoint reachability checks.
//
// A probe attempts one connection to one endpoint under a fixed time budget
// and reports the outcome as data. Probes never return a Go error to the
// caller and never touch shared state; every failure mode is encoded in the
// Result's Outcome field so that one bad endpoint can never abort a run.
//
// Two probers are provided: [HTTPProber] issues an HTTP GET and treats any
// 2xx response as success, since a served index page is what "working" means
// for these servers; [TCPProber] only checks that a TCP connection can be
// established.
package probe

import (
	"context"
	"time"

	"github.com/shihabalter/bdixprobe/internal/catalog"
)

// Outcome is the verdict of a single probe.
//
// The four outcomes are mutually exclusive:
//   - [Reachable]: the endpoint answered positively within the budget.
//   - [Unreachable]: the endpoint answered, but negatively (refused the
//     connection, reset it, or returned a non-2xx HTTP status).
//   - [TimedOut]: no response of any kind within the budget.
//   - [Failed]: the probe could not even be attempted (address malformed,
//     name resolution failed, or an unexpected transport fault).
type Outcome string

const (
	Reachable   Outcome = "reachable"
	Unreachable Outcome = "unreachable"
	TimedOut    Outcome = "timed_out"
	Failed      Outcome = "error"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// Result records the verdict of probing one endpoint. It is immutable once
// returned; ownership passes to the aggregator when reported.
type Result struct {
	// Name is the endpoint's catalog identifier.
	Name string

	// URL is the address that was probed.
	URL string

	// Outcome is the probe verdict.
	Outcome Outcome

	// Latency is the time to a positive answer. Only meaningful when
	// Outcome is Reachable.
	Latency time.Duration

	// CheckedAt is when the probe completed.
	CheckedAt time.Time

	// Err carries detail for Unreachable and Failed outcomes, nil otherwise.
	Err error
}

// OK reports whether the endpoint was reachable.
func (r Result) OK() bool {
	return r.Outcome == Reachable
}

// Prober runs one reachability check against one endpoint.
//
// Implementations must respect ctx cancellation and their configured
// deadline, must not mutate shared state, and must encode all failures in
// the returned Result rather than panicking or blocking indefinitely.
type Prober interface {
	Probe(ctx context.Context, ep catalog.Endpoint) Result
}
