// Package runner coordinates one probing run over a catalog.
//
// A Runner owns the bounded worker pool for a single run: endpoints are
// dispatched in catalog order to at most K concurrent probes, and results
// stream out in completion order on a channel that closes once every
// dispatched endpoint has reported. A fresh run means a fresh Runner; no
// state carries over between runs.
//
// Two cancellation modes are supported. Cancel stops dispatching new
// endpoints but lets in-flight probes finish and report (their own timeout
// bounds how long that takes). Abort additionally cancels the in-flight
// probes' contexts and discards whatever they were going to report.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shihabalter/bdixprobe/internal/catalog"
	"github.com/shihabalter/bdixprobe/internal/probe"
)

// Runner executes one probing run with bounded concurrency.
//
// Lifecycle methods are safe for concurrent use. Start is idempotent;
// Cancel and Abort may be called at any time, including before Start and
// after the run has completed, where they are no-ops.
type Runner struct {
	endpoints   []catalog.Endpoint
	prober      probe.Prober
	concurrency int
	logger      *slog.Logger

	results    chan probe.Result
	done       chan struct{}
	dispatched atomic.Int64
	aborted    atomic.Bool

	mu             sync.Mutex
	started        bool
	cancelled      bool
	cancelDispatch context.CancelFunc
	cancelProbes   context.CancelFunc
	closeOnce      sync.Once
}

// New creates a Runner for one pass over endpoints.
//
// concurrency bounds the number of simultaneously in-flight probes and must
// be at least 1. An empty endpoint list is valid and completes immediately
// with zero results.
func New(endpoints []catalog.Endpoint, prober probe.Prober, concurrency int, logger *slog.Logger) (*Runner, error) {
	if prober == nil {
		return nil, fmt.Errorf("prober must not be nil")
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
	}

	return &Runner{
		endpoints:   endpoints,
		prober:      prober,
		concurrency: concurrency,
		logger:      logger,
		// buffered to the catalog size so workers never block on reporting;
		// this is what lets graceful cancellation drain without a consumer
		results: make(chan probe.Result, len(endpoints)),
		done:    make(chan struct{}),
	}, nil
}

// Results returns the stream of probe results in completion order.
//
// The channel closes after every dispatched endpoint has reported, or after
// an abort has drained the in-flight work. Exactly one result is delivered
// per dispatched endpoint unless the run is aborted.
func (r *Runner) Results() <-chan probe.Result {
	return r.results
}

// Dispatched reports how many endpoints have been handed to workers so far.
func (r *Runner) Dispatched() int {
	return int(r.dispatched.Load())
}

// Start launches the run in background goroutines and returns immediately.
// Subsequent calls are no-ops. If Cancel was called before Start, no
// endpoint is dispatched and the results channel closes at once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	dispatchCtx, cancelDispatch := context.WithCancel(ctx)
	probeCtx, cancelProbes := context.WithCancel(ctx)
	r.cancelDispatch = cancelDispatch
	r.cancelProbes = cancelProbes
	if r.cancelled {
		cancelDispatch()
	}
	if r.aborted.Load() {
		cancelProbes()
	}
	r.mu.Unlock()

	jobs := make(chan catalog.Endpoint)

	var workers sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for ep := range jobs {
				res := r.prober.Probe(probeCtx, ep)
				if r.aborted.Load() {
					// hard cancel: the endpoint is abandoned, its
					// result is discarded rather than reported
					continue
				}
				r.results <- res
			}
		}()
	}

	// dispatcher: catalog order, stops on the first cancellation signal.
	// jobs is unbuffered, so a handed-over endpoint is by definition
	// in-flight and the pool never holds more than concurrency probes.
	go func() {
		defer close(jobs)
		for _, ep := range r.endpoints {
			// checked separately first: with idle workers waiting on jobs,
			// a two-way select against an already-cancelled context would
			// pick either case at random and sometimes dispatch anyway
			select {
			case <-dispatchCtx.Done():
				return
			default:
			}
			select {
			case jobs <- ep:
				r.dispatched.Add(1)
			case <-dispatchCtx.Done():
				return
			}
		}
	}()

	go func() {
		workers.Wait()
		r.closeOnce.Do(func() { close(r.results) })
		cancelDispatch()
		cancelProbes()
		close(r.done)
		if r.logger != nil {
			r.logger.Debug("run finished",
				"dispatched", r.Dispatched(),
				"total", len(r.endpoints),
				"aborted", r.aborted.Load(),
			)
		}
	}()
}

// Cancel requests graceful cancellation: no new endpoints are dispatched,
// in-flight probes run to completion and are reported. Idempotent, and safe
// to call before Start or after the run has finished.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
	if r.cancelDispatch != nil {
		r.cancelDispatch()
	}
}

// Abort requests hard cancellation: dispatch stops and in-flight probes are
// cancelled, their results discarded. Best-effort; the per-probe transport
// deadline bounds any connection the cancellation cannot reach. Idempotent.
func (r *Runner) Abort() {
	r.aborted.Store(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
	if r.cancelDispatch != nil {
		r.cancelDispatch()
	}
	if r.cancelProbes != nil {
		r.cancelProbes()
	}
}

// Wait blocks until the run has fully terminated and the results channel is
// closed. It does not consume results; callers draining Results do not need
// Wait.
func (r *Runner) Wait() {
	<-r.done
}
