package bdixprobe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shihabalter/bdixprobe/internal/catalog"
	"github.com/shihabalter/bdixprobe/internal/probe"
	"github.com/shihabalter/bdixprobe/internal/report"
	"github.com/shihabalter/bdixprobe/internal/runner"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultConcurrency = 32
)

// Endpoint is one server to probe: a display name and an address.
type Endpoint = catalog.Endpoint

// Result is the outcome of probing one endpoint.
type Result = probe.Result

// Outcome classifies how a probe ended.
type Outcome = probe.Outcome

// The possible probe outcomes.
const (
	Reachable   = probe.Reachable
	Unreachable = probe.Unreachable
	TimedOut    = probe.TimedOut
	Failed      = probe.Failed
)

// Report is a completed run: every result in completion order, plus the
// reachable subset ranked by ascending latency.
type Report = report.Report

// Prober performs a single connectivity check. The built-in HTTP and TCP
// probers cover most uses; supply your own via [WithProber] to change how
// endpoints are checked.
type Prober = probe.Prober

// Tester probes a catalog of endpoints and reports which are reachable.
//
// A Tester is created with [New] and functional options, and is reusable:
// each [Tester.Run] call is an independent pass over the catalog.
//
// The typical lifecycle is:
//
//	tester, err := bdixprobe.New(bdixprobe.WithEndpoints(endpoints...))
//	if err != nil {
//	    slog.Error("failed to create tester", "error", err)
//	    os.Exit(1)
//	}
//
//	rep, err := tester.Run(ctx)
//
// Cancel the context to stop a run early; the report then covers whatever
// completed before the cancellation.
type Tester struct {
	endpoints   []Endpoint
	prober      Prober
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
	callbacks   []func(Result)
}

// New creates a [Tester] with the given options.
//
// With no endpoint options the built-in server list is probed. Other
// defaults:
//   - Timeout: 5 seconds per probe
//   - Concurrency: 32 simultaneous probes
//   - Prober: HTTP GET
//
// Returns an error if any option is invalid or if endpoint names collide.
func New(opts ...Option) (*Tester, error) {
	cfg := &testerConfig{
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	endpoints := cfg.endpoints
	if len(endpoints) == 0 {
		endpoints = catalog.Default()
	}

	// names key result tracking, so they must be unique
	seen := make(map[string]bool, len(endpoints))
	for _, ep := range endpoints {
		if seen[ep.Name] {
			return nil, errors.New("duplicate endpoint name: " + ep.Name)
		}
		seen[ep.Name] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	prober := cfg.prober
	if prober == nil {
		if cfg.useTCP {
			prober = probe.NewTCPProber(cfg.timeout)
		} else {
			prober = probe.NewHTTPProber(cfg.timeout)
		}
	}

	return &Tester{
		endpoints:   endpoints,
		prober:      prober,
		timeout:     cfg.timeout,
		concurrency: cfg.concurrency,
		logger:      logger,
		callbacks:   cfg.callbacks,
	}, nil
}

// Run probes every endpoint once and returns the completed report.
//
// Run blocks until every endpoint has reported or ctx is cancelled.
// Callbacks registered with [WithResultCallback] fire for each result as it
// arrives, before Run returns. On cancellation the remaining endpoints are
// skipped and the report covers what completed.
func (t *Tester) Run(ctx context.Context) (Report, error) {
	run, err := runner.New(t.endpoints, t.prober, t.concurrency, t.logger)
	if err != nil {
		return Report{}, err
	}
	agg := report.New(t.endpoints)

	t.logger.Info("probing started",
		"endpoints", len(t.endpoints),
		"concurrency", t.concurrency,
		"timeout", t.timeout.String(),
	)

	run.Start(ctx)
	for res := range run.Results() {
		agg.Record(res)
		for _, cb := range t.callbacks {
			invokeCallbackSafe(cb, res, t.logger)
		}
	}
	agg.Finalize()

	rep, err := agg.Final()
	if err != nil {
		return Report{}, err
	}
	t.logger.Info("probing finished",
		"completed", len(rep.Results),
		"reachable", len(rep.Reachable),
	)
	return rep, nil
}

// Endpoints returns a copy of the catalog this Tester probes.
func (t *Tester) Endpoints() []Endpoint {
	cp := make([]Endpoint, len(t.endpoints))
	copy(cp, t.endpoints)
	return cp
}

// Timeout returns the per-probe timeout.
func (t *Tester) Timeout() time.Duration {
	return t.timeout
}

// Concurrency returns the maximum number of simultaneous probes.
func (t *Tester) Concurrency() int {
	return t.concurrency
}

// invokeCallbackSafe calls a result callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Result), res Result, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked",
				"panic", r,
				"endpoint", res.Name,
			)
		}
	}()
	cb(res)
}
