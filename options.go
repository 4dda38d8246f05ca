package bdixprobe

import (
	"errors"
	"log/slog"
	"time"

	"github.com/shihabalter/bdixprobe/internal/catalog"
)

// testerConfig holds mutable state during Tester construction.
type testerConfig struct {
	endpoints   []Endpoint
	prober      Prober
	useTCP      bool
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
	callbacks   []func(Result)
}

// Option configures a [Tester] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*testerConfig) error

// WithEndpoint adds a single endpoint to the catalog.
//
// The address is normalized the way catalog files are: a bare host gets an
// http:// prefix. Can be called multiple times.
//
// Example:
//
//	tester, err := bdixprobe.New(
//	    bdixprobe.WithEndpoint("FTP", "ftpbd.net"),
//	    bdixprobe.WithEndpoint("Movies", "http://ctgmovies.com"),
//	)
func WithEndpoint(name, address string) Option {
	return func(cfg *testerConfig) error {
		if name == "" {
			return errors.New("endpoint name cannot be empty")
		}
		if address == "" {
			return errors.New("endpoint address cannot be empty")
		}
		cfg.endpoints = append(cfg.endpoints, Endpoint{
			Name: name,
			URL:  catalog.Normalize(address),
		})
		return nil
	}
}

// WithEndpoints adds multiple endpoints to the catalog.
func WithEndpoints(endpoints ...Endpoint) Option {
	return func(cfg *testerConfig) error {
		cfg.endpoints = append(cfg.endpoints, endpoints...)
		return nil
	}
}

// WithCatalogFile loads the catalog from a server list file.
//
// The file holds one server per line, either a bare address or a
// "name,address" pair; blank lines and # comments are skipped. A previously
// exported working set is accepted as-is.
//
// Returns an error from [New] if the file cannot be read.
func WithCatalogFile(path string) Option {
	return func(cfg *testerConfig) error {
		endpoints, err := catalog.Load(path)
		if err != nil {
			return err
		}
		cfg.endpoints = append(cfg.endpoints, endpoints...)
		return nil
	}
}

// WithTimeout sets the per-probe timeout.
//
// Each endpoint gets this long to answer before its probe is marked timed
// out. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *testerConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithConcurrency sets the maximum number of simultaneous probes.
//
// Use this to trade run duration against network load. Defaults to 32.
//
// Returns an error if the value is zero or negative.
func WithConcurrency(n int) Option {
	return func(cfg *testerConfig) error {
		if n <= 0 {
			return errors.New("concurrency must be positive")
		}
		cfg.concurrency = n
		return nil
	}
}

// WithTCPProbe switches from HTTP GET probes to plain TCP connect checks.
//
// A TCP check only proves the port accepts connections; it is faster and
// cheaper than HTTP but says nothing about what the server answers.
func WithTCPProbe() Option {
	return func(cfg *testerConfig) error {
		cfg.useTCP = true
		return nil
	}
}

// WithProber replaces the built-in probers entirely.
//
// Any [Prober] implementation works; note that [WithTimeout] only shapes the
// built-in probers, a custom prober carries its own deadline.
//
// Returns an error if the prober is nil.
func WithProber(p Prober) Option {
	return func(cfg *testerConfig) error {
		if p == nil {
			return errors.New("prober cannot be nil")
		}
		cfg.prober = p
		return nil
	}
}

// WithLogger sets a custom [slog.Logger].
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *testerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithResultCallback registers a function called for every probe result.
//
// The callback receives each [Result] as it arrives, in completion order,
// before [Tester.Run] returns. Multiple callbacks may be registered; they
// execute in registration order.
//
// Callbacks are invoked synchronously from a single goroutine. Keep them
// fast: a blocking callback delays processing of subsequent results. Panics
// within callbacks are recovered and logged; they do not abort the run.
//
// Example:
//
//	bdixprobe.WithResultCallback(func(res bdixprobe.Result) {
//	    if res.Outcome == bdixprobe.Reachable {
//	        fmt.Printf("%s is up (%s)\n", res.Name, res.Latency)
//	    }
//	})
//
// Nil callbacks are silently ignored.
func WithResultCallback(cb func(Result)) Option {
	return func(cfg *testerConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
