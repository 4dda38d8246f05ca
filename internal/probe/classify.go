package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// classify maps a transport error to a probe outcome.
//
// The taxonomy follows three questions: did the budget run out (TimedOut),
// did the remote side give a definitive no (Unreachable), or could the probe
// not even be attempted (Failed)?
func classify(err error) (Outcome, error) {
	// unwrap the url.Error the http client wraps around everything
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimedOut, fmt.Errorf("no response within budget: %w", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimedOut, fmt.Errorf("no response within budget: %w", err)
	}

	if errors.Is(err, context.Canceled) {
		return Failed, fmt.Errorf("probe cancelled: %w", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Failed, fmt.Errorf("name resolution failed: %w", err)
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return Unreachable, fmt.Errorf("connection rejected: %w", err)
	}

	return Failed, err
}
