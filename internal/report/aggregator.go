// Package report accumulates probe results into a run report.
//
// The Aggregator is the single writer of run state: the runner's result
// stream is appended under a mutex, readers take consistent snapshots at any
// time, and subscribers get a live feed for progress display. Once the
// stream has ended, Final exposes the complete report with the reachable
// subset ranked by latency.
package report

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shihabalter/bdixprobe/internal/catalog"
	"github.com/shihabalter/bdixprobe/internal/probe"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind than this misses updates instead of blocking the run.
const subscriberBuffer = 128

// Progress is a point-in-time view of a run, safe to read while probes are
// still reporting.
type Progress struct {
	// Completed is how many endpoints have reported so far.
	Completed int `json:"completed"`

	// Total is the catalog size for this run.
	Total int `json:"total"`

	// Latest is the most recently recorded result, nil before the first.
	Latest *probe.Result `json:"latest,omitempty"`

	// Finished reports whether the result stream has ended.
	Finished bool `json:"finished"`
}

// Report is the final outcome of a run, available once the stream has ended.
type Report struct {
	// Results holds every recorded result in completion order.
	Results []probe.Result

	// Reachable is the subset of working endpoints, sorted by ascending
	// latency with ties broken by catalog order.
	Reachable []probe.Result
}

// Aggregator collects the results of one run.
//
// All methods are safe for concurrent use. Record is the only mutation
// path; everything else reads under the same lock or copies out.
type Aggregator struct {
	mu        sync.RWMutex
	total     int
	order     map[string]int
	results   []probe.Result
	finalized bool

	subMu       sync.RWMutex
	subscribers map[chan probe.Result]struct{}
}

// New creates an Aggregator for a run over the given catalog. The catalog
// supplies the total count and the tie-break order for the final ranking.
func New(endpoints []catalog.Endpoint) *Aggregator {
	order := make(map[string]int, len(endpoints))
	for i, ep := range endpoints {
		order[ep.Name] = i
	}
	return &Aggregator{
		total:       len(endpoints),
		order:       order,
		results:     make([]probe.Result, 0, len(endpoints)),
		subscribers: make(map[chan probe.Result]struct{}),
	}
}

// Record appends one result. Insertion order is completion order, which is
// deliberately not the catalog order. Subscribers are notified without
// blocking.
func (a *Aggregator) Record(res probe.Result) {
	a.mu.Lock()
	a.results = append(a.results, res)
	a.mu.Unlock()

	a.notify(res)
}

// Snapshot returns the current progress. Safe to call at any time,
// including concurrently with Record.
func (a *Aggregator) Snapshot() Progress {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p := Progress{
		Completed: len(a.results),
		Total:     a.total,
		Finished:  a.finalized,
	}
	if len(a.results) > 0 {
		latest := a.results[len(a.results)-1]
		p.Latest = &latest
	}
	return p
}

// Results returns a copy of everything recorded so far, in completion order.
func (a *Aggregator) Results() []probe.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]probe.Result, len(a.results))
	copy(out, a.results)
	return out
}

// Finalize marks the result stream as ended and closes all subscriber
// channels. Idempotent. After Finalize, Record must not be called.
func (a *Aggregator) Finalize() {
	a.mu.Lock()
	already := a.finalized
	a.finalized = true
	a.mu.Unlock()
	if already {
		return
	}

	a.subMu.Lock()
	for ch := range a.subscribers {
		close(ch)
		delete(a.subscribers, ch)
	}
	a.subMu.Unlock()
}

// Final returns the completed report. It fails while the stream is still
// open, since the reachable ranking is only meaningful over a full run.
func (a *Aggregator) Final() (Report, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.finalized {
		return Report{}, fmt.Errorf("run still in progress (%d/%d)", len(a.results), a.total)
	}

	rep := Report{Results: make([]probe.Result, len(a.results))}
	copy(rep.Results, a.results)

	for _, res := range a.results {
		if res.OK() {
			rep.Reachable = append(rep.Reachable, res)
		}
	}
	sort.SliceStable(rep.Reachable, func(i, j int) bool {
		ri, rj := rep.Reachable[i], rep.Reachable[j]
		if ri.Latency != rj.Latency {
			return ri.Latency < rj.Latency
		}
		return a.order[ri.Name] < a.order[rj.Name]
	})

	return rep, nil
}

// Subscribe returns a channel receiving every result recorded after the
// call. The channel is buffered; slow consumers miss updates rather than
// slowing the run. It closes on Finalize, and arrives already closed when
// the run has ended. Callers must Unsubscribe when done earlier than that.
func (a *Aggregator) Subscribe() <-chan probe.Result {
	ch := make(chan probe.Result, subscriberBuffer)

	a.subMu.Lock()
	defer a.subMu.Unlock()

	a.mu.RLock()
	finalized := a.finalized
	a.mu.RUnlock()
	if finalized {
		close(ch)
		return ch
	}

	a.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// with an already-removed channel.
func (a *Aggregator) Unsubscribe(ch <-chan probe.Result) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for subCh := range a.subscribers {
		if subCh == ch {
			delete(a.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notify fans a result out to subscribers without blocking.
func (a *Aggregator) notify(res probe.Result) {
	a.subMu.RLock()
	defer a.subMu.RUnlock()

	for ch := range a.subscribers {
		select {
		case ch <- res:
		default:
			// subscriber is slow, drop the update
		}
	}
}
