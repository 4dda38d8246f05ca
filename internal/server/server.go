// Package server exposes a probing run over HTTP for an external UI shell.
//
// The API is deliberately small: trigger a run, watch its progress, cancel
// it. Progress is available three ways so any shell can pick its poison:
// a poll endpoint (/api/status), a Server-Sent Events stream (/api/events),
// and a WebSocket feed (/api/live).
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shihabalter/bdixprobe/internal/catalog"
	"github.com/shihabalter/bdixprobe/internal/probe"
	"github.com/shihabalter/bdixprobe/internal/report"
	"github.com/shihabalter/bdixprobe/internal/runner"
)

// sseWriteTimeout bounds a single SSE write so a dead client cannot park
// the handler goroutine forever.
const sseWriteTimeout = 5 * time.Second

// wsWriteTimeout bounds a single WebSocket write for the same reason.
const wsWriteTimeout = 5 * time.Second

// Server owns at most one probing run at a time and serves its state.
type Server struct {
	endpoints   []catalog.Endpoint
	prober      probe.Prober
	concurrency int
	port        int
	logger      *slog.Logger
	httpServer  *http.Server

	mu  sync.Mutex
	run *activeRun
}

// activeRun pairs a runner with the aggregator consuming its stream.
type activeRun struct {
	runner *runner.Runner
	agg    *report.Aggregator
	done   chan struct{}
}

func (ar *activeRun) finished() bool {
	select {
	case <-ar.done:
		return true
	default:
		return false
	}
}

// New creates a Server probing the given catalog on demand.
func New(endpoints []catalog.Endpoint, prober probe.Prober, concurrency, port int, logger *slog.Logger) *Server {
	return &Server{
		endpoints:   endpoints,
		prober:      prober,
		concurrency: concurrency,
		port:        port,
		logger:      logger,
	}
}

// Start begins serving in a background goroutine and returns once the
// listener is bound, so a port clash fails fast. The server shuts down
// gracefully when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/live", s.handleLive)
	mux.HandleFunc("/api/run", s.handleRun(ctx))
	mux.HandleFunc("/api/cancel", s.handleCancel)

	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: mux,
		// request contexts derive from the server context so long-lived
		// stream handlers end on shutdown, not just on client disconnect
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// StartRun begins a new probing run. It fails while another run is still in
// flight; a finished run is replaced.
func (s *Server) StartRun(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil && !s.run.finished() {
		return fmt.Errorf("a run is already in progress")
	}

	r, err := runner.New(s.endpoints, s.prober, s.concurrency, s.logger)
	if err != nil {
		return err
	}
	agg := report.New(s.endpoints)
	ar := &activeRun{runner: r, agg: agg, done: make(chan struct{})}

	r.Start(ctx)
	go func() {
		for res := range r.Results() {
			agg.Record(res)
		}
		agg.Finalize()
		close(ar.done)
	}()

	s.run = ar
	s.logger.Info("run started", "endpoints", len(s.endpoints), "concurrency", s.concurrency)
	return nil
}

// CancelRun cancels the current run, hard or gracefully. Calling it with no
// run in flight, or after completion, is a no-op.
func (s *Server) CancelRun(hard bool) {
	s.mu.Lock()
	ar := s.run
	s.mu.Unlock()

	if ar == nil || ar.finished() {
		return
	}
	if hard {
		ar.runner.Abort()
	} else {
		ar.runner.Cancel()
	}
	s.logger.Info("run cancelled", "hard", hard)
}

// current returns the active run, which may be nil or finished.
func (s *Server) current() *activeRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// resultView is the wire representation of a probe result.
type resultView struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Outcome   string    `json:"outcome"`
	LatencyMs int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
	Error     *string   `json:"error,omitempty"`
}

// statusView is the wire representation of run progress.
type statusView struct {
	Running   bool         `json:"running"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
	Results   []resultView `json:"results"`
}

func viewOf(res probe.Result) resultView {
	v := resultView{
		Name:      res.Name,
		URL:       res.URL,
		Outcome:   res.Outcome.String(),
		LatencyMs: res.Latency.Milliseconds(),
		CheckedAt: res.CheckedAt,
	}
	if res.Err != nil {
		msg := res.Err.Error()
		v.Error = &msg
	}
	return v
}

func (s *Server) statusSnapshot() statusView {
	ar := s.current()
	if ar == nil {
		return statusView{Results: []resultView{}}
	}

	snap := ar.agg.Snapshot()
	results := ar.agg.Results()
	views := make([]resultView, 0, len(results))
	for _, res := range results {
		views = append(views, viewOf(res))
	}
	return statusView{
		Running:   !ar.finished(),
		Completed: snap.Completed,
		Total:     snap.Total,
		Results:   views,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(s.statusSnapshot()); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

func (s *Server) handleRun(runCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// the run outlives the request, so it hangs off the server
		// context rather than the request context
		if err := s.StartRun(runCtx); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hard := r.URL.Query().Get("hard") == "true"
	s.CancelRun(hard)
	w.WriteHeader(http.StatusOK)
}

// handleEvents streams results via Server-Sent Events until the current run
// completes, the client disconnects, or the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	writeAndFlush := func(data []byte) error {
		_ = rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout))
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ar := s.current()

	// replay what has already completed so late subscribers see a full run
	var replay []probe.Result
	var live <-chan probe.Result
	if ar != nil {
		live = ar.agg.Subscribe()
		defer ar.agg.Unsubscribe(live)
		replay = ar.agg.Results()
	}
	sent := make(map[string]struct{}, len(replay))
	for _, res := range replay {
		data, err := json.Marshal(viewOf(res))
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
		sent[res.Name] = struct{}{}
	}
	if live == nil {
		return
	}

	for {
		select {
		case res, ok := <-live:
			if !ok {
				return
			}
			if _, dup := sent[res.Name]; dup {
				continue
			}
			data, err := json.Marshal(viewOf(res))
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
