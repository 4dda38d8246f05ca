package main

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"time"
)

// FarmAddrs holds the addresses of the mock servers, one per behaviour.
type FarmAddrs struct {
	Fast     string // answers 200 immediately
	Slow     string // answers 200 after a delay
	Erroring string // answers 503
	Silent   string // accepts the connection but never answers
	Dead     string // nothing listening
}

// StartMockServerFarm spins up local servers covering each probe outcome.
// The servers live for the remainder of the process; the demo exits right
// after the run so no teardown is wired up.
func StartMockServerFarm() FarmAddrs {
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	erroring := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))

	silent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {} // hold the connection open forever
	}))

	// reserve a port and release it so nothing is listening there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		slog.Error("failed to reserve dead port", "error", err)
		ln = nil
	}
	dead := "127.0.0.1:1"
	if ln != nil {
		dead = ln.Addr().String()
		_ = ln.Close()
	}

	return FarmAddrs{
		Fast:     fast.URL,
		Slow:     slow.URL,
		Erroring: erroring.URL,
		Silent:   silent.URL,
		Dead:     "http://" + dead,
	}
}
