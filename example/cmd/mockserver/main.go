// Standalone mock server farm for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/bdixprobe run --catalog example/mock_servers.txt
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// farm maps a port to the behaviour served on it.
var farm = map[string]http.HandlerFunc{
	":9001": func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	},
	":9002": func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(200+rand.Intn(400)) * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	},
	":9003": func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	},
	":9004": func(w http.ResponseWriter, r *http.Request) {
		select {} // accepts, never answers
	},
}

func main() {
	fmt.Println("Mock BDIX farm starting")
	fmt.Println("  :9001 fast 200, :9002 slow 200, :9003 always 503, :9004 never answers")
	fmt.Println()
	fmt.Println("Probe it with a catalog like:")
	fmt.Println("  fast,http://localhost:9001")
	fmt.Println("  slow,http://localhost:9002")
	fmt.Println("  erroring,http://localhost:9003")
	fmt.Println("  silent,http://localhost:9004")
	fmt.Println("  dead,http://localhost:9005")
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	errCh := make(chan error, len(farm))
	for addr, handler := range farm {
		go func(addr string, handler http.HandlerFunc) {
			errCh <- http.ListenAndServe(addr, handler)
		}(addr, handler)
	}

	if err := <-errCh; err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
