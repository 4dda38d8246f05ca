package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# fetched list\nftpbd.net\nctgmovies.com\n"))
	}))
	defer server.Close()

	endpoints, err := Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(endpoints) != 2 {
		t.Fatalf("Fetch() = %d endpoints, want 2", len(endpoints))
	}
	if endpoints[0].URL != "http://ftpbd.net" {
		t.Errorf("endpoints[0].URL = %q, want http://ftpbd.net", endpoints[0].URL)
	}
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Fetch() expected error on 404, got nil")
	}
}

func TestFetch_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# nothing here\n"))
	}))
	defer server.Close()

	if _, err := Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Fetch() expected error for empty list, got nil")
	}
}

func TestFetch_HonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Fetch(ctx, server.URL)
	if err == nil {
		t.Fatal("Fetch() expected error on expired context, got nil")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch() took %v after context expiry, want a prompt return", elapsed)
	}
}

func TestFetchToFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ftpbd.net\nctgmovies.com\nsamonline.net\n"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "bdix.txt")
	n, err := FetchToFile(context.Background(), server.URL, path)
	if err != nil {
		t.Fatalf("FetchToFile() error = %v", err)
	}
	if n != 3 {
		t.Errorf("FetchToFile() = %d servers, want 3", n)
	}

	endpoints, err := Load(path)
	if err != nil {
		t.Fatalf("Load() on fetched file error = %v", err)
	}
	if len(endpoints) != 3 {
		t.Errorf("fetched file parses to %d endpoints, want 3", len(endpoints))
	}
}
