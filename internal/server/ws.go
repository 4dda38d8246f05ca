package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// liveUpgrader only accepts same-host origins; the API is meant for a local
// UI shell, not the open web.
var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(r.Host), strings.TrimSpace(u.Host))
	},
}

// handleLive streams results over a WebSocket: first the current snapshot,
// then every new result until the run completes or the peer goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := writeLive(conn, statusUpdate(s.statusSnapshot())); err != nil {
		return
	}

	ar := s.current()
	if ar == nil || ar.finished() {
		return
	}

	live := ar.agg.Subscribe()
	defer ar.agg.Unsubscribe(live)

	// reader goroutine: we never expect messages, but reading is how the
	// peer's close frame is noticed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case res, ok := <-live:
			if !ok {
				// run finished; send the final snapshot and end
				_ = writeLive(conn, statusUpdate(s.statusSnapshot()))
				return
			}
			v := viewOf(res)
			if err := writeLive(conn, liveUpdate{Kind: "result", Result: &v}); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// liveUpdate is one frame of the WebSocket feed. Kind discriminates the
// payload: "status" carries a snapshot, "result" a single probe result.
type liveUpdate struct {
	Kind   string      `json:"kind"`
	Status *statusView `json:"status,omitempty"`
	Result *resultView `json:"result,omitempty"`
}

func statusUpdate(status statusView) liveUpdate {
	return liveUpdate{Kind: "status", Status: &status}
}

func writeLive(conn *websocket.Conn, payload liveUpdate) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(payload)
}
