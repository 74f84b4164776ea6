// Package notify serves live watcher events to websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stmobo/thstat-sub001/internal/logging"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/watch"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Hub fans watcher events out to connected clients. It implements
// watch.Observer.
type Hub struct {
	mu       sync.RWMutex
	clients  map[chan []byte]struct{}
	latest   map[model.GameID]watch.Event
	closed   bool
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub returns an empty hub. A nil logger discards output.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[chan []byte]struct{}),
		latest:  make(map[model.GameID]watch.Event),
		log:     logging.OrDiscard(log),
	}
}

// Observe broadcasts ev. Slow clients miss events rather than block the
// watcher.
func (h *Hub) Observe(ev watch.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to encode event", "err", err)
		return
	}
	h.mu.Lock()
	if ev.Status != nil {
		// Late joiners get the state, not attempts already announced.
		st := *ev.Status
		st.New = nil
		latest := ev
		latest.Status = &st
		h.latest[ev.Game] = latest
	}
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			h.log.Debug("dropping event for slow client", "kind", ev.Kind)
		}
	}
}

// Snapshot returns the latest status event of every game, ordered by game.
func (h *Hub) Snapshot() []watch.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]watch.Event, 0, len(h.latest))
	for _, ev := range h.latest {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Game < out[j].Game })
	return out
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *Hub) subscribe() (chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan []byte, clientBuffer)
	h.clients[ch] = struct{}{}
	return ch, true
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// Handler returns the HTTP routes of the hub: /ws for the event stream and
// /status for the latest state as JSON.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/status", h.serveStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (h *Hub) serveStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Snapshot()); err != nil {
		h.log.Debug("failed to write status", "err", err)
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			// Best-effort close; the client may already be gone.
			_ = cerr
		}
	}()

	ch, ok := h.subscribe()
	if !ok {
		return
	}
	defer h.unsubscribe(ch)
	h.log.Debug("client connected", "remote", r.RemoteAddr)

	for _, ev := range h.Snapshot() {
		if err := writeJSON(conn, ev); err != nil {
			return
		}
	}

	// Reads only detect the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeTimeout))
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// Serve listens on addr until ctx is done, then disconnects clients and
// shuts the server down.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			h.log.Warn("server shutdown failed", "err", err)
		}
	}()
	h.log.Info("serving live events", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve live events: %w", err)
	}
	return nil
}
