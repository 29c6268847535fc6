package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ============================================================================
// SSE Event Types
// ============================================================================

// SSEEvent represents a single Server-Sent Event.
type SSEEvent struct {
	ID    string // document revision used as event ID
	Event string // "refresh", "ping" or "decision"
	Data  string // JSON payload
}

// refreshData is the JSON payload for a refresh event.
type refreshData struct {
	Revision  string `json:"revision"`
	Timestamp string `json:"timestamp"`
}

// pingData is the JSON payload for a ping event.
type pingData struct {
	Revision string `json:"revision"`
}

// RevisionFunc reports the current document revision.
type RevisionFunc func(ctx context.Context) (string, error)

// ============================================================================
// SSE Hub
// ============================================================================

// SSEHub manages connected SSE clients and broadcasts events.
type SSEHub struct {
	revision     RevisionFunc
	pollInterval time.Duration
	pingInterval time.Duration

	mu      sync.Mutex
	clients map[chan SSEEvent]struct{}
	last    string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSSEHub creates a new SSEHub that polls revision every pollInterval.
func NewSSEHub(revision RevisionFunc, pollInterval time.Duration) *SSEHub {
	return &SSEHub{
		revision:     revision,
		pollInterval: pollInterval,
		pingInterval: 30 * time.Second,
		clients:      make(map[chan SSEEvent]struct{}),
		done:         make(chan struct{}),
	}
}

// Start begins the background polling goroutine that checks for revision
// changes and sends periodic pings.
func (h *SSEHub) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)

	go h.run(ctx)
}

// Stop shuts down the SSE hub, closing all client channels and stopping the
// polling goroutine.
func (h *SSEHub) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

// register adds a client channel and returns it.
func (h *SSEHub) register() chan SSEEvent {
	ch := make(chan SSEEvent, 16) // buffered to avoid blocking broadcasts
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("sse: client registered", "clients", n)
	return ch
}

// unregister removes a client channel and closes it.
func (h *SSEHub) unregister(ch chan SSEEvent) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("sse: client unregistered", "clients", n)
}

// Check compares the current revision with the last one seen and broadcasts
// a refresh when it changed. It reports whether it did.
func (h *SSEHub) Check(ctx context.Context) bool {
	rev, err := h.revision(ctx)
	if err != nil {
		slog.Debug("sse: poll revision error", "err", err)
		return false
	}

	h.mu.Lock()
	changed := rev != h.last
	h.last = rev
	h.mu.Unlock()

	if changed {
		h.Broadcast(rev)
	}
	return changed
}

// Broadcast sends a refresh event to all connected clients.
func (h *SSEHub) Broadcast(rev string) {
	h.send(SSEEvent{
		ID:    rev,
		Event: "refresh",
		Data: marshalJSON(refreshData{
			Revision:  rev,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}),
	})
}

// BroadcastDecision sends a decision event to all connected clients.
func (h *SSEHub) BroadcastDecision(d Decision) {
	h.mu.Lock()
	rev := h.last
	h.mu.Unlock()

	h.send(SSEEvent{
		ID:    rev,
		Event: "decision",
		Data:  marshalJSON(d),
	})
}

func (h *SSEHub) send(event SSEEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- event:
		default:
			// Client too slow, skip this event (next poll will catch up)
			slog.Debug("sse: dropped event for slow client", "event", event.Event)
		}
	}
}

// run is the background goroutine that polls the revision and sends pings.
func (h *SSEHub) run(ctx context.Context) {
	defer close(h.done)

	pollTicker := time.NewTicker(h.pollInterval)
	defer pollTicker.Stop()

	pingTicker := time.NewTicker(h.pingInterval)
	defer pingTicker.Stop()

	h.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case <-pollTicker.C:
			h.Check(ctx)

		case <-pingTicker.C:
			h.mu.Lock()
			rev := h.last
			h.mu.Unlock()
			h.send(SSEEvent{
				ID:    rev,
				Event: "ping",
				Data:  marshalJSON(pingData{Revision: rev}),
			})
		}
	}
}

// closeAllClients closes all registered client channels.
func (h *SSEHub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}
}

// ============================================================================
// SSE HTTP Handler
// ============================================================================

// handleEvents is the HTTP handler for GET /v1/events (SSE endpoint).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrInternal, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Long-lived stream: lift the server write deadline.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("sse: failed to clear write deadline", "err", err)
	}

	ch := s.sseHub.register()
	defer s.sseHub.unregister(ch)

	lastEventID := r.Header.Get("Last-Event-ID")
	current, _ := s.revision(r.Context())

	if lastEventID != "" && lastEventID != current {
		// Client reconnecting with a stale revision
		writeSSEEvent(w, flusher, SSEEvent{
			ID:    current,
			Event: "refresh",
			Data: marshalJSON(refreshData{
				Revision:  current,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}),
		})
	} else {
		writeSSEEvent(w, flusher, SSEEvent{
			ID:    current,
			Event: "ping",
			Data:  marshalJSON(pingData{Revision: current}),
		})
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				// Hub shutting down
				return
			}
			writeSSEEvent(w, flusher, event)
		}
	}
}

// writeSSEEvent writes a single SSE event to the response writer and flushes.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) {
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Event, event.Data)
	flusher.Flush()
}

// marshalJSON is a helper that marshals to JSON, returning "{}" on error.
func marshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ============================================================================
// Post-Write Notification
// ============================================================================

// NotifyChange is called after successful operations so SSE clients see the
// new revision without waiting for the next poll.
func (s *Server) NotifyChange(ctx context.Context) {
	s.sseHub.Check(ctx)
}
