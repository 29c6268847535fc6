package serve

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/modalkit/internal/dom"
	"github.com/marcus/modalkit/pkg/modal"
)

// Decision outcomes reported for a confirm request.
const (
	DecisionPending    = "pending"
	DecisionConfirm    = "confirm"
	DecisionCancel     = "cancel"
	DecisionSuperseded = "superseded"
)

// Decision is the state of one confirm request.
type Decision struct {
	RequestID string    `json:"request_id"`
	Decision  string    `json:"decision"`
	OpenedAt  time.Time `json:"opened_at"`
	DecidedAt *string   `json:"decided_at"`
}

// decisionLog tracks confirm requests. Only one request can be pending at a
// time since the shared confirm dialog holds a single pair of handlers.
type decisionLog struct {
	mu      sync.Mutex
	entries map[string]*Decision
	pending string
}

func newDecisionLog() *decisionLog {
	return &decisionLog{entries: make(map[string]*Decision)}
}

// open registers a new pending request and supersedes the previous one.
func (d *decisionLog) open(id string) *Decision {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.entries[d.pending]; ok && prev.Decision == DecisionPending {
		d.settle(prev, DecisionSuperseded)
	}
	entry := &Decision{RequestID: id, Decision: DecisionPending, OpenedAt: time.Now().UTC()}
	d.entries[id] = entry
	d.pending = id
	return entry
}

// decide records the outcome of a pending request. It reports false when the
// request is unknown or already settled.
func (d *decisionLog) decide(id, outcome string) (Decision, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[id]
	if !ok || entry.Decision != DecisionPending {
		return Decision{}, false
	}
	d.settle(entry, outcome)
	return *entry, true
}

func (d *decisionLog) get(id string) (Decision, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[id]
	if !ok {
		return Decision{}, false
	}
	return *entry, true
}

func (d *decisionLog) settle(entry *Decision, outcome string) {
	at := time.Now().UTC().Format(time.RFC3339)
	entry.Decision = outcome
	entry.DecidedAt = &at
}

// ============================================================================
// POST /v1/confirm
// ============================================================================

// handleConfirm opens the shared confirm dialog. The response carries a
// request id; the decision arrives later as a "decision" SSE event and can
// be polled at GET /v1/confirm/{request_id}. The decision entry is opened on
// the loop together with the dialog, so a request that gives up before the
// loop reaches it neither opens the dialog nor supersedes the pending one.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var body ConfirmBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, ErrValidation, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	reqID := uuid.NewString()

	cfg := modal.ConfirmConfig{
		Header:      body.Header,
		Body:        body.Body,
		ConfirmText: body.ConfirmText,
		CancelText:  body.CancelText,
		Confirm:     func(dom.Event) { s.decide(reqID, DecisionConfirm) },
		Cancel:      func(dom.Event) { s.decide(reqID, DecisionCancel) },
	}

	var dto ModalDTO
	if err := s.commitOnLoop(r.Context(), func() {
		s.decisions.open(reqID)
		s.ui.Confirm(cfg)
		dto = ModalToDTO(s.ui.GlobalConfirm().Modal)
	}); err != nil {
		WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{
		"request_id": reqID,
		"modal":      dto,
	}, http.StatusCreated)
}

// decide records an outcome and broadcasts it. It runs on the UI loop.
func (s *Server) decide(reqID, outcome string) {
	d, ok := s.decisions.decide(reqID, outcome)
	if !ok {
		return
	}
	s.sseHub.BroadcastDecision(d)
}

// ============================================================================
// GET /v1/confirm/{request_id}
// ============================================================================

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("request_id")
	d, ok := s.decisions.get(id)
	if !ok {
		WriteError(w, ErrNotFound, fmt.Sprintf("confirm request not found: %s", id), http.StatusNotFound)
		return
	}
	WriteSuccess(w, map[string]interface{}{"decision": d}, http.StatusOK)
}
