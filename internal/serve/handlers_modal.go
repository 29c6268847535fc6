package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/marcus/modalkit/internal/dom"
	"github.com/marcus/modalkit/pkg/modal"
)

// ============================================================================
// GET /health
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rev, _ := s.revision(r.Context())

	WriteSuccess(w, map[string]interface{}{
		"status":      "ok",
		"instance_id": s.instanceID,
		"revision":    rev,
	}, http.StatusOK)
}

// ============================================================================
// GET /v1/modals
// ============================================================================

// handleListModals lists the registry. The optional q parameter fuzzy-matches
// dialog ids, best match first.
func (s *Server) handleListModals(w http.ResponseWriter, r *http.Request) {
	var dtos []ModalDTO
	if err := s.onLoop(r.Context(), func() {
		dtos = ModalsToDTOs(s.ui.Modals())
	}); err != nil {
		WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		dtos = filterModals(dtos, q)
	}

	WriteSuccess(w, map[string]interface{}{
		"modals": dtos,
		"count":  len(dtos),
	}, http.StatusOK)
}

// modalIDs adapts a DTO slice to fuzzy.Source.
type modalIDs []ModalDTO

func (m modalIDs) String(i int) string { return m[i].ID }
func (m modalIDs) Len() int            { return len(m) }

func filterModals(dtos []ModalDTO, q string) []ModalDTO {
	matches := fuzzy.FindFrom(q, modalIDs(dtos))
	out := make([]ModalDTO, 0, len(matches))
	for _, match := range matches {
		out = append(out, dtos[match.Index])
	}
	return out
}

// ============================================================================
// POST /v1/modals
// ============================================================================

func (s *Server) handleCreateModal(w http.ResponseWriter, r *http.Request) {
	var body ModalCreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, ErrValidation, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if errs := ValidateModalCreate(&body); len(errs) > 0 {
		WriteValidation(w, errs)
		return
	}

	var dto ModalDTO
	if err := s.onLoop(r.Context(), func() {
		dto = ModalToDTO(s.ui.New(body.ID))
	}); err != nil {
		WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{"modal": dto}, http.StatusCreated)
}

// ============================================================================
// GET /v1/modals/{id}
// ============================================================================

func (s *Server) handleGetModal(w http.ResponseWriter, r *http.Request) {
	dto, ok := s.withModal(w, r, nil)
	if !ok {
		return
	}
	WriteSuccess(w, map[string]interface{}{"modal": dto}, http.StatusOK)
}

// ============================================================================
// POST /v1/modals/{id}/content
// ============================================================================

// handleContent replaces the dialog content and waits for augmentation to
// finish. Render failures are shown in the dialog and reported in
// content_error; the request itself still succeeds.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	var body ContentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, ErrValidation, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if errs := ValidateContent(&body); len(errs) > 0 {
		WriteValidation(w, errs)
		return
	}

	var c modal.Content
	if body.HTML != nil {
		c = modal.HTML(*body.HTML)
	} else {
		c = modal.Text(*body.Text)
	}

	var done *modal.Completion
	if _, ok := s.withModal(w, r, func(m *modal.Modal) {
		done = m.Content(c, nil)
	}); !ok {
		return
	}
	s.finish(w, r, done)
}

// ============================================================================
// POST /v1/modals/{id}/title, /body
// ============================================================================

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	s.handleMarkup(w, r, (*modal.Modal).SetTitle)
}

func (s *Server) handleBody(w http.ResponseWriter, r *http.Request) {
	s.handleMarkup(w, r, (*modal.Modal).SetBody)
}

func (s *Server) handleMarkup(w http.ResponseWriter, r *http.Request, set func(*modal.Modal, string)) {
	var body MarkupBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, ErrValidation, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	dto, ok := s.withModal(w, r, func(m *modal.Modal) {
		set(m, body.HTML)
	})
	if !ok {
		return
	}
	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{"modal": dto}, http.StatusOK)
}

// ============================================================================
// POST /v1/modals/{id}/error
// ============================================================================

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	var body ErrorBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, ErrValidation, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	in := modal.Message(body.Title, body.Message)
	if len(body.Fields) > 0 {
		in = modal.Extract(ValidationError{Title: body.Title, Fields: body.Fields})
	}

	dto, ok := s.withModal(w, r, func(m *modal.Modal) {
		m.Error(in)
	})
	if !ok {
		return
	}
	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{"modal": dto}, http.StatusOK)
}

// ============================================================================
// POST /v1/modals/{id}/show, /loader, /clear-error, /close
// ============================================================================

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	dto, ok := s.withModal(w, r, (*modal.Modal).Show)
	if !ok {
		return
	}
	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{"modal": dto}, http.StatusOK)
}

func (s *Server) handleLoader(w http.ResponseWriter, r *http.Request) {
	dto, ok := s.withModal(w, r, (*modal.Modal).Loader)
	if !ok {
		return
	}
	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{"modal": dto}, http.StatusOK)
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	var done *modal.Completion
	if _, ok := s.withModal(w, r, func(m *modal.Modal) {
		if m.GetErrorMessage().Length() == 0 {
			return
		}
		m.ClearErrorMessage()
		done = s.afterFades()
	}); !ok {
		return
	}
	s.finish(w, r, done)
}

// handleClose fades the dialog out and responds once it has been reset.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var done *modal.Completion
	if _, ok := s.withModal(w, r, func(m *modal.Modal) {
		done = m.Close()
	}); !ok {
		return
	}
	s.finish(w, r, done)
}

// ============================================================================
// POST /v1/modals/close-all
// ============================================================================

func (s *Server) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	var dones []*modal.Completion
	if err := s.onLoop(r.Context(), func() {
		dones = s.ui.CloseAll()
	}); err != nil {
		WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
		return
	}

	for _, done := range dones {
		if err := await(r.Context(), done); err != nil {
			WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{"closed": len(dones)}, http.StatusOK)
}

// ============================================================================
// POST /v1/click
// ============================================================================

// handleClick dispatches a click into the document, addressed either by a
// child-index path from <body> or by a selector.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var body ClickBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, ErrValidation, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if errs := ValidateClick(&body); len(errs) > 0 {
		WriteValidation(w, errs)
		return
	}

	var clickErr error
	if err := s.onLoop(r.Context(), func() {
		doc := s.ui.Document()
		if len(body.Path) > 0 {
			clickErr = doc.ClickPath(body.Path)
		} else {
			clickErr = doc.Click(body.Selector)
		}
	}); err != nil {
		WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
		return
	}

	if clickErr != nil {
		if errors.Is(clickErr, dom.ErrNoMatch) {
			WriteError(w, ErrNotFound, clickErr.Error(), http.StatusNotFound)
			return
		}
		slog.Error("click", "err", clickErr)
		WriteError(w, ErrInternal, "click failed", http.StatusInternalServerError)
		return
	}

	// Handlers may have scheduled fades; let them settle before reporting.
	if err := await(r.Context(), s.afterFades()); err != nil {
		WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{"clicked": true}, http.StatusOK)
}

// ============================================================================
// Helpers
// ============================================================================

// withModal runs fn on the loop against the dialog named by the {id} path
// value and returns a snapshot taken right after. It writes the error
// response itself and reports false when the request cannot continue.
func (s *Server) withModal(w http.ResponseWriter, r *http.Request, fn func(m *modal.Modal)) (ModalDTO, bool) {
	id := r.PathValue("id")

	var dto ModalDTO
	found := false
	if err := s.onLoop(r.Context(), func() {
		m := s.ui.Lookup(id)
		if m == nil {
			return
		}
		found = true
		if fn != nil {
			fn(m)
		}
		dto = ModalToDTO(m)
	}); err != nil {
		WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
		return dto, false
	}

	if !found {
		WriteError(w, ErrNotFound, fmt.Sprintf("modal not found: %s", id), http.StatusNotFound)
		return dto, false
	}
	return dto, true
}

// finish waits for done, takes a fresh snapshot and writes it together with
// any failure the operation recovered.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, done *modal.Completion) {
	if err := await(r.Context(), done); err != nil {
		WriteError(w, ErrUnavailable, err.Error(), http.StatusServiceUnavailable)
		return
	}

	dto, ok := s.withModal(w, r, nil)
	if !ok {
		return
	}

	var opErr *string
	if done != nil && done.Err() != nil {
		msg := done.Err().Error()
		opErr = &msg
	}

	s.NotifyChange(r.Context())
	WriteSuccess(w, map[string]interface{}{
		"modal":         dto,
		"content_error": opErr,
	}, http.StatusOK)
}

// afterFades returns a completion that resolves once every transition
// scheduled so far has run.
func (s *Server) afterFades() *modal.Completion {
	return modal.After(s.loop, s.ui.Config().FadeDuration()+time.Millisecond)
}

// await blocks until done resolves or ctx ends. A nil completion is already
// resolved.
func await(ctx context.Context, done *modal.Completion) error {
	if done == nil {
		return nil
	}
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
