// Package serve provides the HTTP host for modalkit: the dialog document as
// a page, a JSON API over the dialog operations, and an SSE stream of
// document changes and confirm decisions.
package serve

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/marcus/modalkit/pkg/modal"
)

// ============================================================================
// Response Envelope
// ============================================================================

// Envelope is the standard response wrapper for all API responses.
// Success: {"ok": true, "data": {...}}
// Error:   {"ok": false, "error": {"code": "...", "message": "...", "details": ...}}
type Envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload holds structured error information.
type ErrorPayload struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError describes a single validation failure on a request field.
type FieldError struct {
	Field    string      `json:"field"`
	Rule     string      `json:"rule"`
	Value    interface{} `json:"value,omitempty"`
	Expected interface{} `json:"expected,omitempty"`
	Message  string      `json:"message"`
}

// Standard error codes mapped to HTTP status codes.
const (
	ErrValidation   = "validation_error" // 400
	ErrNotFound     = "not_found"        // 404
	ErrUnauthorized = "unauthorized"     // 401
	ErrUnavailable  = "unavailable"      // 503
	ErrInternal     = "internal"         // 500
)

// WriteSuccess writes a JSON success envelope with the given data and status.
func WriteSuccess(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{OK: true, Data: data}); err != nil {
		slog.Error("write success response", "err", err)
	}
}

// WriteError writes a JSON error envelope.
func WriteError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{
		OK: false,
		Error: &ErrorPayload{
			Code:    code,
			Message: message,
		},
	}); err != nil {
		slog.Error("write error response", "err", err)
	}
}

// WriteValidation writes a 400 validation_error response with field-level details.
func WriteValidation(w http.ResponseWriter, fields []FieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(Envelope{
		OK: false,
		Error: &ErrorPayload{
			Code:    ErrValidation,
			Message: "Validation failed",
			Details: fields,
		},
	}); err != nil {
		slog.Error("write validation response", "err", err)
	}
}

// ============================================================================
// ValidationError
// ============================================================================

// ValidationError is a set of field errors that can be shown in a dialog
// through modal.Extract.
type ValidationError struct {
	Title  string
	Fields []FieldError
}

// FirstError returns the message of the first field error.
func (v ValidationError) FirstError() string {
	if len(v.Fields) == 0 {
		return ""
	}
	if v.Fields[0].Message != "" {
		return v.Fields[0].Message
	}
	return v.Fields[0].Field + ": " + v.Fields[0].Rule
}

// ErrorTitle returns the configured title, if any.
func (v ValidationError) ErrorTitle() string { return v.Title }

// Error implements error.
func (v ValidationError) Error() string { return v.FirstError() }

// ============================================================================
// Modal DTO
// ============================================================================

// ModalDTO is the API representation of one dialog.
// Nullable fields use *string so they serialize as JSON null when nil.
type ModalDTO struct {
	ID      string  `json:"id"`
	Visible bool    `json:"visible"`
	Filled  bool    `json:"filled"`
	Loading bool    `json:"loading"`
	Title   *string `json:"title"`
	Error   *string `json:"error"`
	Content string  `json:"content"`
}

// ModalToDTO snapshots m. It must run on the UI loop.
func ModalToDTO(m *modal.Modal) ModalDTO {
	dto := ModalDTO{
		ID:      m.ID(),
		Visible: m.Visible(),
		Filled:  m.IsFilled(),
		Loading: m.GetContent().Find(".loader").Length() > 0,
		Title:   textOrNil(m.GetHeader().Find(".modal-title")),
		Error:   textOrNil(m.GetErrorMessage()),
	}
	dto.Content, _ = m.GetContent().Html()
	return dto
}

// ModalsToDTOs snapshots every dialog, returning [] rather than null.
func ModalsToDTOs(modals []*modal.Modal) []ModalDTO {
	out := make([]ModalDTO, 0, len(modals))
	for _, m := range modals {
		out = append(out, ModalToDTO(m))
	}
	return out
}

func textOrNil(sel *goquery.Selection) *string {
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(sel.First().Text())
	return &text
}

// ============================================================================
// Request Bodies
// ============================================================================

// ModalCreateBody is the request body for POST /v1/modals.
type ModalCreateBody struct {
	ID string `json:"id"`
}

// ContentBody is the request body for POST /v1/modals/{id}/content. Exactly
// one of HTML or Text must be set.
type ContentBody struct {
	HTML *string `json:"html"`
	Text *string `json:"text"`
}

// MarkupBody carries title or body markup.
type MarkupBody struct {
	HTML string `json:"html"`
}

// ErrorBody is the request body for POST /v1/modals/{id}/error. When Fields
// is set the first field error is shown and Message is ignored.
type ErrorBody struct {
	Title   string       `json:"title"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields"`
}

// ConfirmBody is the request body for POST /v1/confirm.
type ConfirmBody struct {
	Header      string `json:"header"`
	Body        string `json:"body"`
	ConfirmText string `json:"confirm_text"`
	CancelText  string `json:"cancel_text"`
}

// ClickBody is the request body for POST /v1/click.
type ClickBody struct {
	Path     []int  `json:"path"`
	Selector string `json:"selector"`
}

// ============================================================================
// Validation
// ============================================================================

// ValidateModalCreate validates a ModalCreateBody.
func ValidateModalCreate(body *ModalCreateBody) []FieldError {
	var errs []FieldError
	if body.ID == "" {
		errs = append(errs, FieldError{
			Field:   "id",
			Rule:    "required",
			Message: "id is required",
		})
	} else if strings.ContainsAny(body.ID, " \t\n#.[]>+~:\"'") {
		errs = append(errs, FieldError{
			Field:   "id",
			Rule:    "format",
			Value:   body.ID,
			Message: "id must be a plain element id",
		})
	}
	return errs
}

// ValidateContent validates a ContentBody.
func ValidateContent(body *ContentBody) []FieldError {
	if (body.HTML == nil) == (body.Text == nil) {
		return []FieldError{{
			Field:    "html",
			Rule:     "one_of",
			Expected: []string{"html", "text"},
			Message:  "exactly one of html or text is required",
		}}
	}
	return nil
}

// ValidateClick validates a ClickBody.
func ValidateClick(body *ClickBody) []FieldError {
	if len(body.Path) == 0 && body.Selector == "" {
		return []FieldError{{
			Field:    "path",
			Rule:     "one_of",
			Expected: []string{"path", "selector"},
			Message:  "path or selector is required",
		}}
	}
	return nil
}
