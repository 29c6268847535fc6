package serve

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marcus/modalkit/internal/dom"
	"github.com/marcus/modalkit/internal/loop"
	"github.com/marcus/modalkit/internal/toggle"
	"github.com/marcus/modalkit/pkg/modal"
)

// ============================================================================
// Response Envelope Tests
// ============================================================================

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"id": "editModal"}, http.StatusCreated)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !env.OK {
		t.Error("ok = false, want true")
	}
	if env.Error != nil {
		t.Errorf("error should be nil, got %+v", env.Error)
	}

	dataMap, ok := env.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data type = %T, want map[string]interface{}", env.Data)
	}
	if dataMap["id"] != "editModal" {
		t.Errorf("data.id = %v, want editModal", dataMap["id"])
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrNotFound, "modal not found: nope", http.StatusNotFound)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.OK {
		t.Error("ok = true, want false")
	}
	if env.Data != nil {
		t.Errorf("data should be nil, got %+v", env.Data)
	}
	if env.Error == nil {
		t.Fatal("error should not be nil")
	}
	if env.Error.Code != ErrNotFound {
		t.Errorf("error.code = %q, want %q", env.Error.Code, ErrNotFound)
	}
	if env.Error.Message != "modal not found: nope" {
		t.Errorf("error.message = %q", env.Error.Message)
	}
}

func TestWriteValidation(t *testing.T) {
	w := httptest.NewRecorder()
	WriteValidation(w, []FieldError{{Field: "id", Rule: "required", Message: "id is required"}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Error == nil || env.Error.Code != ErrValidation {
		t.Fatalf("error = %+v, want validation_error", env.Error)
	}
	details, ok := env.Error.Details.([]interface{})
	if !ok || len(details) != 1 {
		t.Fatalf("details = %#v", env.Error.Details)
	}
}

// ============================================================================
// ValidationError Tests
// ============================================================================

func TestValidationErrorSource(t *testing.T) {
	tests := []struct {
		name      string
		err       ValidationError
		wantFirst string
	}{
		{"empty", ValidationError{}, ""},
		{"message", ValidationError{Fields: []FieldError{{Field: "email", Rule: "format", Message: "email is invalid"}, {Field: "name", Message: "second"}}}, "email is invalid"},
		{"no message", ValidationError{Fields: []FieldError{{Field: "email", Rule: "required"}}}, "email: required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.FirstError(); got != tt.wantFirst {
				t.Errorf("FirstError() = %q, want %q", got, tt.wantFirst)
			}
		})
	}
}

func TestValidationErrorInDialog(t *testing.T) {
	l := loop.New(nil)
	ui := modal.NewUI(dom.New(), l, modal.WithAnimator(toggle.NewFader(l, 0)))
	m := ui.New("form")

	m.Error(modal.Extract(ValidationError{
		Title:  "Check your input",
		Fields: []FieldError{{Field: "email", Rule: "format", Message: "email is invalid"}},
	}))

	dto := ModalToDTO(m)
	if dto.Title == nil || *dto.Title != "Check your input" {
		t.Errorf("title = %v", dto.Title)
	}
	if dto.Error == nil || *dto.Error != "email is invalid" {
		t.Errorf("error = %v", dto.Error)
	}
	if !dto.Visible {
		t.Error("error dialog should be visible")
	}
}

// ============================================================================
// DTO Tests
// ============================================================================

func TestModalToDTO(t *testing.T) {
	l := loop.New(nil)
	ui := modal.NewUI(dom.New(), l, modal.WithAnimator(toggle.NewFader(l, 0)))
	m := ui.New("m")

	dto := ModalToDTO(m)
	if dto.ID != "m" || dto.Visible || dto.Filled || !dto.Loading {
		t.Errorf("fresh dto = %+v", dto)
	}
	if dto.Title != nil || dto.Error != nil {
		t.Error("absent regions should serialize as null")
	}

	m.Content(modal.HTML(`<div class="modal-header"><h4 class="modal-title"> Edit </h4></div><div class="modal-body">x</div>`), nil)
	m.Show()
	l.Drain()

	dto = ModalToDTO(m)
	if !dto.Visible || !dto.Filled || dto.Loading {
		t.Errorf("filled dto = %+v", dto)
	}
	if dto.Title == nil || *dto.Title != "Edit" {
		t.Errorf("title = %v", dto.Title)
	}

	data, err := json.Marshal(ModalsToDTOs(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("empty list = %s, want []", data)
	}
}

// ============================================================================
// Validation Tests
// ============================================================================

func TestValidateModalCreate(t *testing.T) {
	tests := []struct {
		id       string
		wantRule string
	}{
		{"editModal", ""},
		{"", "required"},
		{"bad id", "format"},
		{"a.b", "format"},
		{"#x", "format"},
	}

	for _, tt := range tests {
		errs := ValidateModalCreate(&ModalCreateBody{ID: tt.id})
		if tt.wantRule == "" {
			if len(errs) != 0 {
				t.Errorf("id %q: unexpected errors %+v", tt.id, errs)
			}
			continue
		}
		if len(errs) != 1 || errs[0].Rule != tt.wantRule {
			t.Errorf("id %q: errs = %+v, want rule %s", tt.id, errs, tt.wantRule)
		}
	}
}

func TestValidateContent(t *testing.T) {
	html, text := "<p>x</p>", "x"
	if errs := ValidateContent(&ContentBody{HTML: &html}); len(errs) != 0 {
		t.Errorf("html only: %+v", errs)
	}
	if errs := ValidateContent(&ContentBody{Text: &text}); len(errs) != 0 {
		t.Errorf("text only: %+v", errs)
	}
	if errs := ValidateContent(&ContentBody{}); len(errs) != 1 {
		t.Error("neither should fail")
	}
	if errs := ValidateContent(&ContentBody{HTML: &html, Text: &text}); len(errs) != 1 {
		t.Error("both should fail")
	}
}

func TestValidateClick(t *testing.T) {
	if errs := ValidateClick(&ClickBody{}); len(errs) != 1 {
		t.Error("empty click should fail")
	}
	if errs := ValidateClick(&ClickBody{Path: []int{0}}); len(errs) != 0 {
		t.Errorf("path click: %+v", errs)
	}
	if errs := ValidateClick(&ClickBody{Selector: "#x"}); len(errs) != 0 {
		t.Errorf("selector click: %+v", errs)
	}
}
