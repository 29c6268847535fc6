package modal

import (
	"testing"

	"github.com/marcus/modalkit/internal/config"
	"github.com/marcus/modalkit/internal/dom"
	"github.com/marcus/modalkit/internal/loader"
)

const (
	confirmBtn = "#globalModalConfirm [data-modal-confirm]"
	cancelBtn  = "#globalModalConfirm [data-modal-cancel]"
)

func TestConfirmDefaults(t *testing.T) {
	ui := newTestUI(t)
	ui.Confirm(ConfirmConfig{})

	c := ui.GlobalConfirm()
	if !c.Visible() {
		t.Fatal("confirm dialog should be shown")
	}
	if loader.Present(c.GetContent()) {
		t.Error("loader should be removed")
	}
	title, _ := c.GetHeader().Find(".modal-title").Html()
	if title != config.DefaultConfirmHeader {
		t.Errorf("title = %q, want %q", title, config.DefaultConfirmHeader)
	}
	if got := c.GetBody().Text(); got != config.DefaultConfirmBody {
		t.Errorf("body = %q", got)
	}
	doc := ui.Document()
	if got := doc.Find(confirmBtn).Text(); got != config.DefaultConfirmText {
		t.Errorf("confirm text = %q", got)
	}
	if got := doc.Find(cancelBtn).Text(); got != config.DefaultCancelText {
		t.Errorf("cancel text = %q", got)
	}
}

func TestConfirmUsesConfiguredDefaults(t *testing.T) {
	ui := newTestUI(t, WithConfig(&config.Config{ConfirmText: "Delete", ConfirmBody: "Really delete?"}))
	ui.Confirm(ConfirmConfig{CancelText: "Keep"})

	doc := ui.Document()
	if got := doc.Find(confirmBtn).Text(); got != "Delete" {
		t.Errorf("confirm text = %q, want Delete", got)
	}
	if got := doc.Find(cancelBtn).Text(); got != "Keep" {
		t.Errorf("cancel text = %q, want Keep", got)
	}
	if got := ui.GlobalConfirm().GetBody().Text(); got != "Really delete?" {
		t.Errorf("body = %q", got)
	}
}

func TestConfirmCallbackFiresOnce(t *testing.T) {
	ui := newTestUI(t)
	confirms := 0
	var target string
	ui.Confirm(ConfirmConfig{
		Confirm: func(evt dom.Event) {
			confirms++
			target, _ = evt.Target.Attr("data-modal-confirm")
		},
	})

	doc := ui.Document()
	if err := doc.Click(confirmBtn); err != nil {
		t.Fatal(err)
	}
	if err := doc.Click(confirmBtn); err != nil {
		t.Fatal(err)
	}

	if confirms != 1 {
		t.Errorf("confirm fired %d times, want 1", confirms)
	}
	if target != "true" {
		t.Errorf("event target not the confirm button")
	}

	ui.Loop().Drain()
	if ui.GlobalConfirm().Visible() {
		t.Error("decision should close the dialog")
	}
}

func TestConfirmReopenReplacesHandlers(t *testing.T) {
	ui := newTestUI(t)
	var fired []string
	ui.Confirm(ConfirmConfig{
		Confirm: func(dom.Event) { fired = append(fired, "A.confirm") },
		Cancel:  func(dom.Event) { fired = append(fired, "A.cancel") },
	})
	ui.Confirm(ConfirmConfig{
		Confirm: func(dom.Event) { fired = append(fired, "B.confirm") },
		Cancel:  func(dom.Event) { fired = append(fired, "B.cancel") },
	})

	doc := ui.Document()
	if n := doc.Find("#globalModalConfirm .modal-footer").Length(); n != 1 {
		t.Errorf("footers = %d, want 1", n)
	}
	if err := doc.Click(confirmBtn); err != nil {
		t.Fatal(err)
	}
	if err := doc.Click(cancelBtn); err != nil {
		t.Fatal(err)
	}

	if len(fired) != 1 || fired[0] != "B.confirm" {
		t.Errorf("fired = %v, want [B.confirm]", fired)
	}
}

func TestConfirmCancel(t *testing.T) {
	ui := newTestUI(t)
	cancels := 0
	confirms := 0
	ui.Confirm(ConfirmConfig{
		Confirm: func(dom.Event) { confirms++ },
		Cancel:  func(dom.Event) { cancels++ },
	})

	c := ui.GlobalConfirm()
	if !c.Pending() {
		t.Fatal("expected pending decision handlers")
	}
	if err := ui.Document().Click(cancelBtn); err != nil {
		t.Fatal(err)
	}

	if cancels != 1 || confirms != 0 {
		t.Errorf("cancels=%d confirms=%d", cancels, confirms)
	}
	if c.Pending() {
		t.Error("a decision should detach both handlers")
	}
}

func TestConfirmGenericCloseFiresNoDecision(t *testing.T) {
	ui := newTestUI(t)
	fired := 0
	ui.Confirm(ConfirmConfig{
		Confirm: func(dom.Event) { fired++ },
		Cancel:  func(dom.Event) { fired++ },
	})

	if err := ui.Document().Click("#globalModalConfirm .modal-header [data-modal-close]"); err != nil {
		t.Fatal(err)
	}
	ui.Loop().Drain()

	c := ui.GlobalConfirm()
	if fired != 0 {
		t.Errorf("decision callbacks fired %d times", fired)
	}
	if c.Visible() {
		t.Error("dialog should be closed")
	}
	if c.Pending() {
		t.Error("no decision handlers should remain after close")
	}
}

func TestConfirmWithoutCallbacks(t *testing.T) {
	ui := newTestUI(t)
	ui.Confirm(ConfirmConfig{Header: "Leave?", Body: "Unsaved changes"})

	c := ui.GlobalConfirm()
	if c.Pending() {
		t.Error("nil callbacks should not bind handlers")
	}
	if err := ui.Document().Click(confirmBtn); err != nil {
		t.Fatal(err)
	}
	ui.Loop().Drain()

	if c.Visible() {
		t.Error("confirm button should still close the dialog")
	}
}

func TestConfirmClearLeavesContent(t *testing.T) {
	ui := newTestUI(t)
	ui.Confirm(ConfirmConfig{Confirm: func(dom.Event) {}})

	c := ui.GlobalConfirm()
	c.Clear()

	if c.Pending() {
		t.Error("Clear should detach handlers")
	}
	if ui.Document().Find(confirmBtn).Length() != 1 {
		t.Error("Clear must not touch content")
	}
}

func TestNewConfirmOwnSurface(t *testing.T) {
	ui := newTestUI(t)
	c := ui.NewConfirm("deleteConfirm")
	confirmed := false
	c.Open(ConfirmConfig{Confirm: func(dom.Event) { confirmed = true }})

	if err := ui.Document().Click("#deleteConfirm [data-modal-confirm]"); err != nil {
		t.Fatal(err)
	}
	if !confirmed {
		t.Error("confirm callback did not run")
	}
	if ui.Lookup("deleteConfirm") != c.Modal {
		t.Error("confirm modal should be registered")
	}
}
