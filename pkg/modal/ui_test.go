package modal

import (
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/marcus/modalkit/internal/config"
	"github.com/marcus/modalkit/internal/loader"
)

func TestInitIsIdempotent(t *testing.T) {
	ui := newTestUI(t)
	ui.Init()
	ui.Init()

	if ui.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ui.Len())
	}
	doc := ui.Document()
	for _, id := range []string{GlobalID, GlobalConfirmID} {
		if n := doc.Find("#" + id).Length(); n != 1 {
			t.Errorf("#%s count = %d, want 1", id, n)
		}
	}
	if ui.Global() != ui.Global() {
		t.Error("Global should return the same instance")
	}
	if ui.Global().ID() != GlobalID {
		t.Errorf("Global id = %q", ui.Global().ID())
	}
	if ui.GlobalConfirm().ID() != GlobalConfirmID {
		t.Errorf("GlobalConfirm id = %q", ui.GlobalConfirm().ID())
	}
}

func TestGlobalIsLazy(t *testing.T) {
	ui := newTestUI(t)
	if ui.Len() != 0 {
		t.Fatal("no modals before first use")
	}

	ui.Global().Loader()

	if ui.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after lazy init", ui.Len())
	}
	if !ui.Global().Visible() {
		t.Error("global modal should be visible")
	}
}

func TestUIDefaults(t *testing.T) {
	ui := newTestUI(t)
	cfg := ui.Config()
	if cfg.FadeMS != config.DefaultFadeMS {
		t.Errorf("FadeMS = %d", cfg.FadeMS)
	}
	if ui.Template() != DefaultTemplate {
		t.Error("expected default template")
	}
}

func TestWithConfigFillsDefaults(t *testing.T) {
	ui := newTestUI(t, WithConfig(&config.Config{CancelText: "Abort"}))
	cfg := ui.Config()
	if cfg.CancelText != "Abort" {
		t.Errorf("CancelText = %q", cfg.CancelText)
	}
	if cfg.ConfirmText != config.DefaultConfirmText {
		t.Errorf("ConfirmText = %q", cfg.ConfirmText)
	}
}

type markLoader struct{}

func (markLoader) Set(target *goquery.Selection) {
	target.SetHtml(`<p class="loader custom">wait</p>`)
}

func TestWithLoader(t *testing.T) {
	ui := newTestUI(t, WithLoader(markLoader{}))
	m := ui.New("m")

	if m.GetContent().Find(".custom").Length() != 1 {
		t.Error("custom loader not installed")
	}
	if !loader.Present(m.GetContent()) {
		t.Error("custom loader should count as a loader")
	}
}

func TestDefaultAugmenterRendersMarkdown(t *testing.T) {
	ui := newTestUI(t)
	m := ui.New("m")
	m.Content(HTML(`<div class="modal-body"><div data-ui-markdown>**bold**</div></div>`), nil)
	ui.Loop().Drain()

	if m.GetBody().Find("strong").Text() != "bold" {
		html, _ := m.GetBody().Html()
		t.Errorf("markdown not rendered: %s", html)
	}
}
