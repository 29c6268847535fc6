package dom

import (
	"strings"
	"testing"
)

func TestStyleReadAndWrite(t *testing.T) {
	doc := New()
	doc.Body().AppendHtml(`<div id="m" style="display: none; background:rgba(0,0,0,0.1)"></div>`)
	sel := doc.Find("#m")

	if got := Style(sel, "display"); got != "none" {
		t.Errorf("Style(display) = %q, want none", got)
	}
	if !Hidden(sel) {
		t.Error("expected element to be hidden")
	}

	SetStyle(sel, "display", "block")
	if Hidden(sel) {
		t.Error("expected element to be visible after display:block")
	}
	if got := Style(sel, "background"); !strings.Contains(got, "rgba") {
		t.Errorf("background lost after SetStyle: %q", got)
	}

	SetStyle(sel, "opacity", "0")
	if got := Style(sel, "opacity"); got != "0" {
		t.Errorf("Style(opacity) = %q, want 0", got)
	}

	SetStyle(sel, "opacity", "")
	if got := Style(sel, "opacity"); got != "" {
		t.Errorf("opacity should be removed, got %q", got)
	}
}

func TestSetStyleRemovesEmptyAttribute(t *testing.T) {
	doc := New()
	doc.Body().AppendHtml(`<div id="m" style="opacity: 1"></div>`)
	sel := doc.Find("#m")

	SetStyle(sel, "opacity", "")

	if _, ok := sel.Attr("style"); ok {
		t.Error("expected style attribute to be removed")
	}
}

func TestHiddenEmptySelection(t *testing.T) {
	doc := New()
	if !Hidden(doc.Find("#nothing")) {
		t.Error("empty selection should count as hidden")
	}
}
