package loader

import (
	"testing"

	"github.com/marcus/modalkit/internal/dom"
)

func TestSpinnerReplacesContent(t *testing.T) {
	doc := dom.New()
	doc.Body().AppendHtml(`<div id="target"><p>old</p></div>`)
	target := doc.Find("#target")

	Spinner{}.Set(target)

	if target.Find("p").Length() != 0 {
		t.Error("expected previous content to be replaced")
	}
	if !Present(target) {
		t.Error("expected loader to be present")
	}
	if target.Find(".sk-bounce3").Length() != 1 {
		t.Error("expected three-bounce markup")
	}
}

func TestPresentFalseWithoutLoader(t *testing.T) {
	doc := dom.New()
	doc.Body().AppendHtml(`<div id="target"></div>`)
	if Present(doc.Find("#target")) {
		t.Error("expected no loader")
	}
}
