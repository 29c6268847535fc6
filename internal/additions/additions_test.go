package additions

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/marcus/modalkit/internal/dom"
)

func TestMarkdownAddition(t *testing.T) {
	doc := dom.New()
	doc.Body().AppendHtml(`<div id="root"><div data-ui-markdown>**bold** text<script>x</script></div></div>`)
	root := doc.Find("#root")

	if err := Default().ApplyTo(root); err != nil {
		t.Fatalf("ApplyTo() error: %v", err)
	}

	rendered := root.Find(".markdown-render")
	if rendered.Length() != 1 {
		t.Fatalf("expected rendered markdown element")
	}
	if rendered.Find("strong").Length() != 1 {
		html, _ := rendered.Html()
		t.Errorf("expected <strong>, got %s", html)
	}
	if rendered.Find("script").Length() != 0 {
		t.Error("script should be sanitized away")
	}
	if src, _ := rendered.Attr("data-ui-markdown-source"); !strings.Contains(src, "**bold**") {
		t.Errorf("markdown source not preserved: %q", src)
	}

	// Second pass is a no-op because the marker attribute is gone.
	before, _ := root.Html()
	if err := Default().ApplyTo(root); err != nil {
		t.Fatalf("second ApplyTo() error: %v", err)
	}
	after, _ := root.Html()
	if before != after {
		t.Errorf("markdown addition is not idempotent:\n%s\n%s", before, after)
	}
}

func TestTimeAgoAddition(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry()
	r.Register(TimeAgo(func() time.Time { return now }))

	doc := dom.New()
	doc.Body().AppendHtml(`<div id="root"><time datetime="2024-05-01T11:57:00Z">then</time></div>`)

	if err := r.ApplyTo(doc.Find("#root")); err != nil {
		t.Fatalf("ApplyTo() error: %v", err)
	}

	got := doc.Find("time").Text()
	if got != "3 minutes ago" {
		t.Errorf("time text = %q, want %q", got, "3 minutes ago")
	}
}

func TestApplyToCollectsErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(TimeAgo(time.Now))
	r.Register(Tooltip())

	doc := dom.New()
	doc.Body().AppendHtml(`<div id="root"><time datetime="garbage">x</time><span data-ui-tooltip="tip">y</span></div>`)

	err := r.ApplyTo(doc.Find("#root"))
	if err == nil {
		t.Fatal("expected error for unparseable datetime")
	}
	if !strings.Contains(err.Error(), "timeago") {
		t.Errorf("error should name the addition: %v", err)
	}
	// The tooltip addition still ran.
	if title, _ := doc.Find("span").Attr("title"); title != "tip" {
		t.Errorf("tooltip title = %q, want tip", title)
	}
}

func TestApplyToIncludesRoot(t *testing.T) {
	r := NewRegistry()
	r.Register(Tooltip())

	doc := dom.New()
	doc.Body().AppendHtml(`<span id="root" data-ui-tooltip="self"></span>`)

	if err := r.ApplyTo(doc.Find("#root")); err != nil {
		t.Fatalf("ApplyTo() error: %v", err)
	}
	if title, _ := doc.Find("#root").Attr("title"); title != "self" {
		t.Errorf("root title = %q, want self", title)
	}
}

func TestCustomAddition(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register(Addition{
		Name:     "failing",
		Selector: "p",
		Apply:    func(*goquery.Selection) error { return boom },
	})

	doc := dom.New()
	doc.Body().AppendHtml(`<div id="root"><p>a</p></div>`)

	if err := r.ApplyTo(doc.Find("#root")); !errors.Is(err, boom) {
		t.Errorf("ApplyTo() = %v, want wrapped boom", err)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "failing" {
		t.Errorf("Names() = %v", names)
	}
}
