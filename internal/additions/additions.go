// Package additions post-processes markup injected into dialogs: markdown
// rendering, relative timestamps and tooltips.
package additions

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Augmenter post-processes a freshly attached subtree.
type Augmenter interface {
	ApplyTo(root *goquery.Selection) error
}

// Addition binds a behavior to every element matching Selector.
type Addition struct {
	Name     string
	Selector string
	Apply    func(sel *goquery.Selection) error
}

// Registry applies additions in registration order.
type Registry struct {
	additions []Addition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default returns a registry with the built-in additions.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Markdown())
	r.Register(TimeAgo(time.Now))
	r.Register(Tooltip())
	return r
}

// Register appends an addition.
func (r *Registry) Register(a Addition) {
	r.additions = append(r.additions, a)
}

// Names lists the registered additions.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.additions))
	for _, a := range r.additions {
		names = append(names, a.Name)
	}
	return names
}

// ApplyTo runs every addition over root and its descendants. Failures of one
// element do not stop the others; they are joined into the returned error.
func (r *Registry) ApplyTo(root *goquery.Selection) error {
	var errs []error
	for _, a := range r.additions {
		matches := root.Filter(a.Selector).AddSelection(root.Find(a.Selector))
		matches.Each(func(_ int, s *goquery.Selection) {
			if err := a.Apply(s); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
			}
		})
	}
	return errors.Join(errs...)
}

// Markdown renders [data-ui-markdown] text as sanitized HTML. The source is
// kept in data-ui-markdown-source so terminal hosts can render it natively.
func Markdown() Addition {
	md := goldmark.New()
	policy := bluemonday.UGCPolicy()
	return Addition{
		Name:     "markdown",
		Selector: "[data-ui-markdown]",
		Apply: func(sel *goquery.Selection) error {
			source := strings.TrimSpace(sel.Text())
			var buf bytes.Buffer
			if err := md.Convert([]byte(source), &buf); err != nil {
				return fmt.Errorf("convert markdown: %w", err)
			}
			sel.RemoveAttr("data-ui-markdown")
			sel.SetAttr("data-ui-markdown-source", source)
			sel.AddClass("markdown-render")
			sel.SetHtml(policy.Sanitize(buf.String()))
			return nil
		},
	}
}

// TimeAgo replaces the text of time[datetime] elements with a relative
// description ("3 minutes ago"). The absolute value moves to the title.
func TimeAgo(now func() time.Time) Addition {
	return Addition{
		Name:     "timeago",
		Selector: "time[datetime]",
		Apply: func(sel *goquery.Selection) error {
			raw, _ := sel.Attr("datetime")
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("parse datetime %q: %w", raw, err)
			}
			sel.SetAttr("title", ts.Format("2006-01-02 15:04"))
			sel.SetText(humanize.RelTime(ts, now(), "ago", "from now"))
			return nil
		},
	}
}

// Tooltip copies data-ui-tooltip into the title attribute.
func Tooltip() Addition {
	return Addition{
		Name:     "tooltip",
		Selector: "[data-ui-tooltip]",
		Apply: func(sel *goquery.Selection) error {
			tip, _ := sel.Attr("data-ui-tooltip")
			if _, has := sel.Attr("title"); !has {
				sel.SetAttr("title", tip)
			}
			return nil
		},
	}
}
