package modal

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/marcus/modalkit/internal/loop"
)

// Content is anything that can be rendered into a dialog's content root.
type Content interface {
	Render() (string, error)
}

// HTML is trusted markup.
type HTML string

// Render returns the markup unchanged.
func (h HTML) Render() (string, error) { return string(h), nil }

// Text is plain text; it is escaped before insertion.
type Text string

// Render escapes the text.
func (t Text) Render() (string, error) { return html.EscapeString(string(t)), nil }

// Fragment copies the markup of existing nodes.
type Fragment struct {
	Selection *goquery.Selection
}

// Render serializes every node of the fragment.
func (f Fragment) Render() (string, error) {
	if f.Selection == nil {
		return "", nil
	}
	var sb strings.Builder
	for i := range f.Selection.Nodes {
		out, err := goquery.OuterHtml(f.Selection.Eq(i))
		if err != nil {
			return "", fmt.Errorf("serialize fragment: %w", err)
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

// TemplateContent executes a named html/template.
type TemplateContent struct {
	Template *template.Template
	Name     string
	Data     any
}

// Render executes the template.
func (tc TemplateContent) Render() (string, error) {
	if tc.Template == nil {
		return "", fmt.Errorf("template content: nil template")
	}
	var buf bytes.Buffer
	var err error
	if tc.Name == "" {
		err = tc.Template.Execute(&buf, tc.Data)
	} else {
		err = tc.Template.ExecuteTemplate(&buf, tc.Name, tc.Data)
	}
	if err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// RenderFunc adapts a function to Content.
type RenderFunc func() (string, error)

// Render calls f.
func (f RenderFunc) Render() (string, error) { return f() }

// Completion signals the end of an asynchronous dialog operation.
type Completion struct {
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func (c *Completion) resolve(err error) {
	c.err = err
	close(c.done)
}

// Done is closed once the operation has finished.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Resolved reports whether Done is closed.
func (c *Completion) Resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Err returns the failure recovered by the operation, if any. It is only
// meaningful once Done is closed.
func (c *Completion) Err() error {
	if !c.Resolved() {
		return nil
	}
	return c.err
}

// After returns a completion that resolves on l once d has elapsed.
func After(l *loop.Loop, d time.Duration) *Completion {
	done := newCompletion()
	l.After(d, func() { done.resolve(nil) })
	return done
}
