package monitor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/marcus/modalkit/internal/loader"
	"github.com/marcus/modalkit/pkg/modal"
)

// Button roles derived from the decision attributes.
const (
	RoleNone       = ""
	RoleConfirm    = "confirm"
	RoleCancel     = "cancel"
	RoleClose      = "close"
	RoleClearError = "clear-error"
)

// Button is a clickable element inside a dialog.
type Button struct {
	Label  string
	Role   string
	Danger bool
	// Path addresses the element from <body>, for Document.ClickPath.
	Path []int
}

// Dialog is a terminal-friendly copy of one visible dialog.
type Dialog struct {
	ID       string
	Title    string
	Lines    []string
	Markdown []string
	Error    string
	Loading  bool
	Buttons  []Button
}

// ButtonIndex returns the index of the first button with role, or -1.
func (d Dialog) ButtonIndex(role string) int {
	for i, b := range d.Buttons {
		if b.Role == role {
			return i
		}
	}
	return -1
}

// Snapshot is the monitor's view of the document at one instant.
type Snapshot struct {
	Dialogs    []Dialog
	Registered int
}

// Top returns the dialog drawn in front, or nil when none is visible.
func (s Snapshot) Top() *Dialog {
	if len(s.Dialogs) == 0 {
		return nil
	}
	return &s.Dialogs[len(s.Dialogs)-1]
}

// elements never rendered as body text
const skipText = "button, script, style, .modal-header, .modal-footer, .modal-error, .loader, [data-ui-markdown-source]"

const buttonSelector = "button, [data-modal-close], [data-modal-confirm], [data-modal-cancel], [data-modal-clear-error]"

var blockTags = map[string]bool{
	"div": true, "p": true, "li": true, "ul": true, "ol": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "table": true, "form": true, "fieldset": true, "pre": true,
	"blockquote": true, "section": true, "label": true,
}

// Capture copies every visible dialog out of the document. It must run on
// the UI loop.
func Capture(ui *modal.UI) Snapshot {
	snap := Snapshot{Registered: ui.Len()}
	seen := make(map[*html.Node]bool)

	for _, m := range ui.Modals() {
		surface := m.Container()
		if surface.Length() == 0 || seen[surface.Nodes[0]] || !m.Visible() {
			continue
		}
		seen[surface.Nodes[0]] = true
		snap.Dialogs = append(snap.Dialogs, captureDialog(ui, m))
	}
	return snap
}

func captureDialog(ui *modal.UI, m *modal.Modal) Dialog {
	content := m.GetContent()
	d := Dialog{
		ID:      m.ID(),
		Title:   collapse(content.Find(".modal-title").First().Text()),
		Error:   collapse(m.GetErrorMessage().Text()),
		Loading: loader.Present(content),
	}

	text := content.Clone()
	text.Find(skipText).Remove()
	d.Lines = textLines(text)

	content.Find("[data-ui-markdown-source]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("data-ui-markdown-source")
		d.Markdown = append(d.Markdown, src)
	})

	content.Find(buttonSelector).Each(func(_ int, s *goquery.Selection) {
		path, err := ui.Document().PathOf(s)
		if err != nil {
			return
		}
		d.Buttons = append(d.Buttons, Button{
			Label:  buttonLabel(s),
			Role:   buttonRole(s),
			Danger: s.HasClass("btn-danger"),
			Path:   path,
		})
	})
	return d
}

func buttonRole(s *goquery.Selection) string {
	has := func(attr string) bool {
		_, ok := s.Attr(attr)
		return ok
	}
	switch {
	case has("data-modal-confirm"):
		return RoleConfirm
	case has("data-modal-cancel"):
		return RoleCancel
	case has("data-modal-clear-error"):
		return RoleClearError
	case has("data-modal-close"):
		return RoleClose
	}
	return RoleNone
}

func buttonLabel(s *goquery.Selection) string {
	if label := collapse(s.Text()); label != "" {
		return label
	}
	if v, ok := s.Attr("value"); ok && v != "" {
		return v
	}
	if t, ok := s.Attr("title"); ok && t != "" {
		return t
	}
	return "…"
}

// textLines flattens markup into lines, breaking at block elements.
func textLines(sel *goquery.Selection) []string {
	var lines []string
	var cur strings.Builder
	flush := func() {
		if line := collapse(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			if blockTags[n.Data] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}
	flush()
	return lines
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
