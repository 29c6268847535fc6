package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/modalkit/pkg/modal"
)

const (
	maxDialogWidth = 72
	minDialogWidth = 24
)

// buttonHit is the hit region payload for a dialog button.
type buttonHit struct {
	index  int
	button Button
}

// markdownCache keeps one glamour renderer per wrap width.
type markdownCache struct {
	width    int
	renderer *glamour.TermRenderer
}

func (c *markdownCache) render(source string, width int) []string {
	if c.renderer == nil || c.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return strings.Split(source, "\n")
		}
		c.renderer, c.width = r, width
	}
	out, err := c.renderer.Render(source)
	if err != nil {
		return strings.Split(source, "\n")
	}
	return strings.Split(strings.Trim(out, "\n"), "\n")
}

// Render draws the document once at the given size, without the key help.
// It must run on the UI loop.
func Render(ui *modal.UI, width, height int) string {
	m := NewModel(ui, 0, nil)
	m.width, m.height = width, height
	m.static = true
	m.applySnapshot(Capture(ui))
	return m.View()
}

// View renders the front dialog centered on screen, or an idle notice.
func (m Model) View() string {
	m.mouse.Clear()

	screenH := m.height - 1
	if screenH < 1 {
		screenH = 1
	}
	footer := m.help.View(m.keys)
	if m.static {
		footer = ""
	}
	if m.err != nil {
		footer = errorBannerStyle.Render(ansi.Truncate(m.err.Error(), m.width-2, "…"))
	}

	top := m.snap.Top()
	if top == nil {
		idle := mutedStyle.Render(fmt.Sprintf("No open dialogs (%d registered)", m.snap.Registered))
		return lipgloss.Place(m.width, screenH, lipgloss.Center, lipgloss.Center, idle) + "\n" + footer
	}

	box, buttonRow, offsets := m.renderDialog(*top, screenH)
	boxW, boxH := lipgloss.Width(box), lipgloss.Height(box)
	x0 := max((m.width-boxW)/2, 0)
	y0 := max((screenH-boxH)/2, 0)

	// border plus left padding
	rowY := y0 + 1 + buttonRow
	for i, off := range offsets {
		b := top.Buttons[i]
		m.mouse.HitMap.AddRect(buttonRegionID(top.ID, i), x0+2+off.x, rowY, off.w, 1, buttonHit{index: i, button: b})
	}

	return lipgloss.Place(m.width, screenH, lipgloss.Center, lipgloss.Center, box) + "\n" + footer
}

type span struct{ x, w int }

// renderDialog draws d and reports the line index of the button row inside
// the box content along with each button's horizontal span.
func (m Model) renderDialog(d Dialog, screenH int) (string, int, []span) {
	boxW := min(m.width-4, maxDialogWidth)
	if boxW < minDialogWidth {
		boxW = minDialogWidth
	}
	inner := boxW - 4

	var lines []string
	add := func(block string) {
		for _, l := range strings.Split(block, "\n") {
			lines = append(lines, ansi.Truncate(l, inner, "…"))
		}
	}

	title := d.Title
	if title == "" {
		title = "#" + d.ID
	}
	add(titleStyle.Render(title))
	if extra := len(m.snap.Dialogs) - 1; extra > 0 {
		add(mutedStyle.Render(fmt.Sprintf("+%d behind", extra)))
	}
	add("")

	if d.Error != "" {
		add(errorBannerStyle.Width(inner).Render(d.Error))
		add("")
	}
	if d.Loading {
		add(m.spinner.View() + " Loading…")
	}

	var body []string
	wrap := lipgloss.NewStyle().Width(inner)
	for _, l := range d.Lines {
		body = append(body, strings.Split(wrap.Render(l), "\n")...)
	}
	for _, src := range d.Markdown {
		body = append(body, m.md.render(src, inner)...)
	}

	// title, spacer, button row and the frame
	room := max(screenH-8, 3)
	start := min(m.scroll, max(len(body)-room, 0))
	end := min(start+room, len(body))
	for _, l := range body[start:end] {
		add(l)
	}
	if end < len(body) {
		add(mutedStyle.Render(fmt.Sprintf("↓ %d more", len(body)-end)))
	}

	var row []string
	var offsets []span
	x := 0
	for i, b := range d.Buttons {
		id := buttonRegionID(d.ID, i)
		label := buttonStyleFor(b, i == m.focus, id == m.hover).Render(b.Label)
		w := ansi.StringWidth(label)
		offsets = append(offsets, span{x: x, w: w})
		row = append(row, label)
		x += w + 1
	}

	buttonRow := -1
	if len(row) > 0 {
		add("")
		buttonRow = len(lines)
		add(strings.Join(row, " "))
	}

	box := dialogStyle.Width(boxW - 2).Render(strings.Join(lines, "\n"))
	return box, buttonRow, offsets
}

func buttonRegionID(dialogID string, i int) string {
	return fmt.Sprintf("btn:%s:%d", dialogID, i)
}
