// Package monitor renders the live dialog document in a terminal and lets the
// user drive it with keys and the mouse.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/modalkit/pkg/modal"
	"github.com/marcus/modalkit/pkg/monitor/mouse"
)

// DefaultRefresh is the snapshot interval used when none is given.
const DefaultRefresh = 250 * time.Millisecond

// actionTimeout bounds how long a key or click waits for the UI loop.
const actionTimeout = 2 * time.Second

type keyMap struct {
	Close      key.Binding
	Confirm    key.Binding
	Yes        key.Binding
	No         key.Binding
	ClearError key.Binding
	Next       key.Binding
	Prev       key.Binding
	Up         key.Binding
	Down       key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Close:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Confirm:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "press")),
		Yes:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		No:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cancel")),
		ClearError: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear error")),
		Next:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next button")),
		Prev:       key.NewBinding(key.WithKeys("shift+tab")),
		Up:         key.NewBinding(key.WithKeys("up", "k")),
		Down:       key.NewBinding(key.WithKeys("down", "j")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Close, k.Confirm, k.Yes, k.No, k.ClearError, k.Next, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// snapshotMsg carries a fresh capture of the document.
type snapshotMsg Snapshot

// tickMsg triggers a periodic snapshot.
type tickMsg time.Time

// errMsg reports a failed loop round trip.
type errMsg struct{ err error }

// Model is the bubbletea model for the dialog monitor.
type Model struct {
	ui      *modal.UI
	refresh time.Duration
	logger  *slog.Logger

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	mouse   *mouse.Handler
	md      *markdownCache

	snap   Snapshot
	topID  string
	focus  int
	hover  string
	scroll int
	err    error

	width  int
	height int
	static bool
}

// NewModel returns a monitor over ui. The UI loop must be running
// elsewhere; the model only reaches the document through it.
func NewModel(ui *modal.UI, refresh time.Duration, logger *slog.Logger) Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	if logger == nil {
		logger = slog.Default()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	return Model{
		ui:      ui,
		refresh: refresh,
		logger:  logger,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
		mouse:   mouse.NewHandler(),
		md:      &markdownCache{},
		focus:   -1,
		width:   80,
		height:  24,
	}
}

// Init starts the spinner and the refresh cycle.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(), m.tick())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case snapshotMsg:
		m.applySnapshot(Snapshot(msg))
		return m, nil

	case errMsg:
		m.err = msg.err
		m.logger.Warn("monitor: loop round trip failed", "err", msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) applySnapshot(s Snapshot) {
	m.snap = s
	m.err = nil

	top := s.Top()
	if top == nil {
		m.topID, m.focus, m.scroll = "", -1, 0
		return
	}
	if top.ID != m.topID {
		m.topID = top.ID
		m.scroll = 0
		m.focus = top.ButtonIndex(RoleConfirm)
	}
	if m.focus >= len(top.Buttons) {
		m.focus = len(top.Buttons) - 1
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	top := m.snap.Top()
	if top == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Close):
		id := top.ID
		return m, m.act(func() error {
			target := m.ui.Lookup(id)
			if target == nil {
				return fmt.Errorf("dialog %q is gone", id)
			}
			target.Close()
			return nil
		})

	case key.Matches(msg, m.keys.Confirm):
		if m.focus >= 0 && m.focus < len(top.Buttons) {
			return m, m.press(top.Buttons[m.focus])
		}
		return m, m.pressRole(top, RoleConfirm)

	case key.Matches(msg, m.keys.Yes):
		return m, m.pressRole(top, RoleConfirm)

	case key.Matches(msg, m.keys.No):
		return m, m.pressRole(top, RoleCancel)

	case key.Matches(msg, m.keys.ClearError):
		if top.Error == "" {
			return m, nil
		}
		id := top.ID
		return m, m.act(func() error {
			if target := m.ui.Lookup(id); target != nil {
				target.ClearErrorMessage()
			}
			return nil
		})

	case key.Matches(msg, m.keys.Next):
		if n := len(top.Buttons); n > 0 {
			m.focus = (m.focus + 1) % n
		}

	case key.Matches(msg, m.keys.Prev):
		if n := len(top.Buttons); n > 0 {
			m.focus = (m.focus - 1 + n) % n
		}

	case key.Matches(msg, m.keys.Up):
		m.scrollBy(-1)

	case key.Matches(msg, m.keys.Down):
		m.scrollBy(1)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	action := m.mouse.HandleMouse(msg)

	switch action.Type {
	case mouse.ActionClick:
		if action.Region == nil {
			return m, nil
		}
		hit, ok := action.Region.Data.(buttonHit)
		if !ok {
			return m, nil
		}
		m.focus = hit.index
		return m, m.press(hit.button)

	case mouse.ActionDoubleClick:
		// The first click already pressed the button.
		return m, nil

	case mouse.ActionHover:
		m.hover = ""
		if action.Region != nil {
			m.hover = action.Region.ID
		}

	case mouse.ActionScrollUp:
		m.scrollBy(-1)

	case mouse.ActionScrollDown:
		m.scrollBy(1)
	}
	return m, nil
}

func (m *Model) scrollBy(delta int) {
	m.scroll += delta
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m Model) pressRole(d *Dialog, role string) tea.Cmd {
	i := d.ButtonIndex(role)
	if i < 0 {
		return nil
	}
	return m.press(d.Buttons[i])
}

// press clicks a button in the document.
func (m Model) press(b Button) tea.Cmd {
	path := append([]int(nil), b.Path...)
	return m.act(func() error {
		return m.ui.Document().ClickPath(path)
	})
}

// act runs fn on the UI loop and answers with a fresh snapshot.
func (m Model) act(fn func() error) tea.Cmd {
	ui := m.ui
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		var snap Snapshot
		var actErr error
		err := ui.Loop().Do(ctx, func() {
			actErr = fn()
			snap = Capture(ui)
		})
		if err != nil {
			return errMsg{err}
		}
		if actErr != nil {
			return errMsg{actErr}
		}
		return snapshotMsg(snap)
	}
}

// fetch captures the document without changing it.
func (m Model) fetch() tea.Cmd {
	return m.act(func() error { return nil })
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
