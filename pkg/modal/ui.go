package modal

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/marcus/modalkit/internal/additions"
	"github.com/marcus/modalkit/internal/config"
	"github.com/marcus/modalkit/internal/dom"
	"github.com/marcus/modalkit/internal/loader"
	"github.com/marcus/modalkit/internal/loop"
	"github.com/marcus/modalkit/internal/toggle"
)

// UI is the process-scoped dialog context.
type UI struct {
	doc       *dom.Document
	loop      *loop.Loop
	toggler   toggle.Toggler
	animator  toggle.Animator
	augmenter additions.Augmenter
	loader    loader.Placeholder
	cfg       *config.Config
	logger    *slog.Logger

	tpl    Template
	sealed bool

	// registry holds every Modal ever constructed, in order.
	registry []*Modal
	// wired tracks dialogs whose default handlers are installed, so two
	// Modals adopting one surface do not double-bind.
	wired map[*html.Node]bool

	global        *Modal
	globalConfirm *ConfirmModal
}

// Option configures a UI.
type Option func(*UI)

// WithTemplate replaces the markup skeletons.
func WithTemplate(t Template) Option {
	return func(u *UI) { u.tpl = t }
}

// WithToggler replaces the show/hide capability.
func WithToggler(t toggle.Toggler) Option {
	return func(u *UI) { u.toggler = t }
}

// WithAnimator replaces the fade capability.
func WithAnimator(a toggle.Animator) Option {
	return func(u *UI) { u.animator = a }
}

// WithAugmenter replaces the content additions.
func WithAugmenter(a additions.Augmenter) Option {
	return func(u *UI) { u.augmenter = a }
}

// WithLoader replaces the loading placeholder.
func WithLoader(p loader.Placeholder) Option {
	return func(u *UI) { u.loader = p }
}

// WithConfig sets the module defaults. Empty fields keep their defaults.
func WithConfig(cfg *config.Config) Option {
	return func(u *UI) {
		if cfg != nil {
			u.cfg = cfg.WithDefaults()
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *UI) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUI creates a dialog context over doc. Unset capabilities get their
// defaults: Bootstrap toggling, a loop-timed fader, the default additions
// and the spinner loader.
func NewUI(doc *dom.Document, l *loop.Loop, opts ...Option) *UI {
	u := &UI{
		doc:    doc,
		loop:   l,
		cfg:    config.Default(),
		logger: slog.Default(),
		tpl:    DefaultTemplate,
		wired:  make(map[*html.Node]bool),
	}
	for _, opt := range opts {
		opt(u)
	}

	if u.toggler == nil {
		u.toggler = toggle.Bootstrap{}
	}
	if u.animator == nil {
		u.animator = toggle.NewFader(l, u.cfg.FadeDuration())
	}
	if u.augmenter == nil {
		u.augmenter = additions.Default()
	}
	if u.loader == nil {
		u.loader = loader.Spinner{}
	}
	return u
}

// Document returns the UI document.
func (u *UI) Document() *dom.Document { return u.doc }

// Loop returns the UI loop.
func (u *UI) Loop() *loop.Loop { return u.loop }

// Config returns the effective defaults.
func (u *UI) Config() *config.Config { return u.cfg }

// Template returns the active markup skeletons.
func (u *UI) Template() Template { return u.tpl }

// SetTemplate replaces the markup skeletons. It only takes effect before the
// first Modal is constructed and reports whether it did.
func (u *UI) SetTemplate(t Template) bool {
	if u.sealed {
		u.logger.Warn("modal template change ignored after first use")
		return false
	}
	u.tpl = t
	return true
}

// New constructs a Modal for id, adopting an existing #id surface or
// creating one from the container template.
func (u *UI) New(id string) *Modal {
	u.sealed = true

	m := &Modal{ui: u, id: id}
	m.surface = u.doc.ByID(id)
	if m.surface.Length() == 0 {
		m.create()
	}
	m.init()

	u.registry = append(u.registry, m)
	u.logger.Debug("modal registered", "modal", id, "count", len(u.registry))
	return m
}

// NewConfirm constructs a ConfirmModal for id.
func (u *UI) NewConfirm(id string) *ConfirmModal {
	return &ConfirmModal{Modal: u.New(id)}
}

// Init creates the shared global and confirm dialogs. Later calls are no-ops.
func (u *UI) Init() {
	if u.global == nil {
		u.global = u.New(GlobalID)
	}
	if u.globalConfirm == nil {
		u.globalConfirm = u.NewConfirm(GlobalConfirmID)
	}
}

// Global returns the shared ad-hoc dialog.
func (u *UI) Global() *Modal {
	u.Init()
	return u.global
}

// GlobalConfirm returns the shared confirm dialog.
func (u *UI) GlobalConfirm() *ConfirmModal {
	u.Init()
	return u.globalConfirm
}

// Confirm opens the shared confirm dialog.
func (u *UI) Confirm(cfg ConfirmConfig) {
	u.GlobalConfirm().Open(cfg)
}

// Modals returns a snapshot of the registry.
func (u *UI) Modals() []*Modal {
	return append([]*Modal(nil), u.registry...)
}

// Len returns the number of constructed modals.
func (u *UI) Len() int { return len(u.registry) }

// Lookup returns the first registered Modal with id, or nil.
func (u *UI) Lookup(id string) *Modal {
	for _, m := range u.registry {
		if m.id == id {
			return m
		}
	}
	return nil
}

// CloseAll closes every visible modal and returns their completions.
func (u *UI) CloseAll() []*Completion {
	var out []*Completion
	for _, m := range u.registry {
		if m.Visible() {
			out = append(out, m.Close())
		}
	}
	return out
}
