package modal

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/marcus/modalkit/internal/dom"
)

// ConfirmConfig configures one confirmation. Empty text fields fall back to
// the UI config defaults; nil callbacks leave the button without a handler.
type ConfirmConfig struct {
	Header      string
	Body        string
	ConfirmText string
	CancelText  string
	Confirm     func(dom.Event)
	Cancel      func(dom.Event)
}

// ConfirmModal layers a confirm/cancel decision over a Modal.
type ConfirmModal struct {
	*Modal
}

// Open shows the dialog with fresh one-shot decision handlers. Handlers from
// a previous Open are detached first, and an unfilled dialog drops its loader.
func (c *ConfirmModal) Open(cfg ConfirmConfig) {
	c.Clear()
	if !c.filled {
		c.Modal.Clear()
	}

	cfg = c.withDefaults(cfg)
	c.SetTitle(cfg.Header)
	c.SetBody(cfg.Body)
	c.initButtons(cfg)
	c.Show()
}

// Clear detaches the pending confirm and cancel handlers. Content is
// untouched.
func (c *ConfirmModal) Clear() {
	c.ui.doc.Off(c.confirmButton(), clickEvent)
	c.ui.doc.Off(c.cancelButton(), clickEvent)
}

// Pending reports whether a decision handler is still attached.
func (c *ConfirmModal) Pending() bool {
	return c.ui.doc.Handlers(c.confirmButton(), clickEvent)+
		c.ui.doc.Handlers(c.cancelButton(), clickEvent) > 0
}

func (c *ConfirmModal) withDefaults(cfg ConfirmConfig) ConfirmConfig {
	defaults := c.ui.cfg
	if cfg.Header == "" {
		cfg.Header = defaults.ConfirmHeader
	}
	if cfg.Body == "" {
		cfg.Body = defaults.ConfirmBody
	}
	if cfg.ConfirmText == "" {
		cfg.ConfirmText = defaults.ConfirmText
	}
	if cfg.CancelText == "" {
		cfg.CancelText = defaults.CancelText
	}
	return cfg
}

func (c *ConfirmModal) initButtons(cfg ConfirmConfig) {
	if c.confirmButton().Length() == 0 {
		c.GetContent().AppendHtml(c.ui.tpl.Footer)
	}

	cancel := c.cancelButton()
	cancel.SetText(cfg.CancelText)

	confirm := c.confirmButton()
	confirm.SetText(cfg.ConfirmText)

	if cfg.Confirm != nil {
		c.ui.doc.One(confirm, clickEvent, func(evt dom.Event) {
			c.Clear()
			cfg.Confirm(evt)
		})
	}

	if cfg.Cancel != nil {
		c.ui.doc.One(cancel, clickEvent, func(evt dom.Event) {
			c.Clear()
			cfg.Cancel(evt)
		})
	}
}

func (c *ConfirmModal) confirmButton() *goquery.Selection {
	return c.surface.Find(selConfirmBtn)
}

func (c *ConfirmModal) cancelButton() *goquery.Selection {
	return c.surface.Find(selCancelBtn)
}
