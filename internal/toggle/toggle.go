// Package toggle presents and hides dialog surfaces and runs their fade
// transitions.
package toggle

import (
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/marcus/modalkit/internal/dom"
	"github.com/marcus/modalkit/internal/loop"
)

// Toggler shows and hides a surface. Both calls must be idempotent.
type Toggler interface {
	Show(surface *goquery.Selection)
	Hide(surface *goquery.Selection)
}

// Animator runs asynchronous visual transitions. done runs on the loop once
// the transition has finished and may be nil.
type Animator interface {
	FadeOut(sel *goquery.Selection, done func())
	FadeTo(sel *goquery.Selection, opacity string, done func())
}

// Bootstrap toggles surfaces the way the Bootstrap modal plugin does:
// display, aria-hidden and the "in" class.
type Bootstrap struct{}

// Show makes the surface visible.
func (Bootstrap) Show(surface *goquery.Selection) {
	dom.SetStyle(surface, "display", "block")
	surface.SetAttr("aria-hidden", "false")
	surface.AddClass("in")
}

// Hide hides the surface.
func (Bootstrap) Hide(surface *goquery.Selection) {
	dom.SetStyle(surface, "display", "none")
	surface.SetAttr("aria-hidden", "true")
	surface.RemoveClass("in")
}

// Fader animates opacity over a fixed duration using loop timers.
type Fader struct {
	Loop     *loop.Loop
	Duration time.Duration
}

// NewFader returns a Fader. The jQuery "fast" speed is 200ms.
func NewFader(l *loop.Loop, d time.Duration) *Fader {
	return &Fader{Loop: l, Duration: d}
}

// FadeOut ends with the element at display:none and its opacity restored,
// matching jQuery's fadeOut.
func (f *Fader) FadeOut(sel *goquery.Selection, done func()) {
	dom.SetStyle(sel, "opacity", "0")
	f.Loop.After(f.Duration, func() {
		dom.SetStyle(sel, "display", "none")
		dom.SetStyle(sel, "opacity", "")
		if done != nil {
			done()
		}
	})
}

// FadeTo moves the element to the given opacity.
func (f *Fader) FadeTo(sel *goquery.Selection, opacity string, done func()) {
	f.Loop.After(f.Duration, func() {
		dom.SetStyle(sel, "opacity", opacity)
		if done != nil {
			done()
		}
	})
}
