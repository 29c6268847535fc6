package modal

import (
	"fmt"
	"html"

	"github.com/PuerkitoBio/goquery"

	"github.com/marcus/modalkit/internal/dom"
)

// Modal owns one dialog surface in the UI document.
type Modal struct {
	ui      *UI
	id      string
	surface *goquery.Selection
	filled  bool
}

// ID returns the surface id.
func (m *Modal) ID() string { return m.id }

// IsFilled reports whether real content (not the loader) is installed.
func (m *Modal) IsFilled() bool { return m.filled }

// Visible reports whether the surface is currently shown.
func (m *Modal) Visible() bool { return !dom.Hidden(m.surface) }

// create builds a new surface from the container template.
func (m *Modal) create() {
	body := m.ui.doc.Body()
	body.AppendHtml(m.ui.tpl.Container)
	m.surface = body.Children().Last()
	m.surface.SetAttr("id", m.id)
}

// init installs the loader and the default interaction handlers.
func (m *Modal) init() {
	m.Reset()

	dialog := m.GetDialog()
	if dialog.Length() == 0 || m.ui.wired[dialog.Nodes[0]] {
		return
	}
	m.ui.wired[dialog.Nodes[0]] = true

	m.ui.doc.On(dialog, clickEvent, selClose, func(dom.Event) {
		m.Close()
	})
	m.ui.doc.On(dialog, clickEvent, selClearError, func(dom.Event) {
		m.ClearErrorMessage()
	})
}

// Reset installs the loader as content. Visibility is unchanged.
func (m *Modal) Reset() {
	m.ui.loader.Set(m.GetContent())
	m.filled = false
}

// Loader resets the dialog and shows it.
func (m *Modal) Loader() {
	m.Reset()
	m.Show()
}

// Show presents the surface.
func (m *Modal) Show() {
	m.ui.toggler.Show(m.surface)
}

// Close fades the surface out, hides it and then resets it. The returned
// completion resolves after the reset.
func (m *Modal) Close() *Completion {
	done := newCompletion()
	m.ui.animator.FadeOut(m.surface, func() {
		m.ui.toggler.Hide(m.surface)
		m.Reset()
		done.resolve(nil)
	})
	return done
}

// Clear empties the content root.
func (m *Modal) Clear() {
	m.GetContent().Empty()
}

// Content replaces the content root with c. The markup is attached before
// Content returns; augmentation and then callback run later on the loop, and
// the returned completion resolves after both.
//
// Failures never reach the caller. They are logged, shown in the error
// banner, and augmentation still runs over the whole surface.
func (m *Modal) Content(c Content, callback func(surface *goquery.Selection)) *Completion {
	done := newCompletion()

	if err := m.insert(c); err != nil {
		m.ui.logger.Error("error while setting modal content", "modal", m.id, "err", err)
		m.SetErrorMessage(err.Error())
		m.ui.loop.Post(func() {
			m.augment(m.surface)
			done.resolve(err)
		})
		return done
	}

	m.ui.loop.Post(func() {
		m.augment(m.GetContent())
		if callback != nil {
			callback(m.surface)
		}
		done.resolve(nil)
	})
	return done
}

func (m *Modal) insert(c Content) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("insert content: %v", rec)
		}
	}()

	markup := ""
	if c != nil {
		if markup, err = c.Render(); err != nil {
			return err
		}
	}

	m.ClearErrorMessage()
	m.GetContent().SetHtml(markup)
	m.filled = true
	return nil
}

func (m *Modal) augment(target *goquery.Selection) {
	if err := m.ui.augmenter.ApplyTo(target); err != nil {
		m.ui.logger.Debug("content additions failed", "modal", m.id, "err", err)
	}
}

// SetTitle sets the header title, creating the header if needed.
func (m *Modal) SetTitle(title string) {
	header := m.GetHeader()
	if header.Length() == 0 {
		m.GetContent().PrependHtml(m.ui.tpl.Header)
		header = m.GetHeader()
	}
	header.Find(selTitle).SetHtml(title)
}

// SetBody replaces the body markup, creating the body if needed.
func (m *Modal) SetBody(content string) {
	m.ensureBody().SetHtml(content)
}

func (m *Modal) ensureBody() *goquery.Selection {
	body := m.GetBody()
	if body.Length() == 0 {
		m.GetContent().AppendHtml(m.ui.tpl.Body)
		body = m.GetBody()
	}
	return body
}

// Error shows an error. On an unfilled dialog it builds a standalone error
// dialog and shows it; on a filled one it only sets the error banner.
func (m *Modal) Error(in ErrorInput) {
	title, message := resolveError(in)

	if !m.filled {
		m.Clear()
		m.SetTitle(title)
		m.SetBody("")
		m.SetErrorMessage(message)
		m.Show()
		return
	}

	m.SetErrorMessage(message)
}

// SetErrorMessage updates the error banner in place or prepends a new one
// to the body.
func (m *Modal) SetErrorMessage(message string) {
	banner := m.GetErrorMessage()
	if banner.Length() > 0 {
		dom.SetStyle(banner, "opacity", "0")
		banner.SetText(message)
		m.ui.animator.FadeTo(banner, "1", nil)
		return
	}
	m.ensureBody().PrependHtml(fmt.Sprintf(errorBanner, html.EscapeString(message)))
}

// ClearErrorMessage fades out and removes the error banner, if any.
func (m *Modal) ClearErrorMessage() {
	banner := m.GetErrorMessage()
	if banner.Length() == 0 {
		return
	}
	m.ui.animator.FadeOut(banner, func() {
		banner.Remove()
	})
}

// Container returns the surface root.
func (m *Modal) Container() *goquery.Selection { return m.surface }

// GetContent returns the dialog's own content root. Nested content roots
// injected as markup come later in document order and are never returned.
func (m *Modal) GetContent() *goquery.Selection {
	return m.surface.Find(selContent).First()
}

// GetDialog returns the .modal-dialog element.
func (m *Modal) GetDialog() *goquery.Selection {
	return m.surface.Find(selDialog).First()
}

// GetForm returns the forms inside the surface.
func (m *Modal) GetForm() *goquery.Selection {
	return m.surface.Find(selForm)
}

// GetHeader returns the header region.
func (m *Modal) GetHeader() *goquery.Selection {
	return m.surface.Find(selHeader).First()
}

// GetBody returns the body region.
func (m *Modal) GetBody() *goquery.Selection {
	return m.surface.Find(selBody).First()
}

// GetErrorMessage returns the error banner.
func (m *Modal) GetErrorMessage() *goquery.Selection {
	return m.GetContent().Find(selError)
}
