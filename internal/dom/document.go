// Package dom holds the in-process HTML document that dialogs live in and
// a small jQuery-like event system for it.
//
// A Document is not safe for concurrent use; all calls must happen on the
// UI loop (see internal/loop).
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNoMatch is returned when a click target cannot be resolved.
var ErrNoMatch = errors.New("no matching element")

const blankPage = `<!DOCTYPE html><html><head></head><body></body></html>`

// Document wraps a goquery document with event bindings.
type Document struct {
	doc       *goquery.Document
	direct    map[*html.Node][]*binding
	delegated map[*html.Node][]*delegate
}

type binding struct {
	event   string
	once    bool
	removed bool
	handler Handler
}

type delegate struct {
	event    string
	selector string
	handler  Handler
}

// Handler reacts to a dispatched event.
type Handler func(Event)

// Event describes a dispatched event.
type Event struct {
	Type string
	// Target is the element the event was triggered on.
	Target *goquery.Selection
	// CurrentTarget is the element whose handler is running. For delegated
	// handlers it is the element that matched the delegate selector.
	CurrentTarget *goquery.Selection
}

// New returns an empty page.
func New() *Document {
	doc, err := Parse(blankPage)
	if err != nil {
		// blankPage is a constant that always parses
		panic(err)
	}
	return doc
}

// Parse builds a document from full page markup.
func Parse(markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{
		doc:       doc,
		direct:    make(map[*html.Node][]*binding),
		delegated: make(map[*html.Node][]*delegate),
	}, nil
}

// Find runs a selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// ByID returns the first element whose id attribute equals id. It compares
// the attribute directly, so ids that are not valid CSS identifiers
// ("a.b", "edit:modal") still match.
func (d *Document) ByID(id string) *goquery.Selection {
	return d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
}

// Body returns the <body> element.
func (d *Document) Body() *goquery.Selection {
	return d.doc.Find("body").First()
}

// Wrap returns a selection holding exactly the given nodes.
func (d *Document) Wrap(nodes ...*html.Node) *goquery.Selection {
	return d.doc.FindNodes(nodes...)
}

// HTML renders the full page.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	for _, n := range d.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render document: %w", err)
		}
	}
	return buf.String(), nil
}

// On installs a delegated handler on every element in scope. The handler
// fires for events whose target is, or is inside, a descendant of the scope
// element matching selector.
func (d *Document) On(scope *goquery.Selection, event, selector string, h Handler) {
	for _, n := range scope.Nodes {
		d.delegated[n] = append(d.delegated[n], &delegate{
			event:    event,
			selector: selector,
			handler:  h,
		})
	}
}

// One installs a direct handler that is removed before its first run.
func (d *Document) One(sel *goquery.Selection, event string, h Handler) {
	for _, n := range sel.Nodes {
		d.direct[n] = append(d.direct[n], &binding{event: event, once: true, handler: h})
	}
}

// Bind installs a persistent direct handler.
func (d *Document) Bind(sel *goquery.Selection, event string, h Handler) {
	for _, n := range sel.Nodes {
		d.direct[n] = append(d.direct[n], &binding{event: event, handler: h})
	}
}

// Off removes the direct handlers for event from every element in sel.
// Bindings on elements that have left the document are dropped as well.
func (d *Document) Off(sel *goquery.Selection, event string) {
	for _, n := range sel.Nodes {
		d.removeDirect(n, event)
	}
	d.sweep()
}

// Handlers reports how many live direct handlers for event are bound to the
// elements in sel.
func (d *Document) Handlers(sel *goquery.Selection, event string) int {
	count := 0
	for _, n := range sel.Nodes {
		for _, b := range d.direct[n] {
			if b.event == event && !b.removed {
				count++
			}
		}
	}
	return count
}

// Trigger dispatches event on the first element of target and bubbles it to
// the document root. It returns the number of handlers that ran.
func (d *Document) Trigger(target *goquery.Selection, event string) int {
	if target.Length() == 0 {
		return 0
	}

	origin := target.Nodes[0]
	var path []*html.Node
	for n := origin; n != nil; n = n.Parent {
		path = append(path, n)
	}

	fired := 0
	for i, n := range path {
		for _, b := range append([]*binding(nil), d.direct[n]...) {
			if b.event != event || b.removed {
				continue
			}
			if b.once {
				b.removed = true
				d.compact(n)
			}
			b.handler(Event{Type: event, Target: d.Wrap(origin), CurrentTarget: d.Wrap(n)})
			fired++
		}

		for _, dl := range append([]*delegate(nil), d.delegated[n]...) {
			if dl.event != event {
				continue
			}
			for _, inner := range path[:i] {
				if inner.Type != html.ElementNode {
					continue
				}
				match := d.Wrap(inner)
				if !match.Is(dl.selector) {
					continue
				}
				dl.handler(Event{Type: event, Target: d.Wrap(origin), CurrentTarget: match})
				fired++
			}
		}
	}
	return fired
}

// Click triggers a click on the first element matching selector.
func (d *Document) Click(selector string) error {
	target := d.doc.Find(selector).First()
	if target.Length() == 0 {
		return fmt.Errorf("click %q: %w", selector, ErrNoMatch)
	}
	d.Trigger(target, "click")
	return nil
}

// ClickPath triggers a click on the element addressed by path.
func (d *Document) ClickPath(path []int) error {
	target, err := d.NodeAt(path)
	if err != nil {
		return err
	}
	d.Trigger(target, "click")
	return nil
}

// NodeAt resolves a path of element-child indexes starting at <body>.
func (d *Document) NodeAt(path []int) (*goquery.Selection, error) {
	cur := d.Body()
	for depth, idx := range path {
		children := cur.Children()
		if idx < 0 || idx >= children.Length() {
			return nil, fmt.Errorf("path %v at depth %d: %w", path, depth, ErrNoMatch)
		}
		cur = children.Eq(idx)
	}
	return cur, nil
}

// PathOf returns the element-child index path from <body> to the first
// element of sel.
func (d *Document) PathOf(sel *goquery.Selection) ([]int, error) {
	if sel.Length() == 0 {
		return nil, ErrNoMatch
	}
	body := d.Body()
	if body.Length() == 0 {
		return nil, ErrNoMatch
	}
	root := body.Nodes[0]

	var path []int
	for n := sel.Nodes[0]; n != root; n = n.Parent {
		if n == nil || n.Parent == nil {
			return nil, fmt.Errorf("element is not inside body: %w", ErrNoMatch)
		}
		idx := 0
		for c := n.Parent.FirstChild; c != n; c = c.NextSibling {
			if c.Type == html.ElementNode {
				idx++
			}
		}
		path = append([]int{idx}, path...)
	}
	return path, nil
}

func (d *Document) removeDirect(n *html.Node, event string) {
	for _, b := range d.direct[n] {
		if b.event == event {
			b.removed = true
		}
	}
	d.compact(n)
}

func (d *Document) compact(n *html.Node) {
	live := d.direct[n][:0]
	for _, b := range d.direct[n] {
		if !b.removed {
			live = append(live, b)
		}
	}
	if len(live) == 0 {
		delete(d.direct, n)
		return
	}
	d.direct[n] = live
}

// sweep drops bindings for nodes that are no longer attached to the page.
func (d *Document) sweep() {
	root := d.doc.Nodes[0]
	for n := range d.direct {
		if !attached(n, root) {
			delete(d.direct, n)
		}
	}
	for n := range d.delegated {
		if !attached(n, root) {
			delete(d.delegated, n)
		}
	}
}

func attached(n, root *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}
