// Package modal turns a subtree of the UI document into a reusable,
// content-swappable dialog with loading, error and confirmation states.
//
// A UI value is the process-scoped context: it owns the document, the event
// loop, the collaborator capabilities and the registry of every Modal ever
// constructed. All methods must run on the UI loop.
//
// # Quick Start
//
//	ui := modal.NewUI(dom.New(), loop.New(nil))
//
//	m := ui.New("editModal")
//	m.Loader()
//	m.Content(modal.HTML(`<div class="modal-body">…</div>`), nil)
//
//	// Ad-hoc error dialog on the shared global modal
//	ui.Global().Error(modal.Message("Save failed", "disk full"))
//
//	// Yes/no question on the shared confirm modal
//	ui.Confirm(modal.ConfirmConfig{
//	    Body:    "Delete this entry?",
//	    Confirm: func(dom.Event) { deleteEntry() },
//	})
//
// # Lifecycle
//
// A Modal is constructed once and then cycles through
// Reset → Content/Error → Show → Close → Reset. Close fades the surface out,
// hides it and only then resets it to the loader, so no content flashes.
//
// # Markup
//
// The container, header and body skeletons live in Template. Host code may
// replace them with UI.SetTemplate before the first Modal is constructed.
package modal
