package modal

// Template holds the markup skeletons dialogs are built from.
type Template struct {
	Container string
	Header    string
	Body      string
	// Footer is materialized by ConfirmModal when the surface has no
	// decision buttons yet.
	Footer string
}

// DefaultTemplate is the Bootstrap 3 modal skeleton.
var DefaultTemplate = Template{
	Container: `<div class="modal" tabindex="-1" role="dialog" aria-labelledby="myModalLabel" aria-hidden="true" style="display: none; background:rgba(0,0,0,0.1)"><div class="modal-dialog"><div class="modal-content"></div></div></div>`,
	Header:    `<div class="modal-header"><button type="button" class="close" data-modal-close="true" aria-hidden="true">×</button><h4 class="modal-title"></h4></div>`,
	Body:      `<div class="modal-body"></div>`,
	Footer:    `<div class="modal-footer"><button type="button" class="btn btn-default" data-modal-cancel="true" data-modal-close="true"></button><button type="button" class="btn btn-primary" data-modal-confirm="true" data-modal-close="true"></button></div>`,
}

const errorBanner = `<div class="modal-error alert alert-danger">%s</div>`

// Identifiers of the shared dialogs created by UI.Init.
const (
	GlobalID        = "globalModal"
	GlobalConfirmID = "globalModalConfirm"
)

const (
	selContent    = ".modal-content"
	selDialog     = ".modal-dialog"
	selHeader     = ".modal-header"
	selTitle      = ".modal-title"
	selBody       = ".modal-body"
	selError      = ".modal-error"
	selForm       = "form"
	selClose      = "[data-modal-close]"
	selClearError = "[data-modal-clear-error]"
	selConfirmBtn = "[data-modal-confirm]"
	selCancelBtn  = "[data-modal-cancel]"
	clickEvent    = "click"
)
