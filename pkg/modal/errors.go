package modal

// Fallbacks used by Error when the input carries no title or message.
const (
	DefaultErrorTitle   = "Error"
	DefaultErrorMessage = "An unknown error occured!"
)

// ErrorInput is what Modal.Error displays. It is one of Message, Extract or
// FromErr; a nil ErrorInput shows the defaults.
type ErrorInput interface {
	resolve() (title, message string)
}

// ErrorSource exposes display text for an error value. Either method may
// return "" to signal that the value has nothing to offer.
type ErrorSource interface {
	FirstError() string
	ErrorTitle() string
}

type plainMessage struct {
	title, text string
}

func (p plainMessage) resolve() (string, string) {
	return p.title, p.text
}

// Message is a plain title/text pair. Either may be empty.
func Message(title, text string) ErrorInput {
	return plainMessage{title: title, text: text}
}

type extracted struct {
	src ErrorSource
}

func (e extracted) resolve() (string, string) {
	if e.src == nil {
		return "", ""
	}
	return e.src.ErrorTitle(), e.src.FirstError()
}

// Extract derives title and message from src.
func Extract(src ErrorSource) ErrorInput {
	return extracted{src: src}
}

type goError struct {
	err error
}

func (g goError) resolve() (string, string) {
	if g.err == nil {
		return "", ""
	}
	return "", g.err.Error()
}

// FromErr shows err's text under the default title.
func FromErr(err error) ErrorInput {
	return goError{err: err}
}

// resolveError applies the defaults to in.
func resolveError(in ErrorInput) (title, message string) {
	if in != nil {
		title, message = in.resolve()
	}
	if title == "" {
		title = DefaultErrorTitle
	}
	if message == "" {
		message = DefaultErrorMessage
	}
	return title, message
}
