// internal/omsa/driver.go
package omsa

import (
	"context"
	"strings"
)

// Scope is the path of frame names from the document root to the browsing
// context an operation acts on. An empty Scope is the top-level document.
type Scope []string

// String renders the scope as a slash separated path, "/" for the root.
func (s Scope) String() string {
	if len(s) == 0 {
		return "/"
	}
	return "/" + strings.Join(s, "/")
}

// Option is a single entry of a <select> control.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Element is a snapshot of a DOM element taken by Driver.Query.
type Element struct {
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes"`
	Text       string            `json:"text"`
	HTML       string            `json:"html"`
	// Options is only populated for <select> elements.
	Options []Option `json:"options"`
}

// Attr returns the named attribute, or "" when absent.
func (e Element) Attr(name string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[name]
}

// Driver is the capability surface the console workflow needs from a
// browser. Implementations resolve scope against the live frame tree on
// every call; nothing is cached between calls.
type Driver interface {
	// Navigate loads url in the top-level browsing context.
	Navigate(ctx context.Context, url string) error

	// FramePresent reports whether the frame called name exists directly under
	// scope and has a loaded document.
	FramePresent(ctx context.Context, scope Scope, name string) (bool, error)

	// ElementPresent reports whether selector matches at least one element in scope.
	ElementPresent(ctx context.Context, scope Scope, selector string) (bool, error)

	// Click clicks the first element matching selector.
	Click(ctx context.Context, scope Scope, selector string) error

	// SetValue assigns value to the first element matching selector. Checkboxes
	// and radio buttons are checked when value is truthy.
	SetValue(ctx context.Context, scope Scope, selector, value string) error

	// Query returns a snapshot of every element matching selector.
	Query(ctx context.Context, scope Scope, selector string) ([]Element, error)

	// Invoke calls the page-global function of the scope's window with args.
	Invoke(ctx context.Context, scope Scope, function string, args ...interface{}) error
}
