// internal/omsa/errors.go
package omsa

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout matches every bounded wait that ran out of budget.
	ErrTimeout = errors.New("timed out")
	// ErrFrameNotFound matches a frame that did not appear under the current scope.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrElementTimeout matches an element that did not appear in the current scope.
	ErrElementTimeout = errors.New("element not present")
	// ErrNotAuthenticated is returned when the post-login frameset never shows up.
	ErrNotAuthenticated = errors.New("login did not reach the console frameset")
	// ErrAtRoot is returned by Pop on an empty stack.
	ErrAtRoot = errors.New("navigation context is already at the document root")
	// ErrMalformedObjectPath is returned for task-selector names that do not encode a drive.
	ErrMalformedObjectPath = errors.New("malformed task selector name")
	// ErrMissingDriveAttribute is returned when a drive's display cells cannot be read.
	ErrMissingDriveAttribute = errors.New("missing virtual drive attribute")
)

// WaitKind classifies a failed bounded wait.
type WaitKind int

const (
	// FrameNotFound means a named child frame never appeared.
	FrameNotFound WaitKind = iota
	// ElementTimeout means a selector never matched.
	ElementTimeout
)

func (k WaitKind) String() string {
	switch k {
	case FrameNotFound:
		return "FrameNotFound"
	case ElementTimeout:
		return "ElementTimeout"
	default:
		return fmt.Sprintf("WaitKind(%d)", int(k))
	}
}

// WaitError describes a bounded wait that failed.
type WaitError struct {
	Kind   WaitKind
	Scope  Scope
	Target string
	// Err is the underlying cause: a context error or a driver failure.
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("%s: %q in %s: %v", e.Kind, e.Target, e.Scope, e.Err)
}

func (e *WaitError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels and ErrTimeout.
func (e *WaitError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return true
	case ErrFrameNotFound:
		return e.Kind == FrameNotFound
	case ErrElementTimeout:
		return e.Kind == ElementTimeout
	}
	return false
}
