// internal/browser/context_utils.go
package browser

import "context"

// CombineContext derives a context from primary, which carries the CDP
// target, that is also canceled when secondary, the caller's operational
// context, is done. Values come from primary only.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancelCause(primary)
	stop := context.AfterFunc(secondary, func() {
		cancel(context.Cause(secondary))
	})
	return combined, func() {
		stop()
		cancel(context.Canceled)
	}
}
