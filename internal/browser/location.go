//go:build js && wasm

package browser

import (
	"context"
	"syscall/js"
)

// Location navigates the current window.
type Location struct{}

// Navigate assigns path to window.location.href.
func (Location) Navigate(_ context.Context, path string) {
	js.Global().Get("location").Set("href", path)
}
