// Package browser binds the session to the live page when compiled to
// WebAssembly: localStorage for credentials, window.location for navigation
// and the DOM for the rendered view. The request and response conversions of
// the fetch bridge build on every platform.
package browser
