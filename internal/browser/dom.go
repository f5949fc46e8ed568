//go:build js && wasm

package browser

import (
	"syscall/js"

	"github.com/florianilch/authhelper/internal/view"
)

// boundAttr marks logout elements that already carry the click handler.
const boundAttr = "data-authhelper-bound"

// DOM applies views to a document.
type DOM struct {
	document js.Value
	onLogout js.Func
}

// NewDOM returns a DOM for window.document. onLogout runs when a logout-btn is
// clicked; the default action of the element is prevented.
func NewDOM(onLogout func()) *DOM {
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			args[0].Call("preventDefault")
		}
		go onLogout()
		return nil
	})
	return &DOM{
		document: js.Global().Get("document"),
		onLogout: handler,
	}
}

// Apply toggles the hidden class on every marker element, sets the greeting and
// binds logout handlers. Elements are bound at most once, so Apply may run after
// every state change.
func (d *DOM) Apply(v view.View) {
	for _, cv := range v.Classes() {
		forEachNode(d.document.Call("querySelectorAll", "."+cv.Class), func(el js.Value) {
			switch cv.Visibility {
			case view.Shown:
				el.Get("classList").Call("remove", view.ClassHidden)
			case view.Hidden:
				el.Get("classList").Call("add", view.ClassHidden)
			}
		})
	}

	if v.Greeting != "" {
		forEachNode(d.document.Call("querySelectorAll", "."+view.ClassUserInfo), func(el js.Value) {
			el.Set("textContent", v.Greeting)
		})
	}

	if v.BindLogout {
		forEachNode(d.document.Call("querySelectorAll", "."+view.ClassLogout), func(el js.Value) {
			if el.Call("hasAttribute", boundAttr).Bool() {
				return
			}
			el.Call("addEventListener", "click", d.onLogout)
			el.Call("setAttribute", boundAttr, "")
		})
	}
}

// Release frees the click handler. Bound elements stop working afterwards.
func (d *DOM) Release() {
	d.onLogout.Release()
}

// OnReady runs fn once the document has been parsed.
func OnReady(fn func()) {
	document := js.Global().Get("document")
	if document.Get("readyState").String() != "loading" {
		fn()
		return
	}
	var ready js.Func
	ready = js.FuncOf(func(this js.Value, args []js.Value) any {
		fn()
		ready.Release()
		return nil
	})
	document.Call("addEventListener", "DOMContentLoaded", ready)
}

func forEachNode(list js.Value, fn func(js.Value)) {
	if !list.Truthy() {
		return
	}
	length := list.Get("length").Int()
	for i := 0; i < length; i++ {
		fn(list.Index(i))
	}
}
