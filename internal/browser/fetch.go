//go:build js && wasm

package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"syscall/js"
)

// Promise runs fn on a new goroutine and settles a JavaScript Promise with its
// result. Blocking Go calls must not run on the event loop.
func Promise(fn func() (any, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			result, err := fn()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(result)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

// Fetch returns a fetch-like function sending requests through client. It takes
// (url, {method, headers, body}) and resolves to {status, ok, headers, body}.
func Fetch(client *http.Client) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 || args[0].Type() != js.TypeString {
			return Promise(func() (any, error) {
				return nil, fmt.Errorf("fetch: url must be a string")
			})
		}
		ref := args[0].String()
		init := js.Undefined()
		if len(args) > 1 {
			init = args[1]
		}

		req, err := newRequest(ref, init)
		return Promise(func() (any, error) {
			if err != nil {
				return nil, err
			}
			return do(client, req)
		})
	})
}

// newRequest reads the request from JavaScript values. It runs on the event
// loop so the values are not touched from other goroutines.
func newRequest(ref string, init js.Value) (*http.Request, error) {
	var ri RequestInit
	if init.Type() == js.TypeObject {
		if m := init.Get("method"); m.Type() == js.TypeString {
			ri.Method = m.String()
		}
		if b := init.Get("body"); b.Type() == js.TypeString {
			body := b.String()
			ri.Body = &body
		}
		if h := init.Get("headers"); h.Type() == js.TypeObject {
			keys := js.Global().Get("Object").Call("keys", h)
			ri.Headers = make(map[string]string, keys.Length())
			for i := 0; i < keys.Length(); i++ {
				name := keys.Index(i).String()
				ri.Headers[name] = h.Get(name).String()
			}
		}
	}

	return NewRequest(context.Background(), pageAddress(), ref, ri)
}

func do(client *http.Client, req *http.Request) (any, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading body: %w", err)
	}
	return ResponseValue(resp, data), nil
}

func pageAddress() string {
	return js.Global().Get("location").Get("href").String()
}
