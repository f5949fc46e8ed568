//go:build js && wasm

package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"syscall/js"

	"github.com/florianilch/authhelper/internal/session"
)

// API is the JavaScript object exposing the session to page scripts.
type API struct {
	sess   *session.Session
	client *http.Client
	funcs  []js.Func
}

// NewAPI returns an API for sess. Requests made through fetch use client.
func NewAPI(sess *session.Session, client *http.Client) *API {
	return &API{sess: sess, client: client}
}

// Expose installs the API as window[name]:
//
//	getToken()     string or null
//	isLoggedIn()   boolean
//	getUserInfo()  {username, roles}, null on malformed roles
//	login(u, p)    Promise<{username, roles}>
//	logout()       clears credentials and navigates to the login page
//	fetch(url, init) Promise<{status, ok, headers, body}>
func (a *API) Expose(name string) {
	obj := js.Global().Get("Object").New()
	obj.Set("getToken", a.bind(a.getToken))
	obj.Set("isLoggedIn", a.bind(a.isLoggedIn))
	obj.Set("getUserInfo", a.bind(a.getUserInfo))
	obj.Set("login", a.bind(a.login))
	obj.Set("logout", a.bind(a.logout))

	fetch := Fetch(a.client)
	a.funcs = append(a.funcs, fetch)
	obj.Set("fetch", fetch)

	js.Global().Set(name, obj)
}

// Release frees all functions installed by Expose.
func (a *API) Release() {
	for _, fn := range a.funcs {
		fn.Release()
	}
	a.funcs = nil
}

func (a *API) bind(fn func(args []js.Value) any) js.Func {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		return fn(args)
	})
	a.funcs = append(a.funcs, f)
	return f
}

func (a *API) getToken(_ []js.Value) any {
	ctx := context.Background()
	token, ok, err := a.sess.LookupToken(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read token", "error", err)
		return js.Null()
	}
	if !ok {
		return js.Null()
	}
	return token
}

func (a *API) isLoggedIn(_ []js.Value) any {
	return a.sess.IsLoggedIn(context.Background())
}

func (a *API) getUserInfo(_ []js.Value) any {
	ctx := context.Background()
	info, err := a.sess.UserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read user info", "error", err)
		return js.Null()
	}
	return userInfoValue(info)
}

func (a *API) login(args []js.Value) any {
	if len(args) < 2 {
		return Promise(func() (any, error) {
			return nil, fmt.Errorf("login: username and password required")
		})
	}
	username, password := args[0].String(), args[1].String()
	return Promise(func() (any, error) {
		info, err := a.sess.Login(context.Background(), username, password)
		if err != nil {
			return nil, err
		}
		return userInfoValue(info), nil
	})
}

func (a *API) logout(_ []js.Value) any {
	ctx := context.Background()
	if err := a.sess.Logout(ctx); err != nil {
		slog.ErrorContext(ctx, "logout incomplete", "error", err)
	}
	return nil
}

func userInfoValue(info session.UserInfo) map[string]any {
	roles := make([]any, len(info.Roles))
	for i, r := range info.Roles {
		roles[i] = r
	}
	return map[string]any{"username": info.Username, "roles": roles}
}
