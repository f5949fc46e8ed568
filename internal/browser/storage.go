//go:build js && wasm

package browser

import (
	"context"
	"errors"
	"syscall/js"

	"github.com/florianilch/authhelper/internal/credstore"
)

// ErrNoStorage is returned when the page has no localStorage, e.g. in a
// sandboxed frame.
var ErrNoStorage = errors.New("localStorage unavailable")

// LocalStorage stores credentials in window.localStorage under their plain key
// names, so pages reading localStorage.getItem("token") keep working.
type LocalStorage struct {
	storage js.Value
}

// Compile-time check to ensure LocalStorage implements Store
var _ credstore.Store = (*LocalStorage)(nil)

// NewLocalStorage returns a store backed by window.localStorage.
func NewLocalStorage() (*LocalStorage, error) {
	storage := js.Global().Get("localStorage")
	if !storage.Truthy() {
		return nil, ErrNoStorage
	}
	return &LocalStorage{storage: storage}, nil
}

// Get returns the item stored under key.
func (l *LocalStorage) Get(ctx context.Context, key string) (value string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer recoverJSError(&err)

	item := l.storage.Call("getItem", key)
	if item.Type() != js.TypeString {
		return "", credstore.ErrNotFound
	}
	return item.String(), nil
}

// Set stores value under key. Fails when the storage quota is exceeded.
func (l *LocalStorage) Set(ctx context.Context, key, value string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer recoverJSError(&err)

	l.storage.Call("setItem", key, value)
	return nil
}

// Clear removes key.
func (l *LocalStorage) Clear(ctx context.Context, key string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer recoverJSError(&err)

	l.storage.Call("removeItem", key)
	return nil
}

// recoverJSError turns a thrown JavaScript exception into an error.
func recoverJSError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if jsErr, ok := r.(js.Error); ok {
		*err = jsErr
		return
	}
	panic(r)
}
