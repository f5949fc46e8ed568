package credstore

import (
	"context"
	"errors"
)

// Keys of the credential triple.
const (
	KeyToken    = "token"
	KeyUsername = "username"
	KeyRoles    = "roles"
)

// Keys lists every key a session owns, in removal order.
var Keys = []string{KeyToken, KeyUsername, KeyRoles}

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("credential not found")

	// ErrReadOnly is returned by Set and Clear on backends that cannot be written.
	ErrReadOnly = errors.New("credential store is read-only")
)

// Store reads and writes string credentials by key.
type Store interface {
	// Get returns the stored value. Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set persists the value, overwriting any existing one.
	Set(ctx context.Context, key, value string) error

	// Clear removes the key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}
