package credstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

// exerciseStore runs the behavior every writable Store must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, KeyToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: got %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, KeyToken, "abc.def"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, KeyRoles, `["ROLE_USER","ROLE_ADMIN"]`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, KeyToken)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "abc.def" {
		t.Errorf("Get token = %q, want %q", got, "abc.def")
	}

	if err := store.Set(ctx, KeyToken, "rotated"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, _ := store.Get(ctx, KeyToken); got != "rotated" {
		t.Errorf("Get after overwrite = %q, want %q", got, "rotated")
	}

	if err := store.Clear(ctx, KeyToken); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Get(ctx, KeyToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Clear: got %v, want ErrNotFound", err)
	}
	if got, _ := store.Get(ctx, KeyRoles); got != `["ROLE_USER","ROLE_ADMIN"]` {
		t.Errorf("Clear removed unrelated key, roles = %q", got)
	}

	// Clearing twice is fine
	if err := store.Clear(ctx, KeyToken); err != nil {
		t.Errorf("Clear of absent key: %v", err)
	}
	if err := store.Clear(ctx, KeyUsername); err != nil {
		t.Errorf("Clear of never-set key: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	exerciseStore(t, store)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat credential file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %04o, want 0600", perm)
	}

	// A second store on the same path sees persisted values
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if got, _ := reopened.Get(context.Background(), KeyRoles); got != `["ROLE_USER","ROLE_ADMIN"]` {
		t.Errorf("reopened roles = %q", got)
	}
}

func TestFileStoreRejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"token":"abc"}`), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_, err = store.Get(context.Background(), KeyToken)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestFileStoreEmptyPath(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore("authhelper-test", "alice")
	if err != nil {
		t.Fatalf("NewKeyringStore: %v", err)
	}

	exerciseStore(t, store)
}

func TestKeyringStoreValidation(t *testing.T) {
	if _, err := NewKeyringStore("", "alice"); err == nil {
		t.Error("expected error for empty service")
	}
	if _, err := NewKeyringStore("svc", ""); err == nil {
		t.Error("expected error for empty user")
	}
}

func TestEnvStore(t *testing.T) {
	t.Setenv("AUTHHELPER_TEST_TOKEN", "from-env")
	t.Setenv("AUTHHELPER_TEST_USERNAME", "")

	store, err := NewEnvStore("AUTHHELPER_TEST_")
	if err != nil {
		t.Fatalf("NewEnvStore: %v", err)
	}
	ctx := context.Background()

	got, err := store.Get(ctx, KeyToken)
	if err != nil || got != "from-env" {
		t.Errorf("Get token = %q, %v", got, err)
	}
	if _, err := store.Get(ctx, KeyUsername); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty variable: got %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, KeyRoles); !errors.Is(err, ErrNotFound) {
		t.Errorf("unset variable: got %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, KeyToken, "x"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set: got %v, want ErrReadOnly", err)
	}
	if err := store.Clear(ctx, KeyToken); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Clear: got %v, want ErrReadOnly", err)
	}
}

func TestStoresHonorCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	if _, err := store.Get(ctx, KeyToken); !errors.Is(err, context.Canceled) {
		t.Errorf("Get: got %v, want context.Canceled", err)
	}
	if err := store.Set(ctx, KeyToken, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Set: got %v, want context.Canceled", err)
	}
}
