package session

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/florianilch/authhelper/internal/credstore"
)

// recordingNavigator remembers every navigation target.
type recordingNavigator struct {
	targets []string
}

func (n *recordingNavigator) Navigate(_ context.Context, target string) {
	n.targets = append(n.targets, target)
}

// failingStore fails every Clear while otherwise behaving like a MemoryStore.
type failingStore struct {
	*credstore.MemoryStore
}

func (f failingStore) Clear(context.Context, string) error {
	return credstore.ErrReadOnly
}

func newTestSession(t *testing.T, values map[string]string) (*Session, *credstore.MemoryStore, *recordingNavigator) {
	t.Helper()
	store := credstore.NewMemoryStore()
	for k, v := range values {
		if err := store.Set(context.Background(), k, v); err != nil {
			t.Fatal(err)
		}
	}
	nav := &recordingNavigator{}
	s, err := New(store, nav)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, store, nav
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, &recordingNavigator{}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := New(credstore.NewMemoryStore(), nil); err == nil {
		t.Error("expected error for nil navigator")
	}
}

func TestIsLoggedIn(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   bool
	}{
		{name: "no token", values: nil, want: false},
		{name: "empty token", values: map[string]string{credstore.KeyToken: ""}, want: false},
		{name: "username without token", values: map[string]string{credstore.KeyUsername: "alice"}, want: false},
		{name: "token", values: map[string]string{credstore.KeyToken: "abc"}, want: true},
		{name: "token without username", values: map[string]string{credstore.KeyToken: "abc", credstore.KeyRoles: "[]"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestSession(t, tt.values)
			if got := s.IsLoggedIn(context.Background()); got != tt.want {
				t.Errorf("IsLoggedIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupToken(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]string
		wantToken string
		wantOK    bool
	}{
		{name: "absent", values: nil, wantToken: "", wantOK: false},
		{name: "empty string stored", values: map[string]string{credstore.KeyToken: ""}, wantToken: "", wantOK: true},
		{name: "token stored", values: map[string]string{credstore.KeyToken: "jwt-abc"}, wantToken: "jwt-abc", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestSession(t, tt.values)
			token, ok, err := s.LookupToken(context.Background())
			if err != nil {
				t.Fatalf("LookupToken: %v", err)
			}
			if token != tt.wantToken || ok != tt.wantOK {
				t.Errorf("LookupToken() = (%q, %v), want (%q, %v)", token, ok, tt.wantToken, tt.wantOK)
			}
		})
	}
}

func TestUserInfo(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]string
		wantUser  string
		wantRoles []string
		wantErr   error
	}{
		{
			name:      "roles absent",
			values:    map[string]string{credstore.KeyUsername: "alice"},
			wantUser:  "alice",
			wantRoles: []string{},
		},
		{
			name:      "admin roles",
			values:    map[string]string{credstore.KeyRoles: `["ROLE_ADMIN"]`},
			wantRoles: []string{"ROLE_ADMIN"},
		},
		{
			name:      "ordered roles",
			values:    map[string]string{credstore.KeyUsername: "bob", credstore.KeyRoles: `["ROLE_USER","ROLE_ADMIN"]`},
			wantUser:  "bob",
			wantRoles: []string{"ROLE_USER", "ROLE_ADMIN"},
		},
		{
			name:      "json null",
			values:    map[string]string{credstore.KeyRoles: `null`},
			wantRoles: []string{},
		},
		{
			name:    "malformed",
			values:  map[string]string{credstore.KeyRoles: `ROLE_USER,ROLE_ADMIN`},
			wantErr: ErrMalformedRoles,
		},
		{
			name:    "not an array of strings",
			values:  map[string]string{credstore.KeyRoles: `{"role":"ROLE_ADMIN"}`},
			wantErr: ErrMalformedRoles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestSession(t, tt.values)
			info, err := s.UserInfo(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UserInfo() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UserInfo() error = %v", err)
			}
			if info.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", info.Username, tt.wantUser)
			}
			if !slices.Equal(info.Roles, tt.wantRoles) || info.Roles == nil {
				t.Errorf("Roles = %#v, want %#v", info.Roles, tt.wantRoles)
			}
		})
	}
}

func TestUserInfoIsAdmin(t *testing.T) {
	if (UserInfo{Roles: []string{"ROLE_USER"}}).IsAdmin() {
		t.Error("ROLE_USER must not be admin")
	}
	if (UserInfo{Roles: []string{"role_admin"}}).IsAdmin() {
		t.Error("admin match must be exact")
	}
	if !(UserInfo{Roles: []string{"ROLE_USER", "ROLE_ADMIN"}}).IsAdmin() {
		t.Error("ROLE_ADMIN must be admin")
	}
}

func TestLogoutClearsAndNavigates(t *testing.T) {
	s, store, nav := newTestSession(t, map[string]string{
		credstore.KeyToken:    "abc",
		credstore.KeyUsername: "alice",
		credstore.KeyRoles:    `["ROLE_USER"]`,
	})
	ctx := context.Background()

	var notified []State
	s.Subscribe(func(st State) { notified = append(notified, st) })

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	for _, key := range credstore.Keys {
		if _, err := store.Get(ctx, key); !errors.Is(err, credstore.ErrNotFound) {
			t.Errorf("%s still stored after logout (err=%v)", key, err)
		}
	}
	if !slices.Equal(nav.targets, []string{"/login"}) {
		t.Errorf("navigations = %v, want [/login]", nav.targets)
	}
	if len(notified) != 1 || notified[0].LoggedIn {
		t.Errorf("subscriber states = %+v, want one logged-out state", notified)
	}
}

func TestLogoutNavigatesEvenWhenClearFails(t *testing.T) {
	store := failingStore{credstore.NewMemoryStore()}
	nav := &recordingNavigator{}
	s, err := New(store, nav, WithLoginPath("/signin"))
	if err != nil {
		t.Fatal(err)
	}

	err = s.Logout(context.Background())
	if !errors.Is(err, credstore.ErrReadOnly) {
		t.Errorf("Logout error = %v, want ErrReadOnly", err)
	}
	if !slices.Equal(nav.targets, []string{"/signin"}) {
		t.Errorf("navigations = %v, want [/signin]", nav.targets)
	}
}

func TestPersistAndState(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	ctx := context.Background()

	var notified []State
	cancel := s.Subscribe(func(st State) { notified = append(notified, st) })

	err := s.Persist(ctx, Credentials{Token: "abc", Username: "root", Roles: []string{"ROLE_USER", "ROLE_ADMIN"}})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	state, err := s.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if !state.LoggedIn || !state.Admin || state.Username != "root" {
		t.Errorf("State() = %+v", state)
	}
	if len(notified) != 1 || !notified[0].Admin {
		t.Errorf("subscriber states = %+v", notified)
	}

	cancel()
	if err := s.Persist(ctx, Credentials{Token: "def"}); err != nil {
		t.Fatal(err)
	}
	if len(notified) != 1 {
		t.Errorf("canceled subscriber still notified: %d calls", len(notified))
	}

	if err := s.Persist(ctx, Credentials{}); err == nil {
		t.Error("expected error persisting empty token")
	}
}

func TestStateWithMalformedRoles(t *testing.T) {
	s, _, _ := newTestSession(t, map[string]string{
		credstore.KeyToken: "abc",
		credstore.KeyRoles: "not json",
	})

	state, err := s.State(context.Background())
	if !errors.Is(err, ErrMalformedRoles) {
		t.Fatalf("State() error = %v, want ErrMalformedRoles", err)
	}
	if !state.LoggedIn || state.Admin {
		t.Errorf("State() = %+v, want logged in without admin", state)
	}
}

func TestTokenSource(t *testing.T) {
	s, store, _ := newTestSession(t, nil)

	tok, err := s.TokenSource().Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.Valid() {
		t.Error("token must not be valid when logged out")
	}

	if err := store.Set(context.Background(), credstore.KeyToken, "abc"); err != nil {
		t.Fatal(err)
	}
	tok, err = s.TokenSource().Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if !tok.Valid() || tok.AccessToken != "abc" || tok.Type() != "Bearer" {
		t.Errorf("Token() = %+v", tok)
	}
}
