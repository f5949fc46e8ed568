package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/florianilch/authhelper/internal/credstore"
)

// RoleAdmin is the role that grants access to admin-only features.
const RoleAdmin = "ROLE_ADMIN"

// DefaultLoginPath is where Logout navigates to.
const DefaultLoginPath = "/login"

// ErrMalformedRoles is returned when the stored roles value is not a JSON array of strings.
var ErrMalformedRoles = errors.New("malformed roles")

// Navigator moves the user agent to another page.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context, target string)

// Navigate calls f(ctx, target).
func (f NavigatorFunc) Navigate(ctx context.Context, target string) {
	f(ctx, target)
}

// UserInfo describes the logged-in user as far as the store knows.
type UserInfo struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// IsAdmin reports whether the roles contain RoleAdmin.
func (u UserInfo) IsAdmin() bool {
	return slices.Contains(u.Roles, RoleAdmin)
}

// State is a snapshot of the login state used for rendering.
type State struct {
	LoggedIn bool
	Username string
	Roles    []string
	Admin    bool
}

// Credentials is the triple written at login.
type Credentials struct {
	Token    string
	Username string
	Roles    []string
}

// Option configures a Session.
type Option func(*Session)

// WithLoginPath overrides the navigation target used by Logout.
func WithLoginPath(path string) Option {
	return func(s *Session) {
		s.loginPath = path
	}
}

// WithClient sets the client used by Login and Register.
func WithClient(client *Client) Option {
	return func(s *Session) {
		s.client = client
	}
}

// Session provides access to the stored credentials.
type Session struct {
	store     credstore.Store
	navigator Navigator
	loginPath string
	client    *Client

	mu          sync.Mutex
	nextID      int
	subscribers map[int]func(State)
}

// New creates a Session backed by store. Logout navigates through navigator.
func New(store credstore.Store, navigator Navigator, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, fmt.Errorf("missing credential store")
	}
	if navigator == nil {
		return nil, fmt.Errorf("missing navigator")
	}

	s := &Session{
		store:       store,
		navigator:   navigator,
		loginPath:   DefaultLoginPath,
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// LoginPath returns the navigation target used by Logout.
func (s *Session) LoginPath() string {
	return s.loginPath
}

// Token returns the stored token, or "" if there is none.
func (s *Session) Token(ctx context.Context) (string, error) {
	return s.get(ctx, credstore.KeyToken)
}

// LookupToken returns the stored token and whether one is stored at all. An empty
// stored token is reported as present.
func (s *Session) LookupToken(ctx context.Context) (string, bool, error) {
	token, err := s.store.Get(ctx, credstore.KeyToken)
	if errors.Is(err, credstore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", credstore.KeyToken, err)
	}
	return token, true, nil
}

// IsLoggedIn reports whether a non-empty token is stored.
// Store failures are logged and reported as logged out.
func (s *Session) IsLoggedIn(ctx context.Context) bool {
	token, err := s.Token(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read token", "error", err)
		return false
	}
	return token != ""
}

// UserInfo returns the stored username and roles. Absent roles decode to an empty
// slice; a value that is not a JSON array of strings yields ErrMalformedRoles.
func (s *Session) UserInfo(ctx context.Context) (UserInfo, error) {
	username, err := s.get(ctx, credstore.KeyUsername)
	if err != nil {
		return UserInfo{}, err
	}

	raw, err := s.get(ctx, credstore.KeyRoles)
	if err != nil {
		return UserInfo{}, err
	}

	roles := []string{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &roles); err != nil {
			return UserInfo{}, fmt.Errorf("%w: %w", ErrMalformedRoles, err)
		}
		if roles == nil {
			// JSON null
			roles = []string{}
		}
	}

	return UserInfo{Username: username, Roles: roles}, nil
}

// State returns the current login state.
func (s *Session) State(ctx context.Context) (State, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return State{}, err
	}

	info, err := s.UserInfo(ctx)
	if err != nil {
		return State{LoggedIn: token != ""}, err
	}

	return State{
		LoggedIn: token != "",
		Username: info.Username,
		Roles:    info.Roles,
		Admin:    info.IsAdmin(),
	}, nil
}

// Persist writes the credential triple and notifies subscribers.
func (s *Session) Persist(ctx context.Context, creds Credentials) error {
	if creds.Token == "" {
		return fmt.Errorf("refusing to persist empty token")
	}

	roles := creds.Roles
	if roles == nil {
		roles = []string{}
	}
	encodedRoles, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encoding roles: %w", err)
	}

	if err := s.store.Set(ctx, credstore.KeyToken, creds.Token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	if err := s.store.Set(ctx, credstore.KeyUsername, creds.Username); err != nil {
		return fmt.Errorf("storing username: %w", err)
	}
	if err := s.store.Set(ctx, credstore.KeyRoles, string(encodedRoles)); err != nil {
		return fmt.Errorf("storing roles: %w", err)
	}

	s.notify(ctx)
	return nil
}

// Logout removes the credential triple and navigates to the login page.
// Every removal is attempted; navigation happens even if some of them fail.
func (s *Session) Logout(ctx context.Context) error {
	var errs []error
	for _, key := range credstore.Keys {
		if err := s.store.Clear(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("clearing %s: %w", key, err))
		}
	}

	slog.InfoContext(ctx, "logged out", "navigate", s.loginPath)
	s.navigator.Navigate(ctx, s.loginPath)
	s.notify(ctx)

	return errors.Join(errs...)
}

// Subscribe registers fn to be called with the new state after every login and
// logout. The returned function removes the subscription.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// notify delivers the current state to subscribers. Malformed roles are rendered
// as no roles rather than skipping the update.
func (s *Session) notify(ctx context.Context) {
	s.mu.Lock()
	subscribers := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	if len(subscribers) == 0 {
		return
	}

	state, err := s.State(ctx)
	if err != nil {
		slog.WarnContext(ctx, "rendering state without user info", "error", err)
	}
	for _, fn := range subscribers {
		fn(state)
	}
}

// get returns the stored value for key, or "" when absent.
func (s *Session) get(ctx context.Context, key string) (string, error) {
	value, err := s.store.Get(ctx, key)
	if errors.Is(err, credstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}
