package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default endpoint paths of the authentication API.
const (
	DefaultAuthLoginPath    = "/api/auth/login"
	DefaultAuthRegisterPath = "/api/auth/register"
)

var (
	// ErrInvalidCredentials is returned when the server rejects a username/password pair.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNotConfigured is returned by Session.Login and Session.Register without a Client.
	ErrNotConfigured = errors.New("authentication client not configured")
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for authentication requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoints overrides the login and register endpoint paths.
func WithEndpoints(loginPath, registerPath string) ClientOption {
	return func(c *Client) {
		c.loginPath = loginPath
		c.registerPath = registerPath
	}
}

// Client talks to the authentication API that issues tokens.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	loginPath    string
	registerPath string
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL:      u,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		loginPath:    DefaultAuthLoginPath,
		registerPath: DefaultAuthRegisterPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LoginPath returns the login endpoint path.
func (c *Client) LoginPath() string {
	return c.loginPath
}

// authRequest is the body of login and register requests.
type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token    string   `json:"token"`
	Type     string   `json:"type,omitempty"`
	Username string   `json:"username"`
	Roles    RoleList `json:"roles"`
}

// Credentials converts the response into the stored triple.
func (r LoginResponse) Credentials() Credentials {
	return Credentials{Token: r.Token, Username: r.Username, Roles: []string(r.Roles)}
}

// RoleList decodes roles sent either as a JSON array or as a comma-separated string.
type RoleList []string

// UnmarshalJSON implements json.Unmarshaler.
func (r *RoleList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("roles must be an array or a comma-separated string: %w", err)
	}

	roles := []string{}
	for role := range strings.SplitSeq(joined, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	*r = roles
	return nil
}

// DecodeLoginResponse parses a login response body.
func DecodeLoginResponse(r io.Reader) (LoginResponse, error) {
	var resp LoginResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return LoginResponse{}, fmt.Errorf("decoding login response: %w", err)
	}
	if resp.Token == "" {
		return LoginResponse{}, fmt.Errorf("login response carries no token")
	}
	return resp, nil
}

// Login exchanges a username and password for a token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	resp, err := c.post(ctx, c.loginPath, authRequest{Username: username, Password: password})
	if err != nil {
		return LoginResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return DecodeLoginResponse(resp.Body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return LoginResponse{}, ErrInvalidCredentials
	default:
		return LoginResponse{}, unexpectedStatus(resp)
	}
}

// Register creates a new account. An empty role lets the server pick its default.
func (c *Client) Register(ctx context.Context, username, password, role string) error {
	resp, err := c.post(ctx, c.registerPath, authRequest{Username: username, Password: password, Role: role})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", path, err)
	}
	return resp, nil
}

// unexpectedStatus turns a non-success response into an error, preferring the
// server's {"error": "..."} message when there is one.
func unexpectedStatus(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// Login authenticates against the configured Client and persists the result.
func (s *Session) Login(ctx context.Context, username, password string) (UserInfo, error) {
	if s.client == nil {
		return UserInfo{}, ErrNotConfigured
	}

	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		return UserInfo{}, err
	}

	creds := resp.Credentials()
	if err := s.Persist(ctx, creds); err != nil {
		return UserInfo{}, err
	}

	slog.InfoContext(ctx, "logged in", "username", creds.Username, "roles", creds.Roles)
	return UserInfo{Username: creds.Username, Roles: creds.Roles}, nil
}

// Register creates an account through the configured Client. It does not log in.
func (s *Session) Register(ctx context.Context, username, password, role string) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	return s.client.Register(ctx, username, password, role)
}
