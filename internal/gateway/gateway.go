// Package gateway serves a web application through a local reverse proxy that
// carries the session: API requests get the bearer token, authentication failures
// log out, and HTML pages are rendered from the current login state.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/florianilch/authhelper/internal/interceptor"
	"github.com/florianilch/authhelper/internal/session"
	"github.com/florianilch/authhelper/internal/view"
)

// maxLoginResponseSize bounds the login response body buffered for capture.
const maxLoginResponseSize = 1 << 20

// Option configures a Gateway.
type Option func(*config)

type config struct {
	logoutPath    string
	authLoginPath string
	apiMarker     string
	transport     http.RoundTripper
}

// WithLogoutPath sets the path that logs out and redirects to the login page.
func WithLogoutPath(path string) Option {
	return func(c *config) {
		c.logoutPath = path
	}
}

// WithAuthLoginPath sets the API path whose successful responses are captured
// as the new credentials.
func WithAuthLoginPath(path string) Option {
	return func(c *config) {
		c.authLoginPath = path
	}
}

// WithAPIMarker sets the URL substring selecting requests that get the token.
func WithAPIMarker(marker string) Option {
	return func(c *config) {
		c.apiMarker = marker
	}
}

// WithTransport sets the base transport used to reach the upstream.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) {
		c.transport = rt
	}
}

// Gateway represents the session gateway server
type Gateway struct {
	mux     *http.ServeMux
	server  *http.Server
	session *session.Session
	nav     *PendingNavigator
	cfg     *config
}

// Compile-time check that Gateway implements http.Handler
var _ http.Handler = (*Gateway)(nil)

// New creates a Gateway in front of baseURL. nav must be the Navigator the
// session was created with so forced logouts reach the browser.
func New(sess *session.Session, nav *PendingNavigator, baseURL string, opts ...Option) (*Gateway, error) {
	if sess == nil {
		return nil, fmt.Errorf("missing session")
	}
	if nav == nil {
		return nil, fmt.Errorf("missing navigator")
	}

	upstream, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	cfg := &config{
		logoutPath:    view.DefaultLogoutPath,
		authLoginPath: session.DefaultAuthLoginPath,
		apiMarker:     interceptor.DefaultAPIMarker,
		transport:     http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	g := &Gateway{
		session: sess,
		nav:     nav,
		cfg:     cfg,
	}

	transport := interceptor.New(cfg.transport,
		interceptor.RequestID(),
		interceptor.AuthFailure(g.forceLogout),
		interceptor.Bearer(sess.TokenSource(), interceptor.WithAPIMarker(cfg.apiMarker)),
	)

	reverseProxyHandler := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = upstream.Scheme
			pr.Out.URL.Host = upstream.Host
			pr.Out.Host = upstream.Host
			pr.SetXForwarded()
			// Let the transport negotiate compression so pages and login
			// responses reach ModifyResponse decoded.
			pr.Out.Header.Del("Accept-Encoding")
		},
		// FlushInterval: -1 disables automatic periodic flushing, flushing only when the backend flushes.
		FlushInterval:  -1,
		Transport:      transport,
		ModifyResponse: g.modifyResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.ErrorContext(r.Context(), "upstream request failed", "error", err)
			writeJSONError(r.Context(), w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}

	logger := slog.Default()

	mux := http.NewServeMux()

	mux.Handle("GET "+cfg.logoutPath, applyMiddlewares(http.HandlerFunc(g.handleLogout),
		Logging(logger),
		Recovery,
	))
	mux.Handle("POST "+cfg.logoutPath, applyMiddlewares(http.HandlerFunc(g.handleLogout),
		Logging(logger),
		Recovery,
	))

	mux.Handle("/", applyMiddlewares(reverseProxyHandler,
		Logging(logger),
		Recovery,
		PendingNavigation(nav),
	))

	g.mux = mux
	return g, nil
}

// ServeHTTP implements http.Handler interface
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

// handleLogout clears the session and sends the browser to the login page.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := g.session.Logout(ctx); err != nil {
		slog.ErrorContext(ctx, "logout incomplete", "error", err)
	}

	target, ok := g.nav.Take()
	if !ok {
		target = g.session.LoginPath()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// forceLogout runs when the upstream answered 401 or 403.
func (g *Gateway) forceLogout(ctx context.Context, _ *http.Response) {
	if err := g.session.Logout(ctx); err != nil {
		slog.ErrorContext(ctx, "forced logout incomplete", "error", err)
	}
}

// modifyResponse captures login responses and renders HTML pages.
func (g *Gateway) modifyResponse(resp *http.Response) error {
	req := resp.Request

	if req.Method == http.MethodPost && req.URL.Path == g.cfg.authLoginPath && resp.StatusCode == http.StatusOK {
		return g.captureLogin(resp)
	}

	if isHTML(resp) && hasBody(resp) {
		return g.renderPage(resp)
	}

	return nil
}

// captureLogin persists the credentials carried by a successful login response.
// The body is passed on to the client untouched.
func (g *Gateway) captureLogin(resp *http.Response) error {
	ctx := resp.Request.Context()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginResponseSize))
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading login response: %w", err)
	}
	replaceBody(resp, body)

	login, err := session.DecodeLoginResponse(bytes.NewReader(body))
	if err != nil {
		slog.WarnContext(ctx, "login response not captured", "error", err)
		return nil
	}

	creds := login.Credentials()
	if err := g.session.Persist(ctx, creds); err != nil {
		slog.ErrorContext(ctx, "failed to persist credentials", "error", err)
		return nil
	}

	slog.InfoContext(ctx, "logged in", "username", creds.Username, "roles", creds.Roles)
	return nil
}

// renderPage applies the current login state to an HTML page.
func (g *Gateway) renderPage(resp *http.Response) error {
	ctx := resp.Request.Context()

	state, err := g.session.State(ctx)
	if err != nil {
		// Rendered without roles, so admin-only stays hidden
		slog.WarnContext(ctx, "rendering page without user info", "error", err)
	}

	var buf bytes.Buffer
	err = view.RenderHTML(resp.Body, &buf, view.Render(state), view.HTMLOptions{LogoutPath: g.cfg.logoutPath})
	_ = resp.Body.Close()
	if err != nil {
		return err
	}

	replaceBody(resp, buf.Bytes())
	return nil
}

func replaceBody(resp *http.Response, body []byte) {
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header.Del("Content-Encoding")
}

// hasBody reports whether resp can carry a page. HEAD responses and bodyless
// statuses keep the upstream headers as they are.
func hasBody(resp *http.Response) bool {
	if resp.Request.Method == http.MethodHead {
		return false
	}
	switch {
	case resp.StatusCode < 200, resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotModified:
		return false
	}
	return true
}

func isHTML(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (g *Gateway) Start(ctx context.Context, address string) (<-chan error, error) {
	// Startup phase: Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	g.server = &http.Server{
		Handler:      g,
		ReadTimeout:  30 * time.Second, // Inbound: Read entire client request (DoS protection against slow clients)
		WriteTimeout: 2 * time.Minute,  // Inbound: Write entire response to client
		IdleTimeout:  90 * time.Second, // Inbound: Keep-alive wait for next request from client
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := g.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	if err := g.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = g.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
