package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/authhelper/internal/credstore"
	"github.com/florianilch/authhelper/internal/gateway"
	"github.com/florianilch/authhelper/internal/interceptor"
	"github.com/florianilch/authhelper/internal/session"
)

// authRequestTimeout bounds login and register calls.
const authRequestTimeout = 30 * time.Second

// App wires the credential store, session, request pipeline and gateway, and
// orchestrates the lifecycle of the gateway server.
type App struct {
	cfg       *Config
	navigator *gateway.PendingNavigator
	session   *session.Session
	pipeline  *interceptor.Pipeline
	gateway   *gateway.Gateway
}

// Option configures an App.
type Option func(*options)

type options struct {
	store     credstore.Store
	transport http.RoundTripper
}

// WithStore replaces the configured credential store.
func WithStore(store credstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithTransport sets the base transport for all outgoing requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// New creates a new App instance. No I/O is performed.
func New(cfg *Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = cfg.Store.NewStore()
		if err != nil {
			return nil, fmt.Errorf("failed to create credential store: %w", err)
		}
	}

	client, err := session.NewClient(cfg.Upstream.BaseURL,
		session.WithEndpoints(cfg.Paths.AuthLogin, cfg.Paths.AuthRegister),
		session.WithHTTPClient(&http.Client{Transport: o.transport, Timeout: authRequestTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	navigator := gateway.NewNavigator()
	sess, err := session.New(store, navigator,
		session.WithLoginPath(cfg.Paths.Login),
		session.WithClient(client),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	pipeline := interceptor.New(o.transport,
		interceptor.RequestID(),
		interceptor.AuthFailure(func(ctx context.Context, _ *http.Response) {
			if err := sess.Logout(ctx); err != nil {
				slog.ErrorContext(ctx, "forced logout incomplete", "error", err)
			}
		}),
		interceptor.Bearer(sess.TokenSource(), interceptor.WithAPIMarker(cfg.Paths.APIMarker)),
	)

	gw, err := gateway.New(sess, navigator, cfg.Upstream.BaseURL,
		gateway.WithLogoutPath(cfg.Paths.Logout),
		gateway.WithAuthLoginPath(cfg.Paths.AuthLogin),
		gateway.WithAPIMarker(cfg.Paths.APIMarker),
		gateway.WithTransport(o.transport),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	return &App{
		cfg:       cfg,
		navigator: navigator,
		session:   sess,
		pipeline:  pipeline,
		gateway:   gw,
	}, nil
}

// Session returns the session backed by the configured store.
func (a *App) Session() *session.Session {
	return a.session
}

// HTTPClient returns a client sending requests through the session pipeline.
func (a *App) HTTPClient() *http.Client {
	return a.pipeline.Client()
}

// ResolveURL resolves ref against the upstream base URL.
func (a *App) ResolveURL(ref string) (string, error) {
	base, err := url.Parse(a.cfg.Upstream.BaseURL + "/")
	if err != nil {
		return "", err
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	return u.String(), nil
}

// TakeNavigation returns the absolute URL of a navigation requested since the
// last call, e.g. by a logout.
func (a *App) TakeNavigation() (string, bool) {
	target, ok := a.navigator.Take()
	if !ok {
		return "", false
	}
	resolved, err := a.ResolveURL(target)
	if err != nil {
		return target, true
	}
	return resolved, true
}

// Start starts the gateway and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting gateway", "address", address, "upstream", a.cfg.Upstream.BaseURL)
	gatewayErrCh, err := a.gateway.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("gateway startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.gateway.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-gatewayErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "gateway runtime error", "error", err)
				return fmt.Errorf("gateway: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
