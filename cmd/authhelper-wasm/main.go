//go:build js && wasm

// Command authhelper-wasm runs the session helper inside the page.
//
//	GOOS=js GOARCH=wasm go build -o authhelper.wasm ./cmd/authhelper-wasm
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"syscall/js"

	"github.com/florianilch/authhelper/internal/browser"
	"github.com/florianilch/authhelper/internal/interceptor"
	"github.com/florianilch/authhelper/internal/session"
	"github.com/florianilch/authhelper/internal/view"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		slog.Error("authhelper failed to start", "error", err)
		os.Exit(1)
	}

	// Keep the callbacks alive
	select {}
}

func run() error {
	store, err := browser.NewLocalStorage()
	if err != nil {
		return err
	}

	origin := js.Global().Get("location").Get("origin").String()
	client, err := session.NewClient(origin)
	if err != nil {
		return err
	}

	sess, err := session.New(store, browser.Location{}, session.WithClient(client))
	if err != nil {
		return err
	}

	pipeline := interceptor.New(http.DefaultTransport,
		interceptor.AuthFailure(func(ctx context.Context, _ *http.Response) {
			if err := sess.Logout(ctx); err != nil {
				slog.ErrorContext(ctx, "forced logout incomplete", "error", err)
			}
		}),
		interceptor.Bearer(sess.TokenSource()),
	)

	browser.NewAPI(sess, pipeline.Client()).Expose("authHelper")

	dom := browser.NewDOM(func() {
		ctx := context.Background()
		if err := sess.Logout(ctx); err != nil {
			slog.ErrorContext(ctx, "logout incomplete", "error", err)
		}
	})
	sess.Subscribe(func(state session.State) {
		dom.Apply(view.Render(state))
	})

	browser.OnReady(func() {
		ctx := context.Background()
		state, err := sess.State(ctx)
		if err != nil {
			slog.WarnContext(ctx, "rendering without user info", "error", err)
		}
		dom.Apply(view.Render(state))
	})
	return nil
}
