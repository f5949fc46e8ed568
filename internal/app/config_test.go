package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/florianilch/authhelper/internal/credstore"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Paths.Login != "/login" || cfg.Paths.Logout != "/logout" || cfg.Paths.APIMarker != "/api/" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Store.Type != StoreTypeFile || !strings.HasSuffix(cfg.Store.File, filepath.Join("authhelper", "credentials.json")) {
		t.Errorf("store = %+v", cfg.Store)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "memory store", mutate: func(c *Config) { c.Store.Type = StoreTypeMemory }},
		{name: "env store gets prefix", mutate: func(c *Config) { c.Store.Type = StoreTypeEnv }},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Type = "cookie" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
		{name: "bad exporter", mutate: func(c *Config) { c.Telemetry.Exporter = "zipkin" }, wantErr: true},
		{name: "relative login path", mutate: func(c *Config) { c.Paths.Login = "login" }, wantErr: true},
		{name: "login equals logout", mutate: func(c *Config) { c.Paths.Logout = "/login" }, wantErr: true},
		{name: "bad upstream", mutate: func(c *Config) { c.Upstream.BaseURL = "not a url" }, wantErr: true},
		{name: "upstream trailing slash", mutate: func(c *Config) { c.Upstream.BaseURL = "http://app.internal:8080/" }},
		{name: "upstream with base path", mutate: func(c *Config) { c.Upstream.BaseURL = "http://app.internal/app" }, wantErr: true},
		{name: "upstream with query", mutate: func(c *Config) { c.Upstream.BaseURL = "http://app.internal?tenant=a" }, wantErr: true},
		{name: "bad host", mutate: func(c *Config) { c.Server.Host = "bad host!" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)
			if err := cfg.ApplyDefaults(); err != nil {
				t.Fatalf("ApplyDefaults: %v", err)
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvStoreDefaults(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Type: StoreTypeEnv}}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.Store.EnvPrefix != DefaultConfigStoreEnvPrefix {
		t.Errorf("EnvPrefix = %q", cfg.Store.EnvPrefix)
	}
	if cfg.Writable() {
		t.Error("env store must not be writable")
	}
}

func TestAppClientAndNavigation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	cfg := &Config{Upstream: UpstreamConfig{BaseURL: upstream.URL + "/"}, Store: StoreConfig{Type: StoreTypeMemory}}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}

	store := credstore.NewMemoryStore()
	a, err := New(cfg, WithStore(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, credstore.KeyToken, "abc"); err != nil {
		t.Fatal(err)
	}

	target, err := a.ResolveURL("/api/employees")
	if err != nil {
		t.Fatal(err)
	}
	if target != upstream.URL+"/api/employees" {
		t.Errorf("ResolveURL = %q", target)
	}

	if _, ok := a.TakeNavigation(); ok {
		t.Error("no navigation expected before any request")
	}

	resp, err := a.HTTPClient().Get(target)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (token must have been sent)", resp.StatusCode)
	}

	if a.Session().IsLoggedIn(ctx) {
		t.Error("403 must log out")
	}
	nav, ok := a.TakeNavigation()
	if !ok || nav != upstream.URL+"/login" {
		t.Errorf("TakeNavigation() = %q, %v", nav, ok)
	}
}
