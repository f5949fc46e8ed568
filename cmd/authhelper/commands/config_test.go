package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/authhelper/internal/app"
)

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	err := os.WriteFile(configPath, []byte(`
log_level = "debug"

[upstream]
base_url = "http://file.example:8080"

[store]
type = "file"
file = "`+filepath.ToSlash(filepath.Join(dir, "creds.json"))+`"

[paths]
api_marker = "/rest/"
`), 0600)
	if err != nil {
		t.Fatal(err)
	}

	environ := func() []string {
		return []string{
			"AUTHHELPER_UPSTREAM__BASE_URL=http://env.example:9090",
			"AUTHHELPER_SERVER__PORT=5000",
			"UNRELATED=1",
		}
	}

	var cfg *app.Config
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-format"},
			&cli.StringFlag{Name: "store--type"},
			&cli.StringFlag{Name: "username"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var err error
			cfg, err = loadConfig(configPath, cmd, environ)
			return err
		},
	}

	if err := cmd.Run(context.Background(), []string{"test", "--log-format", "json", "--store--type", "memory", "--username", "alice"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if cfg.LogLevel.String() != "DEBUG" {
		t.Errorf("LogLevel = %v, want DEBUG from file", cfg.LogLevel)
	}
	if cfg.Upstream.BaseURL != "http://env.example:9090" {
		t.Errorf("BaseURL = %q, env must override file", cfg.Upstream.BaseURL)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Port = %d, want 5000 from env", cfg.Server.Port)
	}
	if cfg.LogFormat != app.LogFormatJSON {
		t.Errorf("LogFormat = %q, want json from flag", cfg.LogFormat)
	}
	if cfg.Store.Type != app.StoreTypeMemory {
		t.Errorf("Store.Type = %q, flag must override file", cfg.Store.Type)
	}
	if cfg.Paths.APIMarker != "/rest/" || cfg.Paths.Login != "/login" {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
}

func TestExtractAndTransformFlags(t *testing.T) {
	var got map[string]any
	root := &cli.Command{
		Name: "authhelper",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server--host"},
			&cli.StringFlag{Name: "log-level"},
		},
		Commands: []*cli.Command{{
			Name: "fetch",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "username"},
				&cli.StringFlag{Name: "method"},
			},
			Action: func(_ context.Context, cmd *cli.Command) error {
				got = extractAndTransformFlags(cmd)
				return nil
			},
		}},
	}

	args := []string{"authhelper", "--server--host", "0.0.0.0", "fetch", "--username", "alice", "--method", "POST"}
	if err := root.Run(context.Background(), args); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(got) != 1 || got["server.host"] != "0.0.0.0" {
		t.Errorf("flags = %v, want only server.host", got)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	environ := func() []string {
		return []string{"AUTHHELPER_STORE__TYPE=cookie"}
	}
	if _, err := loadConfig("", nil, environ); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestReadPasswordLine(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "secret\n", want: "secret"},
		{input: "secret\r\nignored\n", want: "secret"},
		{input: "no-newline", want: "no-newline"},
		{input: "\n", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := readPasswordLine(strings.NewReader(tt.input))
		if (err != nil) != tt.wantErr {
			t.Errorf("readPasswordLine(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("readPasswordLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
