package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/authhelper/internal/view"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "apply the login state to an HTML page",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "in",
				Usage: "input HTML file (default stdin)",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output HTML file (default stdout)",
			},
			&cli.StringFlag{
				Name:  "logout-path",
				Usage: "URL bound to logout buttons",
				Value: view.DefaultLogoutPath,
			},
		},
		Action: renderAction,
	}
}

func renderAction(ctx context.Context, cmd *cli.Command) error {
	application, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	var in io.Reader = os.Stdin
	if path := cmd.String("in"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	out := cmd.Root().Writer
	if path := cmd.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	state, err := application.Session().State(ctx)
	if err != nil {
		slog.WarnContext(ctx, "rendering without user info", "error", err)
	}

	if err := view.RenderHTML(in, out, view.Render(state), view.HTMLOptions{LogoutPath: cmd.String("logout-path")}); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
