package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/authhelper/internal/app"
)

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Aliases:  []string{"u"},
			Usage:    "account name",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "password-stdin",
			Usage: "read the password from the first line of stdin",
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in and store the session credentials",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, shutdown, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer shutdown()

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			info, err := application.Session().Login(ctx, cmd.String("username"), password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.Root().Writer, "logged in as %s %s\n", info.Username, formatRoles(info.Roles))
			return nil
		},
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account",
		Flags: append(credentialFlags(), &cli.StringFlag{
			Name:  "role",
			Usage: "requested role (server default if empty)",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, shutdown, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer shutdown()

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			username := cmd.String("username")
			if err := application.Session().Register(ctx, username, password, cmd.String("role")); err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.Root().Writer, "registered %s\n", username)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "remove the stored session credentials",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, shutdown, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer shutdown()

			err = application.Session().Logout(ctx)
			reportNavigation(cmd, application)
			if err != nil {
				return fmt.Errorf("logout incomplete: %w", err)
			}
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the stored login state",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, shutdown, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer shutdown()

			sess := application.Session()
			if !sess.IsLoggedIn(ctx) {
				_, _ = fmt.Fprintln(cmd.Root().Writer, "not logged in")
				return nil
			}

			info, err := sess.UserInfo(ctx)
			if err != nil {
				return err
			}

			name := info.Username
			if name == "" {
				name = "(unknown user)"
			}
			admin := ""
			if info.IsAdmin() {
				admin = " admin"
			}
			_, _ = fmt.Fprintf(cmd.Root().Writer, "logged in as %s %s%s\n", name, formatRoles(info.Roles), admin)
			return nil
		},
	}
}

// reportNavigation tells the user where the page would have navigated to.
func reportNavigation(cmd *cli.Command, application *app.App) {
	if target, ok := application.TakeNavigation(); ok {
		_, _ = fmt.Fprintf(cmd.Root().ErrWriter, "session ended, continue at %s\n", target)
	}
}

func formatRoles(roles []string) string {
	return "[" + strings.Join(roles, ", ") + "]"
}

// readPassword prompts on a terminal or reads one line from stdin with --password-stdin.
func readPassword(cmd *cli.Command) (string, error) {
	if cmd.Bool("password-stdin") {
		return readPasswordLine(os.Stdin)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal, use --password-stdin")
	}

	_, _ = fmt.Fprint(cmd.Root().ErrWriter, "Password: ")
	password, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.Root().ErrWriter)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}
