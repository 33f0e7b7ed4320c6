package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/proxy-console/internal/app"
	"github.com/florianilch/proxy-console/internal/session"
	"github.com/florianilch/proxy-console/internal/tokensource"
)

// passwordEnv supplies the login password non-interactively.
const passwordEnv = "PROXYCONSOLE_PASSWORD"

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "authenticate and store the session credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "account name",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			return runWithApp(ctx, cmd, func(ctx context.Context, a *app.App, _ *app.Config) error {
				if err := a.Session().Login(ctx, cmd.String("username"), password); err != nil {
					if errors.Is(err, tokensource.ErrInvalidCredentials) {
						return errors.New("invalid username or password")
					}
					return err
				}
				_, err := fmt.Fprintln(stdout(cmd), "logged in as", cmd.String("username"))
				return err
			})
		},
	}
}

// readPassword prompts on a terminal, otherwise reads the environment or one line of stdin.
func readPassword(cmd *cli.Command) (string, error) {
	if p, ok := os.LookupEnv(passwordEnv); ok {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		_, _ = fmt.Fprint(stderr(cmd), "Password: ")
		raw, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(stderr(cmd))
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "revoke the session and clear stored credentials",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runWithApp(ctx, cmd, func(ctx context.Context, a *app.App, _ *app.Config) error {
				if err := a.Session().Logout(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(stdout(cmd), "logged out")
				return err
			})
		},
	}
}

type statusOutput struct {
	State     string `json:"state"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show the session state",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runWithApp(ctx, cmd, func(ctx context.Context, a *app.App, _ *app.Config) error {
				state, err := a.Session().State(ctx)
				if err != nil {
					return err
				}

				out := statusOutput{State: state.String()}
				if state == session.StateAuthenticated {
					// Opaque tokens carry no displayable claims.
					if claims, err := a.Session().Inspect(ctx); err == nil {
						out.Username = claims.Username
						out.Role = claims.Role
						if !claims.ExpiresAt.IsZero() {
							out.ExpiresAt = claims.ExpiresAt.Format(time.RFC3339)
						}
					}
				}
				return printJSON(cmd, out)
			})
		},
	}
}
