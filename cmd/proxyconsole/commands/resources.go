package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/proxy-console/internal/app"
	"github.com/florianilch/proxy-console/internal/console"
)

// withConsole runs fn against the console client and turns a terminal 401
// into a hint to log in again.
func withConsole(fn func(context.Context, *cli.Command, *console.Client, *app.Config) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return runWithApp(ctx, cmd, func(ctx context.Context, a *app.App, cfg *app.Config) error {
			err := fn(ctx, cmd, a.Console(), cfg)
			if errors.Is(err, console.ErrUnauthorized) {
				return fmt.Errorf("%w: run `proxyconsole login` to start a new session", err)
			}
			return err
		})
	}
}

func idArg(cmd *cli.Command) (int64, error) {
	raw := cmd.Args().First()
	if raw == "" {
		return 0, errors.New("missing user id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage user accounts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list users",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Value: 10},
					&cli.StringFlag{Name: "search", Usage: "filter by username or email"},
				},
				Action: withConsole(func(ctx context.Context, cmd *cli.Command, c *console.Client, _ *app.Config) error {
					page, err := c.ListUsers(ctx, console.UserQuery{
						Page:   cmd.Int("page"),
						Limit:  cmd.Int("limit"),
						Search: cmd.String("search"),
					})
					if err != nil {
						return err
					}
					return printJSON(cmd, page)
				}),
			},
			{
				Name:      "get",
				Usage:     "show one user",
				ArgsUsage: "<id>",
				Action: withConsole(func(ctx context.Context, cmd *cli.Command, c *console.Client, _ *app.Config) error {
					id, err := idArg(cmd)
					if err != nil {
						return err
					}
					user, err := c.GetUser(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(cmd, user)
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete a user",
				ArgsUsage: "<id>",
				Action: withConsole(func(ctx context.Context, cmd *cli.Command, c *console.Client, _ *app.Config) error {
					id, err := idArg(cmd)
					if err != nil {
						return err
					}
					if err := c.DeleteUser(ctx, id); err != nil {
						return err
					}
					_, err = fmt.Fprintf(stdout(cmd), "deleted user %d\n", id)
					return err
				}),
			},
		},
	}
}

func logsCommand() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "inspect recorded proxy requests",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list request logs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Value: console.DefaultLogLimit},
					&cli.IntFlag{Name: "user-id"},
					&cli.StringFlag{Name: "method"},
					&cli.StringFlag{Name: "host"},
					&cli.StringFlag{Name: "from", Usage: "start date (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "to", Usage: "end date (YYYY-MM-DD)"},
				},
				Action: withConsole(func(ctx context.Context, cmd *cli.Command, c *console.Client, _ *app.Config) error {
					page, err := c.ListLogs(ctx, console.LogQuery{
						Page:     cmd.Int("page"),
						Limit:    cmd.Int("limit"),
						UserID:   int64(cmd.Int("user-id")),
						Method:   cmd.String("method"),
						Host:     cmd.String("host"),
						FromDate: cmd.String("from"),
						ToDate:   cmd.String("to"),
					})
					if err != nil {
						return err
					}
					return printJSON(cmd, page)
				}),
			},
			{
				Name:  "stats",
				Usage: "aggregate request statistics",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "start date (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "to", Usage: "end date (YYYY-MM-DD)"},
				},
				Action: withConsole(func(ctx context.Context, cmd *cli.Command, c *console.Client, _ *app.Config) error {
					stats, err := c.LogStats(ctx, cmd.String("from"), cmd.String("to"))
					if err != nil {
						return err
					}
					return printJSON(cmd, stats)
				}),
			},
			{
				Name:  "purge",
				Usage: "delete logs older than a number of days",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Value: console.DefaultPurgeDays},
				},
				Action: withConsole(func(ctx context.Context, cmd *cli.Command, c *console.Client, _ *app.Config) error {
					result, err := c.PurgeLogs(ctx, cmd.Int("days"))
					if err != nil {
						return err
					}
					return printJSON(cmd, result)
				}),
			},
		},
	}
}

func watchFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "watch",
		Aliases: []string{"w"},
		Usage:   "refresh every poll interval until interrupted",
	}
}

// render runs fetch once, or repeatedly with --watch.
func render(ctx context.Context, cmd *cli.Command, cfg *app.Config, fetch func(context.Context) (any, error)) error {
	once := func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, v)
	}

	if !cmd.Bool("watch") {
		return once(ctx)
	}

	err := console.Poll(ctx, cfg.Poll.Interval, once)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "show dashboard statistics, health and request stats",
		Flags: []cli.Flag{watchFlag()},
		Action: withConsole(func(ctx context.Context, cmd *cli.Command, c *console.Client, cfg *app.Config) error {
			return render(ctx, cmd, cfg, func(ctx context.Context) (any, error) {
				return c.DashboardSnapshot(ctx)
			})
		}),
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "show backend health",
		Flags: []cli.Flag{watchFlag()},
		Action: withConsole(func(ctx context.Context, cmd *cli.Command, c *console.Client, cfg *app.Config) error {
			return render(ctx, cmd, cfg, func(ctx context.Context) (any, error) {
				return c.Health(ctx)
			})
		}),
	}
}
