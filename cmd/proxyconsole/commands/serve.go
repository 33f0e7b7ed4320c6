package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/proxy-console/internal/app"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the local gateway to the backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port",
				Value: int(app.DefaultConfigServerPort),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runWithApp(ctx, cmd, func(ctx context.Context, a *app.App, _ *app.Config) error {
				slog.InfoContext(ctx, "starting")

				if err := a.Start(ctx); err != nil {
					return fmt.Errorf("app failed to start: %w", err)
				}

				slog.InfoContext(ctx, "stopped gracefully")
				return nil
			})
		},
	}
}
