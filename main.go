package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/cohesivestack/valgo"
	"github.com/joshjon/kit/config"
	"github.com/joshjon/kit/log"
	"github.com/urfave/cli/v2"

	"github.com/coro-sh/catalog/app"
	"github.com/coro-sh/catalog/constants"
	"github.com/coro-sh/catalog/logkey"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	cliApp := cli.NewApp()
	cliApp.Name = constants.AppName
	cliApp.Usage = "Namespace catalog server"

	cliApp.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "",
			Usage:   "path to yaml config file (required if not using env vars)",
		},
		&cli.StringFlag{
			Name:  "storage",
			Value: "",
			Usage: fmt.Sprintf("overrides the storage driver (%s)", strings.Join([]string{
				app.StorageDriverMemory, app.StorageDriverSQLite, app.StorageDriverPostgres,
			}, ", ")),
		},
	}

	logger := log.NewLogger()

	cliApp.Commands = []*cli.Command{
		{
			Name:  "run",
			Usage: "[default] runs the catalog server",
			Action: func(c *cli.Context) error {
				var cfg app.Config
				config.Load(c.String("config"), &cfg)
				if storage := c.String("storage"); storage != "" {
					cfg.Storage.Driver = storage
					exitOnInvalidConfig(c, cfg.Validation())
				}
				logger = loggerFromConfig(cfg.Logger).With(logkey.Service, constants.AppName)
				return app.Run(ctx, logger, cfg)
			},
		},
	}

	cliApp.DefaultCommand = "run"

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Error("failed to start service", "error", err)
		os.Exit(1)
	}
}

func exitOnInvalidConfig(c *cli.Context, v *valgo.Validation) {
	if v.ToError() == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Config errors:")

	for _, verr := range v.ToError().(*valgo.Error).Errors() {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", verr.Name(), strings.Join(verr.Messages(), ","))
	}

	fmt.Fprintln(os.Stdout) //nolint:errcheck
	cli.ShowAppHelpAndExit(c, 1)
}

func loggerFromConfig(cfg app.LoggerConfig) log.Logger {
	level, ok := log.ParseLevel(cfg.Level)
	if !ok {
		level = slog.LevelInfo
	}
	opts := []log.LoggerOption{log.WithLevel(level)}
	if !cfg.Structured {
		opts = append(opts, log.WithDevelopment())
	}
	return log.NewLogger(opts...)
}
