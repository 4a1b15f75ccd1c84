package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cohesivestack/valgo"
	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/valgoutil"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/coro-sh/catalog/app"
	"github.com/coro-sh/catalog/catalogapi"
)

const (
	clientMaxReconnectAttempts = 10
	clientReconnectDelay       = 500 * time.Millisecond
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	logger := log.NewLogger(log.WithDevelopment())

	if err := run(ctx, os.Args, logger); err != nil {
		logger.Error("dev server failed", "error", err)
		os.Exit(1)
	}
}

type config struct {
	port         int
	sqliteDir    string
	natsHostPort string
	seedCount    int
}

func (c config) validate() *valgo.Validation {
	return valgo.Is(
		valgo.Int(c.port, "port").Not().Zero(),
		valgoutil.HostPortValidator(c.natsHostPort, "nats-hostport"),
		valgo.Int(c.seedCount, "seed").GreaterOrEqualTo(0),
	)
}

func loadConfig(c *cli.Context) config {
	cfg := config{
		port:         c.Int("port"),
		sqliteDir:    c.String("sqlite-dir"),
		natsHostPort: c.String("nats-hostport"),
		seedCount:    c.Int("seed"),
	}
	if err := cfg.validate().ToError(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cli.ShowAppHelpAndExit(c, 1)
	}
	return cfg
}

func run(ctx context.Context, args []string, logger log.Logger) error {
	cliApp := cli.NewApp()
	cliApp.Name = "catalog-dev-server"
	cliApp.Usage = "Catalog server with sqlite storage, an embedded event bus and seeded namespaces."

	cliApp.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   8181,
			Usage:   "port to run the server on",
			EnvVars: []string{"PORT"},
		},
		&cli.StringFlag{
			Name:    "sqlite-dir",
			Value:   "",
			Usage:   "directory of the sqlite database file (in-memory if empty)",
			EnvVars: []string{"SQLITE_DIR"},
		},
		&cli.StringFlag{
			Name:    "nats-hostport",
			Value:   "127.0.0.1:4222",
			Usage:   "hostport the embedded event bus listens on",
			EnvVars: []string{"NATS_HOST_PORT"},
		},
		&cli.IntFlag{
			Name:    "seed",
			Value:   3,
			Usage:   "number of random top level namespaces to seed",
			EnvVars: []string{"SEED"},
		},
	}

	cliApp.Commands = []*cli.Command{
		{
			Name:  "run",
			Usage: "[default] runs the development server",
			Action: func(c *cli.Context) error {
				return cmdRun(ctx, logger, loadConfig(c))
			},
		},
	}

	cliApp.DefaultCommand = "run"

	return cliApp.RunContext(ctx, args)
}

func cmdRun(ctx context.Context, logger log.Logger, cfg config) error {
	appCfg := app.Config{
		Port: cfg.port,
		Logger: app.LoggerConfig{
			Level:      "debug",
			Structured: false,
		},
		Storage: app.StorageConfig{
			Driver: app.StorageDriverSQLite,
			SQLite: app.SQLiteConfig{Dir: cfg.sqliteDir},
		},
		Events: &app.EventsConfig{
			Embedded: &app.EmbeddedNATSConfig{HostPort: cfg.natsHostPort},
		},
	}
	if err := appCfg.Validation().ToError(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Run(ctx, logger, appCfg)
	})

	g.Go(func() error {
		baseURL := fmt.Sprintf("http://127.0.0.1:%d%s", cfg.port, catalogapi.APIVersionPrefix)

		logger.Info("waiting for api to be healthy")
		if err := waitHealthy(ctx, baseURL+"/namespaces"); err != nil {
			return err
		}

		stopTail, err := tailEvents(logger, "nats://"+cfg.natsHostPort)
		if err != nil {
			return err
		}
		defer stopTail()

		if err = seedNamespaces(ctx, logger, baseURL, cfg.seedCount); err != nil {
			return fmt.Errorf("seed namespaces: %w", err)
		}

		logger.Info("dev server ready")
		logger.Info("api: " + baseURL)
		logger.Info("events: nats://" + cfg.natsHostPort)

		<-ctx.Done()
		return nil
	})

	return g.Wait()
}

func waitHealthy(ctx context.Context, url string) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(clientReconnectDelay), clientMaxReconnectAttempts),
		ctx,
	)
	return backoff.Retry(func() error {
		res, err := http.Get(url) //nolint:noctx
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("unhealthy status: %d", res.StatusCode)
		}
		return nil
	}, b)
}
