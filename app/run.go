package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/server"

	"github.com/coro-sh/catalog/catalogapi"
	"github.com/coro-sh/catalog/logkey"
	"github.com/coro-sh/catalog/namespace"
	"github.com/coro-sh/catalog/notif"
	"github.com/coro-sh/catalog/postgres"
	pgmigrations "github.com/coro-sh/catalog/postgres/migrations"
	"github.com/coro-sh/catalog/sqlite"
	sqlitemigrations "github.com/coro-sh/catalog/sqlite/migrations"
)

// Run starts the catalog server and blocks until ctx is cancelled or the
// server fails.
func Run(ctx context.Context, logger log.Logger, cfg Config) error {
	repo, closeRepo, err := OpenRepository(ctx, logger, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeRepo()

	broadcaster := notif.NewBroadcaster(notif.WithBroadcasterLogger(logger))
	notifiers := []namespace.Notifier{broadcaster}

	if cfg.Events != nil {
		pub, closeEvents, err := StartEventPublisher(logger, *cfg.Events)
		if err != nil {
			return err
		}
		defer closeEvents()
		notifiers = append(notifiers, pub)
	}

	svc := namespace.NewService(repo,
		namespace.WithLogger(logger),
		namespace.WithNotifier(notif.Fanout(notifiers...)),
	)

	srvOpts := []server.Option{server.WithLogger(logger)}
	if len(cfg.CorsOrigins) > 0 {
		srvOpts = append(srvOpts, server.WithCORS(cfg.CorsOrigins...))
	}
	if cfg.TLS != nil {
		srvOpts = append(srvOpts, server.WithTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CACertFile))
	}
	srv, err := server.NewServer(cfg.Port, srvOpts...)
	if err != nil {
		return err
	}

	srv.Register("", catalogapi.NewHTTPHandler(svc))
	srv.Register("", catalogapi.NewEventsWebSocketHandler(broadcaster,
		catalogapi.WithEventsWebSocketHandlerLogger(logger),
		catalogapi.WithEventsWebSocketHandlerCORS(cfg.CorsOrigins...),
	))

	return Serve(ctx, srv, logger)
}

// OpenRepository opens the namespace repository selected by cfg.Driver. The
// returned func releases the underlying connections.
func OpenRepository(ctx context.Context, logger log.Logger, cfg StorageConfig) (namespace.Repository, func(), error) {
	logger = logger.With(logkey.StorageDriver, cfg.Driver)

	switch cfg.Driver {
	case StorageDriverMemory, "":
		logger.Info("using in-memory namespace storage")
		return namespace.NewMemoryRepository(), func() {}, nil

	case StorageDriverSQLite:
		opts := []sqlite.OpenOption{sqlite.WithInMemory()}
		if cfg.SQLite.Dir != "" {
			opts = []sqlite.OpenOption{sqlite.WithDir(cfg.SQLite.Dir)}
		}
		db, err := sqlite.Open(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err = sqlitemigrations.MigrateDatabase(db); err != nil {
			db.Close() //nolint:errcheck
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Info("using sqlite namespace storage", "dir", cfg.SQLite.Dir)
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close sqlite", "error", err)
			}
		}
		return sqlite.NewNamespaceRepository(db), closeDB, nil

	case StorageDriverPostgres:
		if cfg.Postgres == nil {
			return nil, nil, errors.New("postgres config required")
		}
		pgCfg := cfg.Postgres
		dialOpts := []postgres.DialOption{}
		if pgCfg.SSLMode != "" {
			dialOpts = append(dialOpts, postgres.WithSSLMode(pgCfg.SSLMode))
		}
		if pgCfg.MaxConns > 0 {
			dialOpts = append(dialOpts, postgres.WithMaxConns(pgCfg.MaxConns))
		}
		pool, err := postgres.Dial(ctx, pgCfg.User, pgCfg.Password, pgCfg.HostPort, pgCfg.database(), dialOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("dial postgres: %w", err)
		}
		if err = pgmigrations.MigrateDatabase(pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("using postgres namespace storage", "host_port", pgCfg.HostPort, "database", pgCfg.database())
		return postgres.NewNamespaceRepository(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
