package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coro-sh/catalog/constants"
)

const (
	AppDBName = constants.AppName

	healthRetryInterval = time.Second
	healthMaxRetries    = 5
)

// DBTX is implemented by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB interface {
	DBTX
	PGXTxer
}

type DialOption func(opts *dialOpts)

// WithSSLMode sets the sslmode connection parameter (default: disable).
func WithSSLMode(mode string) DialOption {
	return func(opts *dialOpts) {
		opts.sslMode = mode
	}
}

// WithMaxConns sets the maximum size of the connection pool.
func WithMaxConns(n int32) DialOption {
	return func(opts *dialOpts) {
		opts.maxConns = n
	}
}

type dialOpts struct {
	sslMode  string
	maxConns int32
}

// Dial creates a connection pool and waits until the database is reachable.
func Dial(ctx context.Context, user string, password string, hostPort string, database string, opts ...DialOption) (*pgxpool.Pool, error) {
	o := dialOpts{sslMode: "disable"}
	for _, opt := range opts {
		opt(&o)
	}

	connURL := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     hostPort,
		Path:     database,
		RawQuery: url.Values{"sslmode": []string{o.sslMode}}.Encode(),
	}

	cfg, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err = waitHealthy(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func waitHealthy(ctx context.Context, pool *pgxpool.Pool) error {
	pingFn := func() error {
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return pool.Ping(pctx)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(healthRetryInterval), healthMaxRetries), ctx)
	if err := backoff.Retry(pingFn, bo); err != nil {
		return fmt.Errorf("postgres connection unhealthy: %w", err)
	}
	return nil
}
