package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/coro-sh/catalog/constants"
)

const (
	healthRetryInterval = time.Second
	healthMaxRetries    = 5
	busyTimeoutMillis   = 5000
)

type OpenOption func(opts *openOpts)

// WithDir sets the directory for the SQLite database file for opening a
// database connection.
func WithDir(dir string) OpenOption {
	return func(opts *openOpts) {
		opts.dir = dir
	}
}

// WithInMemory enables an in-memory SQLite database. Every call to Open
// with this option creates a separate database.
func WithInMemory() OpenOption {
	return func(opts *openOpts) {
		opts.inMemory = true
	}
}

type openOpts struct {
	dir      string
	inMemory bool
}

func Open(ctx context.Context, opts ...OpenOption) (*sql.DB, error) {
	var o openOpts
	for _, opt := range opts {
		opt(&o)
	}

	pragmas := fmt.Sprintf("_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", busyTimeoutMillis)

	var dsn string
	if o.inMemory {
		dsn = fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&%s", constants.AppName, uuid.NewString(), pragmas)
	} else {
		file := constants.AppName + ".db"
		if o.dir != "" {
			if err := os.MkdirAll(o.dir, 0755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
			file = filepath.Join(o.dir, file)
		}
		dsn = "file:" + file + "?_pragma=journal_mode(WAL)&" + pragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Set max connections to 1 since sqlite only supports a single writer at a time
	db.SetMaxOpenConns(1)

	if err = waitHealthy(ctx, db); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	return db, nil
}

func waitHealthy(ctx context.Context, db *sql.DB) error {
	pingFn := func() error {
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return db.PingContext(pctx)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(healthRetryInterval), healthMaxRetries), ctx)
	if err := backoff.Retry(pingFn, bo); err != nil {
		return fmt.Errorf("sqlite connection unhealthy: %w", err)
	}
	return nil
}
