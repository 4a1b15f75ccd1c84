package migrations

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var FS embed.FS

type options struct {
	version *uint
}

type Option func(opts *options)

func WithVersion(version uint) Option {
	return func(opts *options) {
		opts.version = &version
	}
}

// MigrateDatabase applies the embedded migrations to db. The database handle
// is left open since closing the migrate instance would close db.
func MigrateDatabase(db *sql.DB, opts ...Option) error {
	var mopts options
	for _, opt := range opts {
		opt(&mopts)
	}

	sd, err := iofs.New(FS, ".")
	if err != nil {
		return err
	}
	defer sd.Close()

	driver, err := sqlite.WithInstance(db, new(sqlite.Config))
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", sd, "sqlite", driver)
	if err != nil {
		return err
	}

	if mopts.version != nil {
		err = m.Migrate(*mopts.version)
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
