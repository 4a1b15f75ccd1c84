package main

import (
	"fmt"
	"os"

	"github.com/joshjon/kit/pgctl"

	"github.com/coro-sh/catalog/postgres"
	"github.com/coro-sh/catalog/postgres/migrations"
)

// pgtool manages the catalog postgres database and its migrations.
func main() {
	dbName := os.Getenv("POSTGRES_DATABASE")
	if dbName == "" {
		dbName = postgres.AppDBName
	}

	r, err := pgctl.NewRunner(pgctl.RunnerConfig{
		DBName:     dbName,
		Migrations: migrations.FS,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err = r.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
