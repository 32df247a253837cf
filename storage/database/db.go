// Package database holds the plumbing shared by the two Postgres stores.
package database

import (
	"io/fs"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/d2718/camp-demo/core"
)

// Open connects to one of the stores. The connection is not checked; call
// Ping before use.
func Open(conf core.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", conf.URL())
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %q", conf.Name)
	}
	return db, nil
}

// Ping waits for the database to be ready. Waits 100ms longer between each
// attempt.
func Ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// Migrate brings a store's schema up to date from its embedded migration
// files.
func Migrate(db *sqlx.DB, migrations fs.FS) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
