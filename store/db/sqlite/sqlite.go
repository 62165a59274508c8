// Package sqlite is the default, file-backed conversation driver.
package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"

	// the pure-Go sqlite driver registers itself as "sqlite"
	_ "modernc.org/sqlite"
)

type DB struct {
	db *sql.DB
}

func NewDB(dsn string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	return &DB{db: sqldb}, nil
}

func (d *DB) GetDB() *sql.DB { return d.db }
func (d *DB) Close() error   { return d.db.Close() }
