// Package db selects the concrete storage driver from configuration.
package db

import (
	"github.com/pkg/errors"

	"github.com/prodassist/prodassist/store"
	"github.com/prodassist/prodassist/store/db/mysql"
	"github.com/prodassist/prodassist/store/db/postgres"
	"github.com/prodassist/prodassist/store/db/sqlite"
)

// NewDriver opens the storage driver named by driver. An empty DSN with the
// sqlite driver is resolved by the caller (profile) before reaching here.
func NewDriver(driver, dsn string) (store.Driver, error) {
	switch driver {
	case "sqlite":
		return sqlite.NewDB(dsn)
	case "mysql":
		return mysql.NewDB(dsn)
	case "postgres":
		return postgres.NewDB(dsn)
	default:
		return nil, errors.Errorf("unknown db driver %q", driver)
	}
}
