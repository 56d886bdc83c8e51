// Package sqlite provides an omnikv row provider on SQLite via the pure-Go
// modernc.org/sqlite driver. Importing it registers omnikv.BackendSQLite.
package sqlite

import (
	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/omnikv/provider/sqlstore"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Open opens the database at dsn (a file path or file: URI). SQLite allows
// one writer at a time, so the pool is limited to a single connection; this
// also keeps an in-memory database alive and shared for the store's lifetime.
func Open(dsn, table string) (*sqlstore.Store, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	s, err := sqlstore.Open(DriverName, dsn, sqlstore.SQLite, table)
	if err != nil {
		return nil, err
	}
	s.DB().SetMaxOpenConns(1)
	return s, nil
}
