// Package mysql provides an omnikv row provider on MySQL or MariaDB via
// go-sql-driver/mysql. Importing it registers omnikv.BackendMySQL.
package mysql

import (
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/unkn0wn-root/omnikv/provider/sqlstore"
)

// Open parses dsn ("user:pass@tcp(host:3306)/db") and opens a pooled store.
// The connection charset is forced to utf8mb4 so keys count characters the
// way the store validates them.
func Open(dsn, table string) (*sqlstore.Store, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["charset"] = "utf8mb4"
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	s, err := sqlstore.Open("mysql", cfg.FormatDSN(), sqlstore.MySQL, table)
	if err != nil {
		return nil, err
	}
	s.DB().SetConnMaxLifetime(3 * time.Minute)
	return s, nil
}
