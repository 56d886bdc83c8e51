package postgres

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/omnikv"
	pr "github.com/unkn0wn-root/omnikv/provider"
)

func init() {
	omnikv.RegisterBackend(omnikv.BackendPostgres, func(_ context.Context, cfg omnikv.Config) (pr.Provider, error) {
		if cfg.DSN == "" {
			return nil, errors.New("postgres DSN is required")
		}
		return Open(cfg.DSN, cfg.TableOrDefault())
	})
}
