package redis

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/omnikv"
	pr "github.com/unkn0wn-root/omnikv/provider"
)

func init() {
	omnikv.RegisterBackend(omnikv.BackendRedis, func(_ context.Context, cfg omnikv.Config) (pr.Provider, error) {
		if cfg.DSN == "" {
			return nil, errors.New("redis URL is required")
		}
		return Open(cfg.DSN, cfg.TableOrDefault())
	})
}
