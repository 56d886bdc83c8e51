package badger

import (
	"context"

	"github.com/unkn0wn-root/omnikv"
	pr "github.com/unkn0wn-root/omnikv/provider"
)

func init() {
	omnikv.RegisterBackend(omnikv.BackendBadger, func(_ context.Context, cfg omnikv.Config) (pr.Provider, error) {
		return Open(cfg.DSN, cfg.TableOrDefault())
	})
}
