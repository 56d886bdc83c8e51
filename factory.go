package omnikv

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/unkn0wn-root/omnikv/codec"
	gen "github.com/unkn0wn-root/omnikv/genstore"
	"github.com/unkn0wn-root/omnikv/memo"
	pr "github.com/unkn0wn-root/omnikv/provider"
)

// Backend names a storage backend.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendMySQL    Backend = "mysql"
	BackendPostgres Backend = "postgres"
	BackendBolt     Backend = "bolt"
	BackendBadger   Backend = "badger"
	BackendRedis    Backend = "redis"
	// BackendCustom labels stores built with New around a caller's provider.
	BackendCustom Backend = "custom"
)

// Config describes a store declaratively. Only Backend is required;
// persistent backends also need DSN unless their package documents a default.
type Config struct {
	Backend Backend

	// DSN locates the data: a SQL DSN, a file path (sqlite, bolt, badger) or a
	// redis URL. Badger treats "" as in-memory.
	DSN   string
	Table string // "" => provider.DefaultTable

	Encoding codec.Encoding
	Registry *codec.Registry

	Cache    bool
	CacheTTL time.Duration
	Memo     memo.Cache
	GenStore gen.GenStore

	Logger Logger
	Hooks  Hooks
}

// TableOrDefault returns Table, or provider.DefaultTable when unset.
func (c Config) TableOrDefault() string { return coalesce(c.Table, pr.DefaultTable) }

// ProviderFactory builds an unconfigured provider from cfg.
type ProviderFactory func(ctx context.Context, cfg Config) (pr.Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[Backend]ProviderFactory)
)

// RegisterBackend registers a provider factory for a backend. Provider packages
// call it from init, so importing a provider package makes its backend
// available to Open. A later registration replaces an earlier one.
func RegisterBackend(b Backend, f ProviderFactory) {
	factoriesMu.Lock()
	factories[b] = f
	factoriesMu.Unlock()
}

// Backends lists the registered backends plus memory, sorted.
func Backends() []Backend {
	factoriesMu.RLock()
	out := make([]Backend, 0, len(factories)+1)
	out = append(out, BackendMemory)
	for b := range factories {
		if b != BackendMemory {
			out = append(out, b)
		}
	}
	factoriesMu.RUnlock()
	slices.Sort(out)
	return out
}

// Open builds the store cfg describes and configures it.
func Open(ctx context.Context, cfg Config) (Store, error) {
	opts := Options{
		Backend:  coalesce(cfg.Backend, BackendMemory),
		Registry: cfg.Registry,
		Encoding: cfg.Encoding,
		Logger:   cfg.Logger,
		Hooks:    cfg.Hooks,
		Cache:    cfg.Cache,
		CacheTTL: cfg.CacheTTL,
		Memo:     cfg.Memo,
		GenStore: cfg.GenStore,
	}

	if opts.Backend != BackendMemory {
		factoriesMu.RLock()
		f, ok := factories[opts.Backend]
		factoriesMu.RUnlock()
		if !ok {
			return nil, &ConfigError{
				Backend: opts.Backend,
				Err:     fmt.Errorf("backend not registered (supported: %v); import its provider package", Backends()),
			}
		}
		p, err := f(ctx, cfg)
		if err != nil {
			return nil, &ConfigError{Backend: opts.Backend, Table: cfg.TableOrDefault(), Err: err}
		}
		opts.Provider = p
	}

	s, err := New(opts)
	if err != nil {
		if opts.Provider != nil {
			_ = opts.Provider.Close(ctx)
		}
		return nil, err
	}
	if err := s.Configure(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}
