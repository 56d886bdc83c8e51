// Package config loads an omnikv.Config from the environment.
//
// Variables (all optional):
//
//	OMNIKV_BACKEND         memory | sqlite | mysql | postgres | bolt | badger | redis
//	OMNIKV_DSN             backend DSN, file path or redis URL
//	OMNIKV_TABLE           table, bucket, prefix or hash name (default kv_global)
//	OMNIKV_CACHE           memoize every read (default false)
//	OMNIKV_CACHE_TTL       memo TTL (default 30s)
//	OMNIKV_ENCODING_STORE  armor for row backends (default base64)
//	OMNIKV_ENCODING_PARSE  charset for row backends (default utf-8)
//	OMNIKV_MEMO            local | ristretto | bigcache | redis (default local)
//	OMNIKV_MEMO_SIZE       memo budget for ristretto/bigcache, e.g. 64MiB
//	OMNIKV_MEMO_CODEC      json | cbor | msgpack | protobuf (default json)
//	OMNIKV_MEMO_REDIS_URL  redis URL for OMNIKV_MEMO=redis
//	OMNIKV_MEMO_MAX_ITEM   refuse to decode larger memo snapshots, e.g. 1MiB
//
// .env files listed in Options.EnvFiles are loaded first; variables already
// set in the environment win.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	units "github.com/docker/go-units"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/unkn0wn-root/omnikv"
	"github.com/unkn0wn-root/omnikv/codec"
	gen "github.com/unkn0wn-root/omnikv/genstore"
	"github.com/unkn0wn-root/omnikv/memo"
	bcmemo "github.com/unkn0wn-root/omnikv/memo/bigcache"
	redismemo "github.com/unkn0wn-root/omnikv/memo/redis"
	rmemo "github.com/unkn0wn-root/omnikv/memo/ristretto"
)

// Memo cache kinds.
const (
	MemoLocal     = "local"
	MemoRistretto = "ristretto"
	MemoBigcache  = "bigcache"
	MemoRedis     = "redis"
)

type Settings struct {
	Backend       string        `mapstructure:"OMNIKV_BACKEND"`
	DSN           string        `mapstructure:"OMNIKV_DSN"`
	Table         string        `mapstructure:"OMNIKV_TABLE"`
	Cache         bool          `mapstructure:"OMNIKV_CACHE"`
	CacheTTL      time.Duration `mapstructure:"OMNIKV_CACHE_TTL"`
	EncodingStore string        `mapstructure:"OMNIKV_ENCODING_STORE"`
	EncodingParse string        `mapstructure:"OMNIKV_ENCODING_PARSE"`
	Memo          string        `mapstructure:"OMNIKV_MEMO"`
	MemoSize      string        `mapstructure:"OMNIKV_MEMO_SIZE"`
	MemoCodec     string        `mapstructure:"OMNIKV_MEMO_CODEC"`
	MemoRedisURL  string        `mapstructure:"OMNIKV_MEMO_REDIS_URL"`
	MemoMaxItem   string        `mapstructure:"OMNIKV_MEMO_MAX_ITEM"`
}

// Options tune Load.
type Options struct {
	// EnvFiles are loaded with gotenv when they exist. Missing files are skipped.
	EnvFiles []string
	// File is an optional config file (any format viper reads) using the same
	// keys as the environment, e.g. `omnikv_backend: sqlite` in YAML.
	File string
}

var defaults = map[string]any{
	"OMNIKV_BACKEND":        string(omnikv.BackendMemory),
	"OMNIKV_DSN":            "",
	"OMNIKV_TABLE":          "",
	"OMNIKV_CACHE":          false,
	"OMNIKV_CACHE_TTL":      "30s",
	"OMNIKV_ENCODING_STORE": codec.StoreBase64,
	"OMNIKV_ENCODING_PARSE": codec.ParseUTF8,
	"OMNIKV_MEMO":           MemoLocal,
	"OMNIKV_MEMO_SIZE":      "64MiB",
	"OMNIKV_MEMO_CODEC":     "json",
	"OMNIKV_MEMO_REDIS_URL": "",
	"OMNIKV_MEMO_MAX_ITEM":  "",
}

// Load reads Settings from env files, an optional config file and the
// environment, in increasing precedence.
func Load(opts Options) (*Settings, error) {
	for _, path := range opts.EnvFiles {
		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	s.Backend = strings.ToLower(s.Backend)
	s.Memo = strings.ToLower(s.Memo)
	s.MemoCodec = strings.ToLower(s.MemoCodec)
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

func (s *Settings) validate() error {
	if s.CacheTTL < 0 {
		return errors.New("OMNIKV_CACHE_TTL must not be negative")
	}
	switch s.Memo {
	case MemoLocal, MemoRistretto, MemoBigcache:
	case MemoRedis:
		if s.MemoRedisURL == "" {
			return errors.New("OMNIKV_MEMO_REDIS_URL is required when OMNIKV_MEMO is 'redis'")
		}
	default:
		return fmt.Errorf("unknown OMNIKV_MEMO %q", s.Memo)
	}
	if _, err := s.memoCodec(); err != nil {
		return err
	}
	if _, err := s.memoBytes(); err != nil {
		return err
	}
	return nil
}

func (s *Settings) memoBytes() (int64, error) {
	n, err := units.RAMInBytes(s.MemoSize)
	if err != nil {
		return 0, fmt.Errorf("OMNIKV_MEMO_SIZE: %w", err)
	}
	if n <= 0 {
		return 0, errors.New("OMNIKV_MEMO_SIZE must be positive")
	}
	return n, nil
}

func (s *Settings) memoCodec() (codec.Codec[any], error) {
	var c codec.Codec[any]
	switch s.MemoCodec {
	case "", "json":
		c = codec.JSON[any]{}
	case "cbor":
		cb, err := codec.NewCBOR[any](true)
		if err != nil {
			return nil, err
		}
		c = cb
	case "msgpack":
		c = codec.Msgpack[any]{}
	case "protobuf":
		c = codec.Protobuf{}
	default:
		return nil, fmt.Errorf("unknown OMNIKV_MEMO_CODEC %q", s.MemoCodec)
	}
	if s.MemoMaxItem == "" {
		return c, nil
	}
	n, err := units.RAMInBytes(s.MemoMaxItem)
	if err != nil {
		return nil, fmt.Errorf("OMNIKV_MEMO_MAX_ITEM: %w", err)
	}
	return codec.Limited[any]{Inner: c, Max: int(n)}, nil
}

// StoreConfig turns Settings into an omnikv.Config. The memo cache it builds
// is owned by the store and closed with it.
func (s *Settings) StoreConfig(ctx context.Context) (omnikv.Config, error) {
	cfg := omnikv.Config{
		Backend:  omnikv.Backend(s.Backend),
		DSN:      s.DSN,
		Table:    s.Table,
		Cache:    s.Cache,
		CacheTTL: s.CacheTTL,
		Encoding: codec.Encoding{Use: true, Store: s.EncodingStore, Parse: s.EncodingParse},
	}
	if s.Memo == MemoLocal {
		return cfg, nil
	}

	var (
		bs  memo.ByteStore
		err error
	)
	size, _ := s.memoBytes()
	switch s.Memo {
	case MemoRistretto:
		bs, err = rmemo.New(rmemo.Config{MaxCost: size})
	case MemoBigcache:
		bs, err = bcmemo.New(ctx, bcmemo.Config{
			LifeWindow:         max(s.CacheTTL, memo.DefaultTTL),
			HardMaxCacheSizeMB: int(max(size/units.MiB, 1)),
		})
	case MemoRedis:
		var opt *goredis.Options
		if opt, err = goredis.ParseURL(s.MemoRedisURL); err != nil {
			return cfg, fmt.Errorf("OMNIKV_MEMO_REDIS_URL: %w", err)
		}
		rdb := goredis.NewClient(opt)
		if bs, err = redismemo.New(redismemo.Config{Client: rdb, Prefix: "omnikv:", CloseClient: true}); err != nil {
			_ = rdb.Close()
			break
		}
		// generations must be shared as widely as the memo itself
		cfg.GenStore, err = gen.NewRedis(gen.RedisOptions{Client: rdb, Namespace: cfg.TableOrDefault()})
	}
	if err != nil {
		return cfg, fmt.Errorf("memo %s: %w", s.Memo, err)
	}

	c, _ := s.memoCodec()
	remote, err := memo.NewRemote(memo.RemoteOptions{
		Namespace:  cfg.TableOrDefault(),
		Store:      bs,
		Codec:      c,
		CloseStore: true,
	})
	if err != nil {
		_ = bs.Close(ctx)
		return cfg, err
	}
	cfg.Memo = remote
	return cfg, nil
}

// Open loads settings and opens the store they describe. The backend's
// provider package must be imported.
func Open(ctx context.Context, opts Options) (omnikv.Store, error) {
	s, err := Load(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := s.StoreConfig(ctx)
	if err != nil {
		return nil, err
	}
	st, err := omnikv.Open(ctx, cfg)
	if err != nil && cfg.Memo != nil {
		_ = cfg.Memo.Close(ctx)
	}
	return st, err
}
