package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNilClient = errors.New("genstore: nil redis client")

// RedisOptions configure a Redis store. Client and Namespace are required.
type RedisOptions struct {
	Client redis.UniversalClient
	// Namespace scopes the generation keys, normally the store's table.
	Namespace string
	// TTL expires idle generation keys; 0 keeps them forever. An expired key
	// reads as 0, which is safe once every memo entry guarded by it is gone.
	TTL         time.Duration
	CloseClient bool
}

// Redis keeps generations as INCR counters under "omnikv:gen:{ns}:{key}", so
// every process sharing a remote memo observes the same bumps.
type Redis struct {
	rdb         redis.UniversalClient
	prefix      string
	ttl         time.Duration
	closeClient bool
}

var _ GenStore = (*Redis)(nil)

func NewRedis(opts RedisOptions) (*Redis, error) {
	if opts.Client == nil {
		return nil, ErrNilClient
	}
	if opts.Namespace == "" {
		return nil, errors.New("genstore: namespace is required")
	}
	return &Redis{
		rdb:         opts.Client,
		prefix:      "omnikv:gen:" + opts.Namespace + ":",
		ttl:         opts.TTL,
		closeClient: opts.CloseClient,
	}, nil
}

func (s *Redis) key(k string) string { return s.prefix + k }

func (s *Redis) Snapshot(ctx context.Context, key string) (uint64, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseGen(key, v)
}

func (s *Redis) SnapshotMany(ctx context.Context, keys []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	vals, err := s.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if v == nil {
			out[keys[i]] = 0
			continue
		}
		g, err := parseGen(keys[i], v)
		if err != nil {
			return nil, err
		}
		out[keys[i]] = g
	}
	return out, nil
}

func (s *Redis) Bump(ctx context.Context, key string) (uint64, error) {
	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = s.bump(ctx, p, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

func (s *Redis) BumpMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			s.bump(ctx, p, k)
		}
		return nil
	})
	return err
}

func (s *Redis) bump(ctx context.Context, p redis.Pipeliner, key string) *redis.IntCmd {
	k := s.key(key)
	incr := p.Incr(ctx, k)
	if s.ttl > 0 {
		p.Expire(ctx, k, s.ttl)
	}
	return incr
}

// Close closes the client when CloseClient was set.
func (s *Redis) Close(context.Context) error {
	if s.closeClient {
		return s.rdb.Close()
	}
	return nil
}

func parseGen(key string, v any) (uint64, error) {
	var str string
	switch vv := v.(type) {
	case string:
		str = vv
	case []byte:
		str = string(vv)
	default:
		str = fmt.Sprint(vv)
	}
	g, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("genstore: bad generation for %q: %w", key, err)
	}
	return g, nil
}
