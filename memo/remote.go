package memo

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/omnikv/codec"
	"github.com/unkn0wn-root/omnikv/internal/wire"
)

var ErrNilStore = errors.New("memo: nil byte store")

// RemoteOptions configure a Remote cache. Namespace and Store are required.
type RemoteOptions struct {
	Namespace  string
	Store      ByteStore
	Codec      codec.Codec[any] // nil => codec.JSON[any]
	Registry   *codec.Registry  // nil => codec.Default
	Clock      func() time.Time // nil => time.Now
	CloseStore bool             // close Store on Close; set only if Remote owns it
}

// Remote keeps items in a byte store. Values are projected through the registry,
// serialized with a snapshot codec and framed with their generation and expiry.
// Clear advances an in-process epoch that is part of every key; entries of older
// epochs are never read again and age out through the store's own TTL.
type Remote struct {
	store      ByteStore
	ns         string
	codec      codec.Codec[any]
	reg        *codec.Registry
	now        func() time.Time
	closeStore bool
	epoch      atomic.Uint64
	closed     atomic.Bool
}

var _ Cache = (*Remote)(nil)

func NewRemote(opts RemoteOptions) (*Remote, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	if opts.Namespace == "" {
		return nil, errors.New("memo: namespace is required")
	}
	r := &Remote{
		store:      opts.Store,
		ns:         opts.Namespace,
		codec:      opts.Codec,
		reg:        opts.Registry,
		now:        opts.Clock,
		closeStore: opts.CloseStore,
	}
	if r.codec == nil {
		r.codec = codec.JSON[any]{}
	}
	if r.reg == nil {
		r.reg = codec.Default
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

func (r *Remote) key(k string) string {
	return r.ns + ":" + strconv.FormatUint(r.epoch.Load(), 10) + ":" + k
}

func (r *Remote) Get(ctx context.Context, key string) (Item, bool, error) {
	k := r.key(key)
	raw, ok, err := r.store.Get(ctx, k)
	if err != nil || !ok {
		return Item{}, false, err
	}
	e, err := wire.DecodeEntry(raw)
	if err != nil || e.Expired(r.now()) {
		_ = r.store.Del(ctx, k) // self-heal corrupt or stale frame
		return Item{}, false, nil
	}
	tree, err := r.codec.Decode(e.Payload)
	if err != nil {
		_ = r.store.Del(ctx, k)
		return Item{}, false, nil
	}
	v, err := r.reg.Restore(tree)
	if err != nil {
		_ = r.store.Del(ctx, k)
		return Item{}, false, nil
	}
	return Item{Value: v, Gen: e.Gen}, true, nil
}

func (r *Remote) Set(ctx context.Context, key string, it Item, ttl time.Duration) error {
	ttl = ttlOrDefault(ttl)
	tree, err := r.reg.Project(it.Value)
	if err != nil {
		return err
	}
	payload, err := r.codec.Encode(tree)
	if err != nil {
		return err
	}
	b := wire.EncodeEntry(wire.Entry{Expiry: r.now().Add(ttl), Gen: it.Gen, Payload: payload})
	// rejection under pressure leaves the key unmemoized, which is always safe
	_, err = r.store.Set(ctx, r.key(key), b, int64(len(b)), ttl)
	return err
}

func (r *Remote) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := r.Get(ctx, key)
	return ok, err
}

func (r *Remote) Delete(ctx context.Context, key string) error {
	return r.store.Del(ctx, r.key(key))
}

func (r *Remote) Clear(context.Context) error {
	r.epoch.Add(1)
	return nil
}

// Close closes the byte store when Remote owns it. Later calls are no-ops.
func (r *Remote) Close(ctx context.Context) error {
	if r.closeStore && r.closed.CompareAndSwap(false, true) {
		return r.store.Close(ctx)
	}
	return nil
}
