package omnikv

import (
	"context"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/unkn0wn-root/omnikv/codec"
)

// memoryBackend holds envelopes directly, in insertion order. Values are
// deep-copied on the way in and out so callers never share state with the map.
type memoryBackend struct {
	mu  sync.RWMutex
	m   *orderedmap.OrderedMap[string, *codec.Envelope]
	reg *codec.Registry
}

var _ backend = (*memoryBackend)(nil)

func newMemoryBackend(reg *codec.Registry) *memoryBackend {
	return &memoryBackend{m: orderedmap.New[string, *codec.Envelope](), reg: reg}
}

func (b *memoryBackend) encoding() codec.Encoding        { return codec.Plain() }
func (b *memoryBackend) configure(context.Context) error { return nil }

func (b *memoryBackend) close(context.Context) error {
	b.mu.Lock()
	b.m = orderedmap.New[string, *codec.Envelope]()
	b.mu.Unlock()
	return nil
}

func (b *memoryBackend) read(_ context.Context, keys []string) (map[string]*codec.Envelope, error) {
	found := make(map[string]*codec.Envelope, len(keys))
	b.mu.RLock()
	for _, k := range keys {
		if env, ok := b.m.Get(k); ok {
			found[k] = env
		}
	}
	b.mu.RUnlock()

	// stored envelopes are never mutated in place, so copying outside the lock is safe
	for k, env := range found {
		cp, err := b.copyEnvelope(env)
		if err != nil {
			return nil, err
		}
		found[k] = cp
	}
	return found, nil
}

func (b *memoryBackend) write(_ context.Context, recs []record) error {
	copies := make([]*codec.Envelope, len(recs))
	for i, r := range recs {
		cp, err := b.copyEnvelope(r.env)
		if err != nil {
			return err
		}
		copies[i] = cp
	}
	b.mu.Lock()
	for i, r := range recs {
		b.m.Set(r.key, copies[i])
	}
	b.mu.Unlock()
	return nil
}

func (b *memoryBackend) remove(_ context.Context, keys []string) error {
	b.mu.Lock()
	for _, k := range keys {
		b.m.Delete(k)
	}
	b.mu.Unlock()
	return nil
}

func (b *memoryBackend) removeAll(context.Context) error {
	b.mu.Lock()
	b.m = orderedmap.New[string, *codec.Envelope]()
	b.mu.Unlock()
	return nil
}

func (b *memoryBackend) keys(context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, b.m.Len())
	for p := b.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out, nil
}

func (b *memoryBackend) copyEnvelope(env *codec.Envelope) (*codec.Envelope, error) {
	v, err := b.reg.Clone(env.Ctx)
	if err != nil {
		return nil, err
	}
	cp := *env
	cp.Ctx = v
	return &cp, nil
}
