package omnikv

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/omnikv/codec"
	pr "github.com/unkn0wn-root/omnikv/provider"
)

type record struct {
	key string
	env *codec.Envelope
}

// backend is what the store dispatches to: envelopes in, envelopes out.
type backend interface {
	encoding() codec.Encoding
	configure(ctx context.Context) error
	// read returns envelopes for the keys that exist; absent keys are omitted.
	read(ctx context.Context, keys []string) (map[string]*codec.Envelope, error)
	// write persists every record or none.
	write(ctx context.Context, recs []record) error
	remove(ctx context.Context, keys []string) error
	removeAll(ctx context.Context) error
	keys(ctx context.Context) ([]string, error)
	close(ctx context.Context) error
}

// rowBackend stores armored envelope text through a provider.
type rowBackend struct {
	p   pr.Provider
	reg *codec.Registry
	enc codec.Encoding
}

var _ backend = (*rowBackend)(nil)

func newRowBackend(p pr.Provider, reg *codec.Registry, enc codec.Encoding) *rowBackend {
	enc.Use = true
	enc.Store = coalesce(enc.Store, codec.StoreBase64)
	enc.Parse = coalesce(enc.Parse, codec.ParseUTF8)
	return &rowBackend{p: p, reg: reg, enc: enc}
}

func (b *rowBackend) encoding() codec.Encoding            { return b.enc }
func (b *rowBackend) configure(ctx context.Context) error { return b.p.Configure(ctx) }
func (b *rowBackend) close(ctx context.Context) error     { return b.p.Close(ctx) }

func (b *rowBackend) read(ctx context.Context, keys []string) (map[string]*codec.Envelope, error) {
	rows, err := b.p.Select(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*codec.Envelope, len(rows))
	for _, r := range rows {
		env, err := b.reg.Decode(r.Value)
		if err != nil {
			return nil, fmt.Errorf("omnikv: decode %q: %w", r.Key, err)
		}
		if env != nil {
			out[r.Key] = env
		}
	}
	return out, nil
}

func (b *rowBackend) write(ctx context.Context, recs []record) error {
	rows := make([]pr.Row, 0, len(recs))
	// SetMany shares one envelope across keys; encode it once
	encoded := make(map[*codec.Envelope]string, 1)
	for _, r := range recs {
		s, ok := encoded[r.env]
		if !ok {
			var err error
			if s, err = b.reg.Encode(r.env); err != nil {
				return fmt.Errorf("omnikv: encode %q: %w", r.key, err)
			}
			encoded[r.env] = s
		}
		rows = append(rows, pr.Row{Key: r.key, Value: s})
	}
	return b.p.Upsert(ctx, rows)
}

func (b *rowBackend) remove(ctx context.Context, keys []string) error {
	return b.p.Delete(ctx, keys)
}

func (b *rowBackend) removeAll(ctx context.Context) error { return b.p.DeleteAll(ctx) }

func (b *rowBackend) keys(ctx context.Context) ([]string, error) { return b.p.Keys(ctx) }

// dedupe keeps the first occurrence of each key.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
