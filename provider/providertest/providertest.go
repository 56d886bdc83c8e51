// Package providertest has an in-memory reference Provider and a conformance
// suite for provider.Provider implementations.
package providertest

import (
	"context"
	"sort"
	"sync"

	pr "github.com/unkn0wn-root/omnikv/provider"
)

// Op names a provider method for fault injection.
type Op string

const (
	OpConfigure Op = "configure"
	OpUpsert    Op = "upsert"
	OpSelect    Op = "select"
	OpDelete    Op = "delete"
	OpDeleteAll Op = "delete_all"
	OpKeys      Op = "keys"
)

// MapProvider keeps rows in a map. It is safe for concurrent use.
type MapProvider struct {
	mu    sync.Mutex
	rows  map[string]string
	table string
	fail  map[Op]error
	calls map[Op]int

	// OnSelect, if set, runs inside Select before rows are read.
	OnSelect func(keys []string)
	// AfterSelect, if set, runs inside Select after rows are read.
	AfterSelect func(keys []string)
}

var _ pr.Provider = (*MapProvider)(nil)

func NewMapProvider(table string) *MapProvider {
	if table == "" {
		table = pr.DefaultTable
	}
	return &MapProvider{
		rows:  make(map[string]string),
		table: table,
		fail:  make(map[Op]error),
		calls: make(map[Op]int),
	}
}

// Fail makes every later call of op return err; nil clears it.
func (p *MapProvider) Fail(op Op, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.fail, op)
		return
	}
	p.fail[op] = err
}

// Calls counts invocations of op, including failed ones.
func (p *MapProvider) Calls(op Op) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// Raw returns the stored text of key.
func (p *MapProvider) Raw(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.rows[key]
	return v, ok
}

// Put writes stored text directly, bypassing the store.
func (p *MapProvider) Put(key, value string) {
	p.mu.Lock()
	p.rows[key] = value
	p.mu.Unlock()
}

func (p *MapProvider) enter(op Op) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[op]++
	return p.fail[op]
}

func (p *MapProvider) Configure(context.Context) error { return p.enter(OpConfigure) }
func (p *MapProvider) Table() string                   { return p.table }
func (p *MapProvider) Close(context.Context) error     { return nil }

func (p *MapProvider) Upsert(_ context.Context, rows []pr.Row) error {
	if err := p.enter(OpUpsert); err != nil {
		return err
	}
	p.mu.Lock()
	for _, r := range rows {
		p.rows[r.Key] = r.Value
	}
	p.mu.Unlock()
	return nil
}

func (p *MapProvider) Select(_ context.Context, keys []string) ([]pr.Row, error) {
	if err := p.enter(OpSelect); err != nil {
		return nil, err
	}
	if p.OnSelect != nil {
		p.OnSelect(keys)
	}
	p.mu.Lock()
	out := make([]pr.Row, 0, len(keys))
	for _, k := range keys {
		if v, ok := p.rows[k]; ok {
			out = append(out, pr.Row{Key: k, Value: v})
		}
	}
	p.mu.Unlock()
	if p.AfterSelect != nil {
		p.AfterSelect(keys)
	}
	return out, nil
}

func (p *MapProvider) Delete(_ context.Context, keys []string) error {
	if err := p.enter(OpDelete); err != nil {
		return err
	}
	p.mu.Lock()
	for _, k := range keys {
		delete(p.rows, k)
	}
	p.mu.Unlock()
	return nil
}

func (p *MapProvider) DeleteAll(context.Context) error {
	if err := p.enter(OpDeleteAll); err != nil {
		return err
	}
	p.mu.Lock()
	p.rows = make(map[string]string)
	p.mu.Unlock()
	return nil
}

func (p *MapProvider) Keys(context.Context) ([]string, error) {
	if err := p.enter(OpKeys); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.rows))
	for k := range p.rows {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}
