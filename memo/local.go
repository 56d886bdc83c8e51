package memo

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	it  Item
	exp time.Time
}

// Local keeps items in-process. There is no background sweeper: expired
// entries are dropped when they are read.
type Local struct {
	mu  sync.RWMutex
	m   map[string]localEntry
	now func() time.Time
}

var _ Cache = (*Local)(nil)

func NewLocal() *Local {
	return &Local{m: make(map[string]localEntry), now: time.Now}
}

// NewLocalWithClock is NewLocal with an injectable clock.
func NewLocalWithClock(now func() time.Time) *Local {
	l := NewLocal()
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Local) Get(_ context.Context, key string) (Item, bool, error) {
	l.mu.RLock()
	e, ok := l.m[key]
	l.mu.RUnlock()
	if !ok {
		return Item{}, false, nil
	}
	if !l.now().Before(e.exp) {
		l.mu.Lock()
		// re-check under the write lock; a Set may have replaced it
		if cur, ok := l.m[key]; ok && !l.now().Before(cur.exp) {
			delete(l.m, key)
		}
		l.mu.Unlock()
		return Item{}, false, nil
	}
	return e.it, true, nil
}

func (l *Local) Set(_ context.Context, key string, it Item, ttl time.Duration) error {
	exp := l.now().Add(ttlOrDefault(ttl))
	l.mu.Lock()
	l.m[key] = localEntry{it: it, exp: exp}
	l.mu.Unlock()
	return nil
}

func (l *Local) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := l.Get(ctx, key)
	return ok, err
}

func (l *Local) Delete(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.m, key)
	l.mu.Unlock()
	return nil
}

func (l *Local) Clear(context.Context) error {
	l.mu.Lock()
	l.m = make(map[string]localEntry)
	l.mu.Unlock()
	return nil
}

// Len counts stored entries, including expired ones not yet read.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.m)
}

func (l *Local) Close(ctx context.Context) error { return l.Clear(ctx) }
