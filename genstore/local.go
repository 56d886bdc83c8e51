package genstore

import (
	"context"
	"sync"
	"time"
)

// LocalOptions configure a Local store. The zero value never prunes.
type LocalOptions struct {
	// Retention drops keys not bumped for this long.
	Retention time.Duration
	// SweepEvery runs Prune in the background; 0 disables the sweeper.
	SweepEvery time.Duration
	Clock      func() time.Time // nil => time.Now
}

type localGen struct {
	gen     uint64
	touched time.Time
}

// Local keeps generations in a map guarded by a RWMutex.
//
// Generations come from one store-wide counter, so a key never sees the same
// generation twice. Keys without an entry read as the floor: the counter value
// at the last Prune or Reset. A pruned key therefore reads a value at least as
// high as its last bump, and any later bump is higher still.
type Local struct {
	mu      sync.RWMutex
	gens    map[string]localGen
	counter uint64
	floor   uint64
	opts    LocalOptions

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

var _ GenStore = (*Local)(nil)

func NewLocal(opts LocalOptions) *Local {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &Local{gens: make(map[string]localGen), opts: opts}
	if opts.SweepEvery > 0 && opts.Retention > 0 {
		s.stop, s.done = make(chan struct{}), make(chan struct{})
		go s.sweep()
	}
	return s
}

func (s *Local) sweep() {
	defer close(s.done)
	t := time.NewTicker(s.opts.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Prune()
		case <-s.stop:
			return
		}
	}
}

func (s *Local) Snapshot(_ context.Context, key string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.genLocked(key), nil
}

func (s *Local) SnapshotMany(_ context.Context, keys []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(keys))
	s.mu.RLock()
	for _, k := range keys {
		out[k] = s.genLocked(k)
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *Local) genLocked(key string) uint64 {
	if g, ok := s.gens[key]; ok {
		return g.gen
	}
	return s.floor
}

func (s *Local) Bump(_ context.Context, key string) (uint64, error) {
	now := s.opts.Clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bumpLocked(key, now), nil
}

func (s *Local) BumpMany(_ context.Context, keys []string) error {
	now := s.opts.Clock()
	s.mu.Lock()
	for _, k := range keys {
		s.bumpLocked(k, now)
	}
	s.mu.Unlock()
	return nil
}

func (s *Local) bumpLocked(key string, now time.Time) uint64 {
	s.counter++
	s.gens[key] = localGen{gen: s.counter, touched: now}
	return s.counter
}

// Prune drops keys idle for longer than Retention and reports how many went.
func (s *Local) Prune() int {
	if s.opts.Retention <= 0 {
		return 0
	}
	cutoff := s.opts.Clock().Add(-s.opts.Retention)
	n := 0
	s.mu.Lock()
	for k, g := range s.gens {
		if g.touched.Before(cutoff) {
			delete(s.gens, k)
			n++
		}
	}
	if n > 0 {
		s.floor = s.counter
	}
	s.mu.Unlock()
	return n
}

// Reset drops every key; all keys read as the floor afterwards.
func (s *Local) Reset() {
	s.mu.Lock()
	s.gens = make(map[string]localGen)
	s.floor = s.counter
	s.mu.Unlock()
}

// Len reports how many keys carry a generation.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

// Close stops the sweeper. Generations stay readable.
func (s *Local) Close(context.Context) error {
	if s.stop == nil {
		return nil
	}
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}
