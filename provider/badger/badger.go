// Package badger provides an omnikv row provider on BadgerDB. Tables are key
// prefixes inside one database. Importing it registers omnikv.BackendBadger.
package badger

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v3"

	pr "github.com/unkn0wn-root/omnikv/provider"
)

type Store struct {
	db     *badger.DB
	table  string
	prefix []byte
	ownDB  bool
}

var _ pr.Provider = (*Store)(nil)

// Open opens the database in dir, or an in-memory database when dir is "".
// The store owns the database.
func Open(dir, table string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	s := New(db, table)
	s.ownDB = true
	return s, nil
}

// New uses an open database; the caller keeps ownership of db.
func New(db *badger.DB, table string) *Store {
	if table == "" {
		table = pr.DefaultTable
	}
	return &Store{db: db, table: table, prefix: []byte(table + "\x00")}
}

func (s *Store) Table() string { return s.table }

func (s *Store) key(k string) []byte {
	b := make([]byte, 0, len(s.prefix)+len(k))
	return append(append(b, s.prefix...), k...)
}

// Configure is a no-op: prefixes need no schema.
func (s *Store) Configure(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

func (s *Store) Upsert(_ context.Context, rows []pr.Row) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, r := range rows {
			if err := txn.Set(s.key(r.Key), []byte(r.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Select(_ context.Context, keys []string) ([]pr.Row, error) {
	out := make([]pr.Row, 0, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get(s.key(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			// item values are only valid inside the transaction
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, pr.Row{Key: k, Value: string(v)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(s.key(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteAll(context.Context) error {
	return s.db.DropPrefix(s.prefix)
}

func (s *Store) Keys(context.Context) ([]string, error) {
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(s.prefix); it.Next() {
			out = append(out, string(it.Item().Key()[len(s.prefix):]))
		}
		return nil
	})
	return out, err
}

func (s *Store) Close(context.Context) error {
	if s.ownDB {
		return s.db.Close()
	}
	return nil
}

// RunGC runs one value-log garbage collection pass. Deleted and replaced rows
// only free disk space after GC; call it periodically for on-disk databases.
func (s *Store) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}
