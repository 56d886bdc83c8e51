// Package bolt provides an omnikv row provider on a bbolt file, one bucket per
// table. Importing it registers omnikv.BackendBolt.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	pr "github.com/unkn0wn-root/omnikv/provider"
)

// ErrNoBucket is returned when the provider is used before Configure.
var ErrNoBucket = errors.New("bolt: bucket missing; call Configure")

type Store struct {
	db     *bolt.DB
	bucket []byte
	ownDB  bool
}

var _ pr.Provider = (*Store)(nil)

// Open opens (or creates) the bbolt file at path. The store owns the file.
func Open(path, table string) (*Store, error) {
	if path == "" {
		return nil, errors.New("bolt: path is required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	s := New(db, table)
	s.ownDB = true
	return s, nil
}

// New uses an open database; the caller keeps ownership of db.
func New(db *bolt.DB, table string) *Store {
	if table == "" {
		table = pr.DefaultTable
	}
	return &Store{db: db, bucket: []byte(table)}
}

func (s *Store) Table() string { return string(s.bucket) }

func (s *Store) Configure(context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
}

func (s *Store) Upsert(_ context.Context, rows []pr.Row) error {
	if len(rows) == 0 {
		return nil
	}
	return s.update(func(b *bolt.Bucket) error {
		for _, r := range rows {
			if err := b.Put([]byte(r.Key), []byte(r.Value)); err != nil {
				return fmt.Errorf("bolt: put %q: %w", r.Key, err)
			}
		}
		return nil
	})
}

func (s *Store) Select(_ context.Context, keys []string) ([]pr.Row, error) {
	out := make([]pr.Row, 0, len(keys))
	err := s.view(func(b *bolt.Bucket) error {
		for _, k := range keys {
			// values are only valid inside the transaction; string() copies
			if v := b.Get([]byte(k)); v != nil {
				out = append(out, pr.Row{Key: k, Value: string(v)})
			}
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
	return s.update(func(b *bolt.Bucket) error {
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteAll(context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}

func (s *Store) Keys(context.Context) ([]string, error) {
	var out []string
	err := s.view(func(b *bolt.Bucket) error {
		out = make([]string, 0, b.Stats().KeyN)
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}

func (s *Store) Close(context.Context) error {
	if s.ownDB {
		return s.db.Close()
	}
	return nil
}

func (s *Store) update(fn func(*bolt.Bucket) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return ErrNoBucket
		}
		return fn(b)
	})
}

func (s *Store) view(fn func(*bolt.Bucket) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return ErrNoBucket
		}
		return fn(b)
	})
}
