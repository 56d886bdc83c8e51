// Package sqlstore implements provider.Provider over database/sql.
//
// One table holds every row:
//
//	key VARCHAR(192) PRIMARY KEY, value TEXT
//
// Upsert runs as a single transaction of multi-row INSERT ... ON CONFLICT
// statements, so a batch is written completely or not at all. The engine
// specific parts live in a Dialect; see the sqlite, mysql and postgres
// provider packages for ready-made constructors.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	pr "github.com/unkn0wn-root/omnikv/provider"
)

const keyColumnWidth = 192

// maxBatchRows bounds rows per INSERT; larger batches use several statements
// inside the same transaction.
const maxBatchRows = 500

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ErrBadTable is returned for table names that are not plain identifiers.
var ErrBadTable = errors.New("sqlstore: table name must be a plain identifier")

type Store struct {
	db     *sql.DB
	d      Dialect
	table  string
	qtable string
	ownDB  bool
}

var _ pr.Provider = (*Store)(nil)

// New wraps an open database. The caller keeps ownership of db.
func New(db *sql.DB, d Dialect, table string) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	if table == "" {
		table = pr.DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrBadTable, table)
	}
	return &Store{db: db, d: d, table: table, qtable: d.Quote(table)}, nil
}

// Open opens driver/dsn and wraps it. Close closes the database.
func Open(driver, dsn string, d Dialect, table string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	s, err := New(db, d, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownDB = true
	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Table() string { return s.table }

func (s *Store) Configure(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.d.createTable(s.qtable))
	return err
}

func (s *Store) Upsert(ctx context.Context, rows []pr.Row) error {
	rows = lastWins(rows)
	if len(rows) == 0 {
		return nil
	}
	step := min(maxBatchRows, s.d.MaxParams/2)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(rows); start += step {
			chunk := rows[start:min(start+step, len(rows))]
			args := make([]any, 0, 2*len(chunk))
			for _, r := range chunk {
				args = append(args, r.Key, r.Value)
			}
			if _, err := tx.ExecContext(ctx, s.d.upsert(s.qtable, len(chunk)), args...); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Select(ctx context.Context, keys []string) ([]pr.Row, error) {
	out := make([]pr.Row, 0, len(keys))
	k, v := s.d.Quote("key"), s.d.Quote("value")
	err := s.chunks(keys, func(part []any) error {
		q := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s AND %s IS NOT NULL",
			k, v, s.qtable, s.d.in(k, len(part)), v)
		rows, err := s.db.QueryContext(ctx, q, part...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r pr.Row
			if err := rows.Scan(&r.Key, &r.Value); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.chunks(keys, func(part []any) error {
			q := fmt.Sprintf("DELETE FROM %s WHERE %s", s.qtable, s.d.in(s.d.Quote("key"), len(part)))
			_, err := tx.ExecContext(ctx, q, part...)
			return err
		})
	})
}

func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM "+s.qtable)
	return err
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", s.d.Quote("key"), s.qtable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) Close(context.Context) error {
	if s.ownDB {
		return s.db.Close()
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			return errors.Join(err, rerr)
		}
		return err
	}
	return tx.Commit()
}

// chunks calls fn with keys split to fit the dialect's parameter limit.
func (s *Store) chunks(keys []string, fn func(part []any) error) error {
	step := min(maxBatchRows*2, s.d.MaxParams)
	for start := 0; start < len(keys); start += step {
		end := min(start+step, len(keys))
		part := make([]any, 0, end-start)
		for _, k := range keys[start:end] {
			part = append(part, k)
		}
		if err := fn(part); err != nil {
			return err
		}
	}
	return nil
}

// lastWins drops earlier duplicates; one statement may not touch a row twice.
func lastWins(rows []pr.Row) []pr.Row {
	idx := make(map[string]int, len(rows))
	out := make([]pr.Row, 0, len(rows))
	for _, r := range rows {
		if i, ok := idx[r.Key]; ok {
			out[i] = r
			continue
		}
		idx[r.Key] = len(out)
		out = append(out, r)
	}
	return out
}
