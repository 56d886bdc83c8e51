package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect holds the few statements that differ between SQL engines.
type Dialect struct {
	Name string
	// Quote quotes an identifier that is already known to be safe.
	Quote func(ident string) string
	// Placeholder returns the i-th (1-based) bind parameter.
	Placeholder func(i int) string
	// ValueType is the column type of the value column.
	ValueType string
	// TableSuffix is appended to CREATE TABLE, e.g. an engine clause.
	TableSuffix string
	// OnConflict completes a multi-row INSERT into an upsert. k and v are the
	// quoted key and value columns.
	OnConflict func(k, v string) string
	// MaxParams caps bind parameters per statement.
	MaxParams int
}

func doubleQuote(s string) string { return `"` + s + `"` }

func question(int) string { return "?" }

// SQLite targets SQLite 3.24+ (ON CONFLICT upserts).
var SQLite = Dialect{
	Name:        "sqlite",
	Quote:       doubleQuote,
	Placeholder: question,
	ValueType:   "TEXT",
	OnConflict: func(k, v string) string {
		return fmt.Sprintf("ON CONFLICT(%s) DO UPDATE SET %s = excluded.%s", k, v, v)
	},
	MaxParams: 32766,
}

// MySQL targets MySQL 5.7+ and MariaDB. TEXT caps at 64 KiB there, so the
// value column is LONGTEXT.
var MySQL = Dialect{
	Name:        "mysql",
	Quote:       func(s string) string { return "`" + s + "`" },
	Placeholder: question,
	ValueType:   "LONGTEXT",
	TableSuffix: " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
	OnConflict: func(k, v string) string {
		return fmt.Sprintf("ON DUPLICATE KEY UPDATE %s = VALUES(%s)", v, v)
	},
	MaxParams: 65535,
}

// Postgres targets PostgreSQL 9.5+.
var Postgres = Dialect{
	Name:        "postgres",
	Quote:       doubleQuote,
	Placeholder: func(i int) string { return "$" + strconv.Itoa(i) },
	ValueType:   "TEXT",
	OnConflict: func(k, v string) string {
		return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s", k, v, v)
	},
	MaxParams: 65535,
}

func (d Dialect) createTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(%d) NOT NULL PRIMARY KEY, %s %s)%s",
		table, d.Quote("key"), keyColumnWidth, d.Quote("value"), d.ValueType, d.TableSuffix)
}

func (d Dialect) upsert(table string, rows int) string {
	k, v := d.Quote("key"), d.Quote("value")
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s, %s) VALUES ", table, k, v)
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%s, %s)", d.Placeholder(2*i+1), d.Placeholder(2*i+2))
	}
	b.WriteByte(' ')
	b.WriteString(d.OnConflict(k, v))
	return b.String()
}

// in renders "col IN (p1, p2, ...)".
func (d Dialect) in(col string, n int) string {
	var b strings.Builder
	b.WriteString(col)
	b.WriteString(" IN (")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Placeholder(i + 1))
	}
	b.WriteByte(')')
	return b.String()
}
