// Package sqlstore implements store.Store over database/sql. The SQLite and
// PostgreSQL drivers share every statement; Dialect only rewrites placeholders.
package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gurujiofficial51-wq/info1/internal/store"
)

// Dialect selects the bind-variable syntax.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Rebind rewrites '?' placeholders to $n for PostgreSQL. Quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// New wraps an open, migrated database.
func New(db *sql.DB, dialect Dialect, log zerolog.Logger) store.Store {
	return &sqlStore{db: db, d: dialect, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type sqlStore struct {
	db  *sql.DB
	d   Dialect
	log zerolog.Logger
	now func() time.Time
}

func (s *sqlStore) Principals() store.Principals { return &principals{s} }
func (s *sqlStore) Ledger() store.Ledger         { return &ledger{s} }
func (s *sqlStore) Searches() store.Searches     { return &searches{s} }
func (s *sqlStore) Referrals() store.Referrals   { return &referrals{s} }

// HealthPing implements health pinging for the store health checker.
func (s *sqlStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error { return s.db.Close() }

// q rebinds a statement for the active dialect.
func (s *sqlStore) q(query string) string { return s.d.Rebind(query) }

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
