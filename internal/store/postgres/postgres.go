package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/gurujiofficial51-wq/info1/internal/store"
	"github.com/gurujiofficial51-wq/info1/internal/store/migrate"
	"github.com/gurujiofficial51-wq/info1/internal/store/postgres/migrations"
	"github.com/gurujiofficial51-wq/info1/internal/store/sqlstore"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New connects, applies pending migrations and returns the store.
func New(ctx context.Context, dsn string, log zerolog.Logger) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if _, err := migrate.Apply(ctx, db, migrations.FS, ".", sqlstore.Postgres.Rebind, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlstore.New(db, sqlstore.Postgres, log), nil
}
