// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"parking/internal/domain"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Ensure interfaces are met.
var _ domain.LotRepository = (*DB)(nil)
var _ domain.SessionRepository = (*DB)(nil)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS parking_lots (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			location TEXT NOT NULL,
			hourly_cost DOUBLE PRECISION NOT NULL CHECK (hourly_cost >= 0),
			capacity INTEGER NOT NULL CHECK (capacity > 0),
			lots BOOLEAN[] NOT NULL,
			lots_occupied INTEGER NOT NULL DEFAULT 0 CHECK (lots_occupied >= 0 AND lots_occupied <= capacity),
			num_drivers INTEGER NOT NULL DEFAULT 0 CHECK (num_drivers >= 0),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			CHECK (cardinality(lots) = capacity)
		);`,
		"CREATE INDEX IF NOT EXISTS idx_parking_lots_name ON parking_lots(name);",
		`CREATE TABLE IF NOT EXISTS parking_sessions (
			id UUID PRIMARY KEY,
			driver_id TEXT NOT NULL,
			parking_lot_id UUID NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL,
			exit_time TIMESTAMPTZ,
			amount DOUBLE PRECISION,
			paid BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_parking_sessions_active_driver ON parking_sessions(driver_id) WHERE NOT paid;",
		"CREATE INDEX IF NOT EXISTS idx_parking_sessions_lot ON parking_sessions(parking_lot_id);",
		"CREATE INDEX IF NOT EXISTS idx_parking_sessions_created_at ON parking_sessions(created_at);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// q returns the transaction carried by ctx, or the pool.
func (d *DB) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.sql
}

// inTx runs fn inside the transaction carried by ctx, or a new one that is
// committed when fn returns nil.
func (d *DB) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx, tx)
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidID
	}
	return nil
}
