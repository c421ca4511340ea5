package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"parking/internal/domain"
)

const sessionColumns = "id, driver_id, parking_lot_id, entry_time, exit_time, amount, paid, created_at, updated_at"

func scanSession(row rowScanner) (*domain.ParkingSession, error) {
	var s domain.ParkingSession
	err := row.Scan(&s.ID, &s.DriverID, &s.ParkingLotID, &s.EntryTime,
		&s.ExitTime, &s.Amount, &s.Paid, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns every session in creation order.
func (d *DB) ListSessions(ctx context.Context) ([]domain.ParkingSession, error) {
	rows, err := d.q(ctx).QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM parking_sessions ORDER BY created_at ASC, id ASC;")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.ParkingSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ActiveSession returns the unpaid session of a driver, optionally scoped to a lot.
func (d *DB) ActiveSession(ctx context.Context, driverID, lotID string) (*domain.ParkingSession, error) {
	var row *sql.Row
	if lotID == "" {
		row = d.q(ctx).QueryRowContext(ctx,
			"SELECT "+sessionColumns+" FROM parking_sessions WHERE driver_id = $1 AND NOT paid LIMIT 1;",
			driverID)
	} else {
		if err := checkID(lotID); err != nil {
			return nil, err
		}
		row = d.q(ctx).QueryRowContext(ctx,
			"SELECT "+sessionColumns+" FROM parking_sessions WHERE driver_id = $1 AND parking_lot_id = $2 AND NOT paid LIMIT 1;",
			driverID, lotID)
	}
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// CreateSession inserts a new active session.
func (d *DB) CreateSession(ctx context.Context, s *domain.ParkingSession) (*domain.ParkingSession, error) {
	now := time.Now().UTC()
	return scanSession(d.q(ctx).QueryRowContext(ctx,
		"INSERT INTO parking_sessions (id, driver_id, parking_lot_id, entry_time, paid, created_at, updated_at) VALUES ($1, $2, $3, $4, FALSE, $5, $5) RETURNING "+sessionColumns+";",
		uuid.NewString(), s.DriverID, s.ParkingLotID, s.EntryTime, now,
	))
}

// CloseSession settles an active session. Settled sessions are never updated again.
func (d *DB) CloseSession(ctx context.Context, id string, exitTime time.Time, amount float64) (*domain.ParkingSession, error) {
	s, err := scanSession(d.q(ctx).QueryRowContext(ctx,
		"UPDATE parking_sessions SET exit_time = $2, amount = $3, paid = TRUE, updated_at = $4 WHERE id = $1 AND NOT paid RETURNING "+sessionColumns+";",
		id, exitTime, amount, time.Now().UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidSession
	}
	return s, err
}

// WithinDriver runs fn in one transaction holding an advisory lock on driverID.
func (d *DB) WithinDriver(ctx context.Context, driverID string, fn func(ctx context.Context) error) error {
	return d.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1));", driverID); err != nil {
			return err
		}
		return fn(ctx)
	})
}
