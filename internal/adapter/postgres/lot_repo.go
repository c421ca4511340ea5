package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"parking/internal/domain"
)

const lotColumns = "id, name, location, hourly_cost, capacity, lots, lots_occupied, num_drivers, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (*domain.ParkingLot, error) {
	var l domain.ParkingLot
	err := row.Scan(&l.ID, &l.Name, &l.Location, &l.HourlyCost, &l.Capacity,
		pq.Array(&l.Lots), &l.LotsOccupied, &l.NumDrivers, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLot inserts a new lot with a fresh id.
func (d *DB) CreateLot(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	now := time.Now().UTC()
	return scanLot(d.q(ctx).QueryRowContext(ctx,
		"INSERT INTO parking_lots ("+lotColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING "+lotColumns+";",
		uuid.NewString(), lot.Name, lot.Location, lot.HourlyCost, lot.Capacity,
		pq.Array(lot.Lots), lot.LotsOccupied, lot.NumDrivers, now,
	))
}

// GetLot retrieves a lot by id.
func (d *DB) GetLot(ctx context.Context, id string) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return scanLot(d.q(ctx).QueryRowContext(ctx,
		"SELECT "+lotColumns+" FROM parking_lots WHERE id = $1;", id))
}

// ListLots returns all lots ordered by name.
func (d *DB) ListLots(ctx context.Context) ([]domain.ParkingLot, error) {
	rows, err := d.q(ctx).QueryContext(ctx,
		"SELECT "+lotColumns+" FROM parking_lots ORDER BY name ASC, created_at ASC;")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.ParkingLot{}
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// UpdateLot locks the row, applies fn, and writes the mutable columns back.
// Capacity is never written.
func (d *DB) UpdateLot(ctx context.Context, id string, fn func(*domain.ParkingLot) error) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out *domain.ParkingLot
	err := d.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		lot, err := scanLot(tx.QueryRowContext(ctx,
			"SELECT "+lotColumns+" FROM parking_lots WHERE id = $1 FOR UPDATE;", id))
		if err != nil {
			return err
		}
		if err := fn(lot); err != nil {
			return err
		}
		out, err = scanLot(tx.QueryRowContext(ctx,
			`UPDATE parking_lots
			 SET name = $2, location = $3, hourly_cost = $4, lots = $5,
			     lots_occupied = $6, num_drivers = $7, updated_at = $8
			 WHERE id = $1 RETURNING `+lotColumns+";",
			id, lot.Name, lot.Location, lot.HourlyCost, pq.Array(lot.Lots),
			lot.LotsOccupied, lot.NumDrivers, time.Now().UTC(),
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteLot locks the row, runs guard, and deletes it.
func (d *DB) DeleteLot(ctx context.Context, id string, guard func(*domain.ParkingLot) error) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out *domain.ParkingLot
	err := d.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		lot, err := scanLot(tx.QueryRowContext(ctx,
			"SELECT "+lotColumns+" FROM parking_lots WHERE id = $1 FOR UPDATE;", id))
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(lot); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM parking_lots WHERE id = $1;", id); err != nil {
			return err
		}
		out = lot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
