// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"parking/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	lots     map[string]*domain.ParkingLot
	sessions []*domain.ParkingSession

	lotLocks    *keyLock
	driverLocks *keyLock
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		lots:        make(map[string]*domain.ParkingLot),
		lotLocks:    newKeyLock(),
		driverLocks: newKeyLock(),
	}
}

// Ensure interfaces are met.
var _ domain.LotRepository = (*DB)(nil)
var _ domain.SessionRepository = (*DB)(nil)

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidID
	}
	return nil
}

// --- LotRepository ---

// CreateLot stores a new lot and assigns its id.
func (db *DB) CreateLot(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := lot.Clone()
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	db.lots[stored.ID] = stored
	return stored.Clone(), nil
}

// GetLot returns a copy of the lot with the given id.
func (db *DB) GetLot(ctx context.Context, id string) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	l, ok := db.lots[id]
	if !ok {
		return nil, domain.ErrLotNotFound
	}
	return l.Clone(), nil
}

// ListLots returns all lots sorted by name.
func (db *DB) ListLots(ctx context.Context) ([]domain.ParkingLot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.ParkingLot, 0, len(db.lots))
	for _, l := range db.lots {
		out = append(out, *l.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateLot applies fn to a copy of the lot while holding the lot's key lock
// and stores the copy only if fn succeeds.
func (db *DB) UpdateLot(ctx context.Context, id string, fn func(*domain.ParkingLot) error) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	unlock := db.lotLocks.Lock(id)
	defer unlock()

	current, err := db.GetLot(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.lots[id]; !ok {
		return nil, domain.ErrLotNotFound
	}
	current.UpdatedAt = time.Now().UTC()
	db.lots[id] = current
	return current.Clone(), nil
}

// DeleteLot removes the lot if guard allows it.
func (db *DB) DeleteLot(ctx context.Context, id string, guard func(*domain.ParkingLot) error) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	unlock := db.lotLocks.Lock(id)
	defer unlock()

	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.lots[id]
	if !ok {
		return nil, domain.ErrLotNotFound
	}
	if guard != nil {
		if err := guard(l.Clone()); err != nil {
			return nil, err
		}
	}
	delete(db.lots, id)
	return l.Clone(), nil
}

// --- SessionRepository ---

// ListSessions returns every session in creation order.
func (db *DB) ListSessions(ctx context.Context) ([]domain.ParkingSession, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.ParkingSession, 0, len(db.sessions))
	for _, s := range db.sessions {
		out = append(out, *s)
	}
	return out, nil
}

// ActiveSession returns the unpaid session of a driver, optionally scoped to a lot.
func (db *DB) ActiveSession(ctx context.Context, driverID, lotID string) (*domain.ParkingSession, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, s := range db.sessions {
		if s.DriverID != driverID || s.Paid {
			continue
		}
		if lotID != "" && s.ParkingLotID != lotID {
			continue
		}
		c := *s
		return &c, nil
	}
	return nil, nil
}

// CreateSession appends a new active session.
func (db *DB) CreateSession(ctx context.Context, s *domain.ParkingSession) (*domain.ParkingSession, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := *s
	stored.ID = uuid.NewString()
	stored.Paid = false
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	db.sessions = append(db.sessions, &stored)
	c := stored
	return &c, nil
}

// CloseSession settles an active session.
func (db *DB) CloseSession(ctx context.Context, id string, exitTime time.Time, amount float64) (*domain.ParkingSession, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, s := range db.sessions {
		if s.ID != id {
			continue
		}
		if s.Paid {
			return nil, domain.ErrInvalidSession
		}
		s.ExitTime = null.TimeFrom(exitTime)
		s.Amount = null.FloatFrom(amount)
		s.Paid = true
		s.UpdatedAt = time.Now().UTC()
		c := *s
		return &c, nil
	}
	return nil, domain.ErrInvalidSession
}

// WithinDriver serialises fn against other units of work for the same driver.
func (db *DB) WithinDriver(ctx context.Context, driverID string, fn func(ctx context.Context) error) error {
	unlock := db.driverLocks.Lock(driverID)
	defer unlock()
	return fn(ctx)
}
