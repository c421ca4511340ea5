// Package boltstore implements the domain repositories on BoltDB.
//
// All data lives in a single file, so the service can run without an external
// database. Bolt allows one writer at a time; every read-modify-write runs
// inside db.Update and is therefore atomic.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"parking/internal/domain"
)

var (
	lotsBucket     = []byte("parking_lots")
	sessionsBucket = []byte("parking_sessions")
	// sessionIDsBucket maps session id -> sequence key in sessionsBucket.
	sessionIDsBucket = []byte("parking_session_ids")
	// activeBucket maps driver id -> sequence key of the driver's unpaid session.
	activeBucket = []byte("active_sessions")
)

// Store wraps a BoltDB database. Bolt has a single writer, so units of work
// for different drivers and lots queue behind each other; the store is meant
// for single-node and development deployments.
type Store struct {
	db *bolt.DB
}

// Ensure interfaces are met.
var _ domain.LotRepository = (*Store)(nil)
var _ domain.SessionRepository = (*Store)(nil)

// Open opens (or creates) the database file at path and ensures the buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{lotsBucket, sessionsBucket, sessionIDsBucket, activeBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

type txKey struct{}

// update runs fn in the write transaction carried by ctx, or a new one.
func (s *Store) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*bolt.Tx); ok {
		return fn(tx)
	}
	return s.db.Update(fn)
}

// view reuses the transaction carried by ctx; opening a read transaction
// while this goroutine holds the writer can deadlock on remap.
func (s *Store) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*bolt.Tx); ok {
		return fn(tx)
	}
	return s.db.View(fn)
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidID
	}
	return nil
}

func seqKey(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func getLot(tx *bolt.Tx, id string) (*domain.ParkingLot, error) {
	v := tx.Bucket(lotsBucket).Get([]byte(id))
	if v == nil {
		return nil, domain.ErrLotNotFound
	}
	var l domain.ParkingLot
	if err := json.Unmarshal(v, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func putLot(tx *bolt.Tx, l *domain.ParkingLot) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return tx.Bucket(lotsBucket).Put([]byte(l.ID), data)
}

// --- LotRepository ---

// CreateLot stores a new lot and assigns its id.
func (s *Store) CreateLot(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	stored := lot.Clone()
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	if err := s.update(ctx, func(tx *bolt.Tx) error { return putLot(tx, stored) }); err != nil {
		return nil, err
	}
	return stored, nil
}

// GetLot retrieves a lot by id.
func (s *Store) GetLot(ctx context.Context, id string) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out *domain.ParkingLot
	err := s.view(ctx, func(tx *bolt.Tx) error {
		var err error
		out, err = getLot(tx, id)
		return err
	})
	return out, err
}

// ListLots returns all lots sorted by name.
func (s *Store) ListLots(ctx context.Context) ([]domain.ParkingLot, error) {
	out := []domain.ParkingLot{}
	err := s.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(lotsBucket).ForEach(func(_, v []byte) error {
			var l domain.ParkingLot
			if err := json.Unmarshal(v, &l); err != nil {
				return err
			}
			out = append(out, l)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateLot applies fn inside a write transaction.
func (s *Store) UpdateLot(ctx context.Context, id string, fn func(*domain.ParkingLot) error) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out *domain.ParkingLot
	err := s.update(ctx, func(tx *bolt.Tx) error {
		l, err := getLot(tx, id)
		if err != nil {
			return err
		}
		capacity := l.Capacity
		if err := fn(l); err != nil {
			return err
		}
		l.Capacity = capacity
		l.UpdatedAt = time.Now().UTC()
		out = l
		return putLot(tx, l)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteLot removes the lot if guard allows it.
func (s *Store) DeleteLot(ctx context.Context, id string, guard func(*domain.ParkingLot) error) (*domain.ParkingLot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out *domain.ParkingLot
	err := s.update(ctx, func(tx *bolt.Tx) error {
		l, err := getLot(tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(l); err != nil {
				return err
			}
		}
		out = l
		return tx.Bucket(lotsBucket).Delete([]byte(id))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- SessionRepository ---

func getSession(tx *bolt.Tx, key []byte) (*domain.ParkingSession, error) {
	v := tx.Bucket(sessionsBucket).Get(key)
	if v == nil {
		return nil, nil
	}
	var ps domain.ParkingSession
	if err := json.Unmarshal(v, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

func putSession(tx *bolt.Tx, key []byte, ps *domain.ParkingSession) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	return tx.Bucket(sessionsBucket).Put(key, data)
}

// ListSessions returns every session in creation order.
func (s *Store) ListSessions(ctx context.Context) ([]domain.ParkingSession, error) {
	out := []domain.ParkingSession{}
	err := s.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(_, v []byte) error {
			var ps domain.ParkingSession
			if err := json.Unmarshal(v, &ps); err != nil {
				return err
			}
			out = append(out, ps)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveSession returns the unpaid session of a driver, optionally scoped to a lot.
func (s *Store) ActiveSession(ctx context.Context, driverID, lotID string) (*domain.ParkingSession, error) {
	var out *domain.ParkingSession
	err := s.view(ctx, func(tx *bolt.Tx) error {
		key := tx.Bucket(activeBucket).Get([]byte(driverID))
		if key == nil {
			return nil
		}
		ps, err := getSession(tx, key)
		if err != nil || ps == nil {
			return err
		}
		if lotID != "" && ps.ParkingLotID != lotID {
			return nil
		}
		out = ps
		return nil
	})
	return out, err
}

// CreateSession stores a new active session. It fails if the driver already
// has one.
func (s *Store) CreateSession(ctx context.Context, ps *domain.ParkingSession) (*domain.ParkingSession, error) {
	stored := *ps
	stored.ID = uuid.NewString()
	stored.Paid = false
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt

	err := s.update(ctx, func(tx *bolt.Tx) error {
		active := tx.Bucket(activeBucket)
		if active.Get([]byte(stored.DriverID)) != nil {
			return domain.ErrSessionElsewhere
		}
		b := tx.Bucket(sessionsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := seqKey(seq)
		if err := putSession(tx, key, &stored); err != nil {
			return err
		}
		if err := tx.Bucket(sessionIDsBucket).Put([]byte(stored.ID), key); err != nil {
			return err
		}
		return active.Put([]byte(stored.DriverID), key)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// CloseSession settles an active session.
func (s *Store) CloseSession(ctx context.Context, id string, exitTime time.Time, amount float64) (*domain.ParkingSession, error) {
	var out *domain.ParkingSession
	err := s.update(ctx, func(tx *bolt.Tx) error {
		key := tx.Bucket(sessionIDsBucket).Get([]byte(id))
		if key == nil {
			return domain.ErrInvalidSession
		}
		key = append([]byte(nil), key...)
		ps, err := getSession(tx, key)
		if err != nil {
			return err
		}
		if ps == nil || ps.Paid {
			return domain.ErrInvalidSession
		}
		ps.ExitTime = null.TimeFrom(exitTime)
		ps.Amount = null.FloatFrom(amount)
		ps.Paid = true
		ps.UpdatedAt = time.Now().UTC()
		if err := putSession(tx, key, ps); err != nil {
			return err
		}
		out = ps
		return tx.Bucket(activeBucket).Delete([]byte(ps.DriverID))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithinDriver runs fn inside one write transaction. Bolt serialises writers,
// so this also excludes every other driver for the duration.
func (s *Store) WithinDriver(ctx context.Context, driverID string, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*bolt.Tx); ok {
		return fn(ctx)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
