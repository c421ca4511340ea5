package boltstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "parking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b, err := s.CreateLot(ctx, domain.NewParkingLot("B lot", "East", 3, 2))
	require.NoError(t, err)
	a, err := s.CreateLot(ctx, domain.NewParkingLot("A lot", "West", 5, 4))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	lots, err := s.ListLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "A lot", lots[0].Name)

	updated, err := s.UpdateLot(ctx, a.ID, func(l *domain.ParkingLot) error {
		return l.Occupy(3)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.LotsOccupied)

	got, err := s.GetLot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, true}, got.Lots)
	assert.Equal(t, 4, got.Capacity)

	_, err = s.UpdateLot(ctx, a.ID, func(l *domain.ParkingLot) error {
		l.HourlyCost = 99
		return domain.ErrAlreadyOccupied
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyOccupied)
	got, _ = s.GetLot(ctx, a.ID)
	assert.Equal(t, 5.0, got.HourlyCost)

	_, err = s.DeleteLot(ctx, a.ID, func(*domain.ParkingLot) error { return domain.ErrLotInUse })
	assert.ErrorIs(t, err, domain.ErrLotInUse)

	_, err = s.DeleteLot(ctx, a.ID, nil)
	require.NoError(t, err)
	_, err = s.GetLot(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrLotNotFound)
}

func TestInvalidID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetLot(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	entry := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	ps, err := s.CreateSession(ctx, &domain.ParkingSession{DriverID: "d1", ParkingLotID: "lot-1", EntryTime: entry})
	require.NoError(t, err)
	assert.False(t, ps.Paid)

	_, err = s.CreateSession(ctx, &domain.ParkingSession{DriverID: "d1", ParkingLotID: "lot-2", EntryTime: entry})
	assert.Error(t, err)

	active, err := s.ActiveSession(ctx, "d1", "")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, ps.ID, active.ID)

	other, err := s.ActiveSession(ctx, "d1", "lot-2")
	require.NoError(t, err)
	assert.Nil(t, other)

	closed, err := s.CloseSession(ctx, ps.ID, entry.Add(90*time.Minute), 15)
	require.NoError(t, err)
	assert.True(t, closed.Paid)
	assert.Equal(t, 15.0, closed.Amount.Float64)

	_, err = s.CloseSession(ctx, ps.ID, entry, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	active, err = s.ActiveSession(ctx, "d1", "")
	require.NoError(t, err)
	assert.Nil(t, active)

	second, err := s.CreateSession(ctx, &domain.ParkingSession{DriverID: "d1", ParkingLotID: "lot-2", EntryTime: entry})
	require.NoError(t, err)

	all, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ps.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.True(t, all[0].ExitTime.Valid)
	assert.False(t, all[1].ExitTime.Valid)
}

func TestWithinDriver_RollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lot, err := s.CreateLot(ctx, domain.NewParkingLot("A", "West", 5, 2))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinDriver(ctx, "d1", func(ctx context.Context) error {
		if _, err := s.UpdateLot(ctx, lot.ID, func(l *domain.ParkingLot) error { return l.AdjustDrivers(1) }); err != nil {
			return err
		}
		if _, err := s.CreateSession(ctx, &domain.ParkingSession{DriverID: "d1", ParkingLotID: lot.ID}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumDrivers)
	active, err := s.ActiveSession(ctx, "d1", "")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestWithinDriver_ConcurrentDrivers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lot, err := s.CreateLot(ctx, domain.NewParkingLot("A", "West", 5, 2))
	require.NoError(t, err)

	const drivers = 8
	var wg sync.WaitGroup
	errs := make(chan error, drivers)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(driverID string) {
			defer wg.Done()
			errs <- s.WithinDriver(ctx, driverID, func(ctx context.Context) error {
				if _, err := s.UpdateLot(ctx, lot.ID, func(l *domain.ParkingLot) error { return l.AdjustDrivers(1) }); err != nil {
					return err
				}
				_, err := s.CreateSession(ctx, &domain.ParkingSession{DriverID: driverID, ParkingLotID: lot.ID})
				return err
			})
		}(string(rune('a' + i)))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, drivers, got.NumDrivers)
	all, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, drivers)
}
