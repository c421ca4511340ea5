package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/domain"
)

func TestLotRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	b, err := db.CreateLot(ctx, domain.NewParkingLot("B lot", "East", 3, 2))
	require.NoError(t, err)
	a, err := db.CreateLot(ctx, domain.NewParkingLot("A lot", "West", 5, 4))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	lots, err := db.ListLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "A lot", lots[0].Name)
	assert.Equal(t, "B lot", lots[1].Name)

	got, err := db.GetLot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Capacity)
	assert.Len(t, got.Lots, 4)

	// Mutating a returned copy must not leak into the store.
	got.Lots[0] = true
	again, _ := db.GetLot(ctx, a.ID)
	assert.False(t, again.Lots[0])

	deleted, err := db.DeleteLot(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, a.ID, deleted.ID)

	_, err = db.GetLot(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrLotNotFound)
}

func TestGetLot_InvalidID(t *testing.T) {
	db := New()
	_, err := db.GetLot(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestUpdateLot_CallbackErrorDoesNotWrite(t *testing.T) {
	db := New()
	ctx := context.Background()
	lot, err := db.CreateLot(ctx, domain.NewParkingLot("A", "West", 5, 2))
	require.NoError(t, err)

	_, err = db.UpdateLot(ctx, lot.ID, func(l *domain.ParkingLot) error {
		l.Lots[0] = true
		l.LotsOccupied = 1
		return domain.ErrAlreadyOccupied
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyOccupied)

	got, _ := db.GetLot(ctx, lot.ID)
	assert.Equal(t, 0, got.LotsOccupied)
	assert.False(t, got.Lots[0])
}

func TestDeleteLot_GuardRejects(t *testing.T) {
	db := New()
	ctx := context.Background()
	lot, _ := db.CreateLot(ctx, domain.NewParkingLot("A", "West", 5, 2))

	_, err := db.DeleteLot(ctx, lot.ID, func(*domain.ParkingLot) error { return domain.ErrLotInUse })
	assert.ErrorIs(t, err, domain.ErrLotInUse)

	_, err = db.GetLot(ctx, lot.ID)
	assert.NoError(t, err)
}

func TestUpdateLot_ConcurrentOccupySameSlot(t *testing.T) {
	db := New()
	ctx := context.Background()
	lot, _ := db.CreateLot(ctx, domain.NewParkingLot("A", "West", 5, 3))

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.UpdateLot(ctx, lot.ID, func(l *domain.ParkingLot) error {
				return l.Occupy(1)
			}); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	got, _ := db.GetLot(ctx, lot.ID)
	assert.Equal(t, 1, got.LotsOccupied)
}

func TestSessionRepository(t *testing.T) {
	db := New()
	ctx := context.Background()
	lotID := "6f1c1f9e-3c57-4b43-9a0e-1d1b3b7f0a11"

	s, err := db.CreateSession(ctx, &domain.ParkingSession{DriverID: "d1", ParkingLotID: lotID, EntryTime: time.Now()})
	require.NoError(t, err)
	assert.False(t, s.Paid)
	assert.False(t, s.ExitTime.Valid)

	active, err := db.ActiveSession(ctx, "d1", "")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, s.ID, active.ID)

	other, err := db.ActiveSession(ctx, "d1", "a0000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, other)

	closed, err := db.CloseSession(ctx, s.ID, time.Now(), 12.5)
	require.NoError(t, err)
	assert.True(t, closed.Paid)
	assert.Equal(t, 12.5, closed.Amount.Float64)

	_, err = db.CloseSession(ctx, s.ID, time.Now(), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	active, _ = db.ActiveSession(ctx, "d1", "")
	assert.Nil(t, active)

	all, _ := db.ListSessions(ctx)
	assert.Len(t, all, 1)
}

func TestKeyLock_SerialisesSameKey(t *testing.T) {
	k := newKeyLock()
	var inside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("driver")
			defer unlock()
			if inside.Add(1) != 1 {
				t.Error("two holders of the same key")
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()
	assert.Empty(t, k.locks)
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	k := newKeyLock()
	unlockA := k.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked by a")
	}
}
