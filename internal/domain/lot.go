// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// ParkingLot is a lot with a fixed number of slots.
type ParkingLot struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	HourlyCost   float64   `json:"hourlyCost"`
	Capacity     int       `json:"capacity"`
	Lots         []bool    `json:"lots"`
	LotsOccupied int       `json:"lotsOccupied"`
	NumDrivers   int       `json:"numDrivers"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MaxCapacity bounds the number of slots in one lot.
const MaxCapacity = 10000

// NewParkingLot returns a lot with every slot free and zero counters.
func NewParkingLot(name, location string, hourlyCost float64, capacity int) *ParkingLot {
	return &ParkingLot{
		Name:       name,
		Location:   location,
		HourlyCost: hourlyCost,
		Capacity:   capacity,
		Lots:       make([]bool, capacity),
	}
}

// Clone returns a deep copy so callers never share the slot slice.
func (l *ParkingLot) Clone() *ParkingLot {
	c := *l
	c.Lots = append([]bool(nil), l.Lots...)
	return &c
}

// Occupy marks a slot as taken.
func (l *ParkingLot) Occupy(pos int) error {
	if pos < 0 || pos >= len(l.Lots) {
		return ErrSlotOutOfRange
	}
	if l.Lots[pos] {
		return ErrAlreadyOccupied
	}
	l.Lots[pos] = true
	l.LotsOccupied++
	return nil
}

// Release marks a slot as free.
func (l *ParkingLot) Release(pos int) error {
	if pos < 0 || pos >= len(l.Lots) {
		return ErrSlotOutOfRange
	}
	if !l.Lots[pos] {
		return ErrAlreadyReleased
	}
	l.Lots[pos] = false
	l.LotsOccupied--
	return nil
}

// AdjustDrivers applies delta to NumDrivers.
func (l *ParkingLot) AdjustDrivers(delta int) error {
	if l.NumDrivers+delta < 0 {
		return ErrNegativeDrivers
	}
	l.NumDrivers += delta
	return nil
}

// LotInfo is the result of a slot transition.
type LotInfo struct {
	LotPosition  int  `json:"lotPosition"`
	Occupied     bool `json:"occupied"`
	LotsOccupied int  `json:"lotsOccupied"`
}

// Occupancy is the public occupancy summary of a lot.
type Occupancy struct {
	Capacity     int `json:"capacity"`
	NumDrivers   int `json:"numDrivers"`
	LotsOccupied int `json:"lotsOccupied"`
}

// LotRepository is the port for parking lot persistence.
//
// UpdateLot and DeleteLot run their callback on the stored record while
// holding exclusive access to it; a callback error aborts without writing.
type LotRepository interface {
	CreateLot(ctx context.Context, lot *ParkingLot) (*ParkingLot, error)
	GetLot(ctx context.Context, id string) (*ParkingLot, error)
	ListLots(ctx context.Context) ([]ParkingLot, error)
	UpdateLot(ctx context.Context, id string, fn func(*ParkingLot) error) (*ParkingLot, error)
	DeleteLot(ctx context.Context, id string, guard func(*ParkingLot) error) (*ParkingLot, error)
}
