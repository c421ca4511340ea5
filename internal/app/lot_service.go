// Package app holds the application services and business logic.
package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"parking/internal/domain"
)

// LotService owns parking lot records: CRUD plus slot transitions.
type LotService struct {
	repo domain.LotRepository
}

// NewLotService creates a LotService backed by the given repository.
func NewLotService(repo domain.LotRepository) *LotService {
	return &LotService{repo: repo}
}

// ListAll returns every lot ordered by name.
func (s *LotService) ListAll(ctx context.Context) ([]domain.ParkingLot, error) {
	return s.repo.ListLots(ctx)
}

// GetByID returns the lot or domain.ErrLotNotFound.
func (s *LotService) GetByID(ctx context.Context, id string) (*domain.ParkingLot, error) {
	return s.repo.GetLot(ctx, id)
}

// Create validates and stores a new lot with every slot free.
func (s *LotService) Create(ctx context.Context, name, location string, hourlyCost float64, capacity int) (*domain.ParkingLot, error) {
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)
	if name == "" {
		return nil, domain.NewValidationError("name is required")
	}
	if location == "" {
		return nil, domain.NewValidationError("location is required")
	}
	if err := validateHourlyCost(hourlyCost); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, domain.NewValidationError("capacity must be a positive integer")
	}
	if capacity > domain.MaxCapacity {
		return nil, domain.NewValidationError(fmt.Sprintf("capacity must not exceed %d", domain.MaxCapacity))
	}
	return s.repo.CreateLot(ctx, domain.NewParkingLot(name, location, hourlyCost, capacity))
}

// UpdateHourlyCost changes the rate charged for future checkouts.
func (s *LotService) UpdateHourlyCost(ctx context.Context, id string, hourlyCost float64) (*domain.ParkingLot, error) {
	if err := validateHourlyCost(hourlyCost); err != nil {
		return nil, err
	}
	return s.repo.UpdateLot(ctx, id, func(l *domain.ParkingLot) error {
		l.HourlyCost = hourlyCost
		return nil
	})
}

// Delete removes a lot and returns its last state. A lot with drivers inside
// cannot be deleted.
func (s *LotService) Delete(ctx context.Context, id string) (*domain.ParkingLot, error) {
	return s.repo.DeleteLot(ctx, id, func(l *domain.ParkingLot) error {
		if l.NumDrivers > 0 {
			return domain.ErrLotInUse
		}
		return nil
	})
}

// Occupy marks slot pos of lot id as taken.
func (s *LotService) Occupy(ctx context.Context, id string, pos int) (*domain.LotInfo, error) {
	lot, err := s.repo.UpdateLot(ctx, id, func(l *domain.ParkingLot) error {
		return l.Occupy(pos)
	})
	if err != nil {
		return nil, err
	}
	return &domain.LotInfo{LotPosition: pos, Occupied: true, LotsOccupied: lot.LotsOccupied}, nil
}

// Release marks slot pos of lot id as free.
func (s *LotService) Release(ctx context.Context, id string, pos int) (*domain.LotInfo, error) {
	lot, err := s.repo.UpdateLot(ctx, id, func(l *domain.ParkingLot) error {
		return l.Release(pos)
	})
	if err != nil {
		return nil, err
	}
	return &domain.LotInfo{LotPosition: pos, Occupied: false, LotsOccupied: lot.LotsOccupied}, nil
}

// OccupancySummary returns the public occupancy figures of a lot.
func (s *LotService) OccupancySummary(ctx context.Context, id string) (*domain.Occupancy, error) {
	lot, err := s.repo.GetLot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.Occupancy{
		Capacity:     lot.Capacity,
		NumDrivers:   lot.NumDrivers,
		LotsOccupied: lot.LotsOccupied,
	}, nil
}

// AdjustDriverCount adds delta to the lot's driver count. Only the session
// service calls it.
func (s *LotService) AdjustDriverCount(ctx context.Context, id string, delta int) (*domain.ParkingLot, error) {
	return s.repo.UpdateLot(ctx, id, func(l *domain.ParkingLot) error {
		return l.AdjustDrivers(delta)
	})
}

func validateHourlyCost(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NewValidationError("hourlyCost must be a non-negative number")
	}
	return nil
}
