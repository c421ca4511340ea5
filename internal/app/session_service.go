package app

import (
	"context"
	"strings"
	"time"

	"parking/internal/domain"
)

// SessionService owns parking sessions: check-in, check-out and billing.
type SessionService struct {
	sessions domain.SessionRepository
	lots     *LotService
	now      func() time.Time
}

// NewSessionService creates a SessionService. Driver counts are changed
// through lots.
func NewSessionService(sessions domain.SessionRepository, lots *LotService) *SessionService {
	return &SessionService{sessions: sessions, lots: lots, now: time.Now}
}

// WithClock replaces the time source used for entry and exit times.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// ListAll returns every session in creation order.
func (s *SessionService) ListAll(ctx context.Context) ([]domain.ParkingSession, error) {
	return s.sessions.ListSessions(ctx)
}

// FindActiveByDriver returns the driver's unpaid session in any lot, or nil.
func (s *SessionService) FindActiveByDriver(ctx context.Context, driverID string) (*domain.ParkingSession, error) {
	return s.sessions.ActiveSession(ctx, driverID, "")
}

// FindActiveByDriverAndLot returns the driver's unpaid session in lotID, or nil.
func (s *SessionService) FindActiveByDriverAndLot(ctx context.Context, driverID, lotID string) (*domain.ParkingSession, error) {
	return s.sessions.ActiveSession(ctx, driverID, lotID)
}

// StartSession checks a driver into a lot.
func (s *SessionService) StartSession(ctx context.Context, driverID, lotID string) (*domain.ParkingSession, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, domain.NewValidationError("driverId is required")
	}

	var started *domain.ParkingSession
	err := s.sessions.WithinDriver(ctx, driverID, func(ctx context.Context) error {
		if _, err := s.lots.GetByID(ctx, lotID); err != nil {
			return err
		}

		// Same-lot is checked first: it is the more specific condition.
		here, err := s.FindActiveByDriverAndLot(ctx, driverID, lotID)
		if err != nil {
			return err
		}
		if here != nil {
			return domain.ErrAlreadyInLot
		}
		elsewhere, err := s.FindActiveByDriver(ctx, driverID)
		if err != nil {
			return err
		}
		if elsewhere != nil {
			return domain.ErrSessionElsewhere
		}

		if _, err := s.lots.AdjustDriverCount(ctx, lotID, 1); err != nil {
			return err
		}
		started, err = s.sessions.CreateSession(ctx, &domain.ParkingSession{
			DriverID:     driverID,
			ParkingLotID: lotID,
			EntryTime:    s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// EndSession checks a driver out of a lot and bills the stay.
func (s *SessionService) EndSession(ctx context.Context, driverID, lotID string) (*domain.ParkingSession, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, domain.NewValidationError("driverId is required")
	}

	var ended *domain.ParkingSession
	err := s.sessions.WithinDriver(ctx, driverID, func(ctx context.Context) error {
		lot, err := s.lots.GetByID(ctx, lotID)
		if err != nil {
			return err
		}
		active, err := s.FindActiveByDriverAndLot(ctx, driverID, lotID)
		if err != nil {
			return err
		}
		if active == nil {
			return domain.ErrInvalidSession
		}

		exit := s.now().UTC()
		amount := domain.Charge(active.EntryTime, exit, lot.HourlyCost)

		if _, err := s.lots.AdjustDriverCount(ctx, lotID, -1); err != nil {
			return err
		}
		ended, err = s.sessions.CloseSession(ctx, active.ID, exit, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ended, nil
}
