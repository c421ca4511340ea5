package domain

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingSession is one driver visit to a lot. It is active while Paid is false.
type ParkingSession struct {
	ID           string     `json:"id"`
	DriverID     string     `json:"driverId"`
	ParkingLotID string     `json:"parkingLotId"`
	EntryTime    time.Time  `json:"entryTime"`
	ExitTime     null.Time  `json:"exitTime"`
	Amount       null.Float `json:"amount"`
	Paid         bool       `json:"paid"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Active reports whether the driver is still checked in.
func (s *ParkingSession) Active() bool { return !s.Paid }

// SessionRepository is the port for parking session persistence.
type SessionRepository interface {
	ListSessions(ctx context.Context) ([]ParkingSession, error)
	// ActiveSession returns the unpaid session of driverID, or nil. An empty
	// lotID matches any lot.
	ActiveSession(ctx context.Context, driverID, lotID string) (*ParkingSession, error)
	CreateSession(ctx context.Context, s *ParkingSession) (*ParkingSession, error)
	CloseSession(ctx context.Context, id string, exitTime time.Time, amount float64) (*ParkingSession, error)
	// WithinDriver runs fn with exclusive access to driverID's sessions.
	// Store calls made with the ctx passed to fn join the same unit of work.
	WithinDriver(ctx context.Context, driverID string, fn func(ctx context.Context) error) error
}
