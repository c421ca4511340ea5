package domain

import "net/http"

// Error is a business failure that carries the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewValidationError returns a 400 error with the given message.
func NewValidationError(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

var (
	// ErrLotNotFound indicates that no parking lot matches the id.
	ErrLotNotFound = &Error{Status: http.StatusNotFound, Message: "Parking lot not found"}
	// ErrInvalidID indicates an id that is not well formed for the store.
	ErrInvalidID = &Error{Status: http.StatusInternalServerError, Message: "Invalid identifier"}
	// ErrSlotOutOfRange indicates a slot position outside [0, capacity).
	ErrSlotOutOfRange = &Error{Status: http.StatusNotFound, Message: "This lot number does not exist"}
	// ErrAlreadyOccupied indicates an occupy on a slot that is already taken.
	ErrAlreadyOccupied = &Error{Status: http.StatusBadRequest, Message: "Lot is already occupied"}
	// ErrAlreadyReleased indicates a release on a slot that is already free.
	ErrAlreadyReleased = &Error{Status: http.StatusBadRequest, Message: "Lot is already unoccupied"}
	// ErrLotInUse indicates a delete on a lot that still has drivers inside.
	ErrLotInUse = &Error{Status: http.StatusConflict, Message: "Parking lot still has active drivers"}
	// ErrAlreadyInLot indicates a check-in by a driver already inside the same lot.
	ErrAlreadyInLot = &Error{Status: http.StatusConflict, Message: "Driver is already within parking lot"}
	// ErrSessionElsewhere indicates a check-in by a driver active in another lot.
	ErrSessionElsewhere = &Error{Status: http.StatusNotAcceptable, Message: "Driver is already within another parking lot"}
	// ErrInvalidSession indicates a check-out without a matching active session.
	ErrInvalidSession = &Error{Status: http.StatusBadRequest, Message: "Invalid parking session"}
	// ErrNegativeDrivers guards numDrivers against going below zero.
	ErrNegativeDrivers = &Error{Status: http.StatusInternalServerError, Message: "Driver count cannot be negative"}
)
