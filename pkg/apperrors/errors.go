package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reservation flow. Callers match with errors.Is;
// detail types below carry the specifics a buyer needs to adjust their cart.
var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrEventNotFound          = errors.New("event not found")
	ErrTicketTypeNotFound     = errors.New("ticket type not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrTicketNotFound         = errors.New("ticket not found")
	ErrLimitExceeded          = errors.New("per-user purchase limit exceeded")
	ErrSoldOut                = errors.New("ticket type sold out")
	ErrSeatConflict           = errors.New("seat already taken")
	ErrStockReservationFailed = errors.New("stock reservation failed")
	ErrPaymentGateway         = errors.New("payment gateway error")
	ErrStaleOrderState        = errors.New("order is not in a state that allows this transition")
)

// SoldOutError names the ticket type that ran out and how many units remain.
type SoldOutError struct {
	TicketType string
	Requested  int
	Available  int
}

func (e *SoldOutError) Error() string {
	return fmt.Sprintf("ticket type %q sold out: requested %d, %d available", e.TicketType, e.Requested, e.Available)
}

func (e *SoldOutError) Unwrap() error { return ErrSoldOut }

// SeatConflictError names the seat another buyer already holds.
type SeatConflictError struct {
	Row    string
	Number int
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s-%d is already taken", e.Row, e.Number)
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

// LimitExceededError names the ticket type whose per-user cap would be broken.
type LimitExceededError struct {
	TicketType string
	Cap        int
	Owned      int
	Requested  int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("purchase limit for %q is %d per user: already holding %d, requested %d",
		e.TicketType, e.Cap, e.Owned, e.Requested)
}

func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

// SeatNotAvailableError covers seats that exist but cannot be selected for
// this event/ticket type (inactive hardware or a lock restriction).
type SeatNotAvailableError struct {
	Row    string
	Number int
	Reason string
}

func (e *SeatNotAvailableError) Error() string {
	return fmt.Sprintf("seat %s-%d is not available: %s", e.Row, e.Number, e.Reason)
}

func (e *SeatNotAvailableError) Unwrap() error { return ErrSeatConflict }
