package seats

import (
	"context"
	"fmt"
	"time"

	"ticketly/pkg/apperrors"
	"ticketly/pkg/cache"

	"github.com/google/uuid"
)

// OccupancyProvider reports which seats already carry a non-cancelled ticket
// for an event, keyed by Key(row, number). Implemented by the tickets
// repository (interface declared here to avoid a circular dependency).
type OccupancyProvider interface {
	OccupiedSeats(ctx context.Context, eventID uuid.UUID) (map[string]bool, error)
}

// AssignmentCheck is one requested seat position with the ticket type the
// buyer wants to use it for.
type AssignmentCheck struct {
	Row          string
	Number       int
	TicketTypeID uuid.UUID
}

// Service is the seat directory: read access to the grid plus the
// availability predicate the reservation engine uses before reserving stock.
type Service interface {
	GetSeatMap(ctx context.Context, roomID, eventID uuid.UUID) (*SeatMapResponse, error)
	CheckAssignments(ctx context.Context, roomID, eventID uuid.UUID, assignments []AssignmentCheck) error
	RoomName(ctx context.Context, roomID uuid.UUID) (string, error)
}

type service struct {
	repo       Repository
	occupancy  OccupancyProvider
	cache      cache.Service
	seatMapTTL time.Duration
}

func NewService(repo Repository, occupancy OccupancyProvider, cacheService cache.Service, seatMapTTL time.Duration) Service {
	return &service{
		repo:       repo,
		occupancy:  occupancy,
		cache:      cacheService,
		seatMapTTL: seatMapTTL,
	}
}

// GetSeatMap returns the room grid with each seat's effective status for one
// event. The static grid (rows, numbers, locks) is cached; occupancy is
// always read fresh because it changes with every sale.
func (s *service) GetSeatMap(ctx context.Context, roomID, eventID uuid.UUID) (*SeatMapResponse, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	grid, err := s.loadGrid(ctx, roomID)
	if err != nil {
		return nil, err
	}

	occupied, err := s.occupancy.OccupiedSeats(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seat occupancy: %w", err)
	}

	views := make([]SeatView, 0, len(grid))
	for i := range grid {
		seat := &grid[i]
		view := SeatView{
			ID:     seat.ID.String(),
			Row:    seat.Row,
			Number: seat.Number,
			Status: SeatAvailable,
		}

		rule := RuleFor(seat, eventID)
		if rule.Kind == RestrictedToEventAndType {
			id := rule.TicketTypeID.String()
			view.TicketTypeID = &id
			view.Status = SeatLocked
		}

		switch {
		case !seat.IsActive:
			view.Status = SeatInactive
		case occupied[Key(seat.Row, seat.Number)]:
			view.Status = SeatOccupied
		}

		views = append(views, view)
	}

	return &SeatMapResponse{
		RoomID:   room.ID.String(),
		RoomName: room.Name,
		EventID:  eventID.String(),
		Seats:    views,
	}, nil
}

// CheckAssignments validates the structural side of seat selection: the seat
// exists, its hardware is active, and the event's lock rules permit the
// requested ticket type. Occupancy is deliberately not checked here; the
// reservation engine does its own occupancy pre-check and the storage-level
// unique index is the authoritative guard.
func (s *service) CheckAssignments(ctx context.Context, roomID, eventID uuid.UUID, assignments []AssignmentCheck) error {
	if len(assignments) == 0 {
		return nil
	}

	grid, err := s.loadGrid(ctx, roomID)
	if err != nil {
		return err
	}

	byKey := make(map[string]*Seat, len(grid))
	for i := range grid {
		byKey[Key(grid[i].Row, grid[i].Number)] = &grid[i]
	}

	for _, a := range assignments {
		seat, ok := byKey[Key(a.Row, a.Number)]
		if !ok {
			return &apperrors.SeatNotAvailableError{Row: a.Row, Number: a.Number, Reason: "no such seat in this room"}
		}
		if !seat.IsActive {
			return &apperrors.SeatNotAvailableError{Row: a.Row, Number: a.Number, Reason: "seat is out of service"}
		}
		if !RuleFor(seat, eventID).Allows(a.TicketTypeID) {
			return &apperrors.SeatNotAvailableError{Row: a.Row, Number: a.Number, Reason: "seat is reserved for a different ticket type"}
		}
	}

	return nil
}

// RoomName resolves a room's display name for ticket snapshots.
func (s *service) RoomName(ctx context.Context, roomID uuid.UUID) (string, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	return room.Name, nil
}

// loadGrid fetches the static seat grid, cache-aside. Seat structure is
// immutable once created, so a stale TTL window is harmless.
func (s *service) loadGrid(ctx context.Context, roomID uuid.UUID) ([]Seat, error) {
	if s.cache == nil {
		return s.repo.GetSeats(ctx, roomID)
	}

	var grid []Seat
	key := fmt.Sprintf("seatmap:grid:%s", roomID)
	err := s.cache.GetOrSet(ctx, key, s.seatMapTTL, func() (interface{}, error) {
		return s.repo.GetSeats(ctx, roomID)
	}, &grid)
	if err != nil {
		// Cache trouble must not block seat reads
		return s.repo.GetSeats(ctx, roomID)
	}
	return grid, nil
}
