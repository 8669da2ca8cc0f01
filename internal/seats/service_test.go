package seats

import (
	"context"
	"testing"
	"time"

	"ticketly/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	room  Room
	seats []Seat
}

func (s *stubRepo) GetRoom(context.Context, uuid.UUID) (*Room, error) {
	copied := s.room
	return &copied, nil
}

func (s *stubRepo) GetSeats(context.Context, uuid.UUID) ([]Seat, error) {
	return s.seats, nil
}

func (s *stubRepo) GetSeatByPosition(_ context.Context, _ uuid.UUID, row string, number int) (*Seat, error) {
	for i := range s.seats {
		if s.seats[i].Row == row && s.seats[i].Number == number {
			return &s.seats[i], nil
		}
	}
	return nil, nil
}

type stubOccupancy struct {
	occupied map[string]bool
}

func (s *stubOccupancy) OccupiedSeats(context.Context, uuid.UUID) (map[string]bool, error) {
	return s.occupied, nil
}

func gridFixture(eventID uuid.UUID, vipType uuid.UUID) *stubRepo {
	roomID := uuid.New()
	repo := &stubRepo{room: Room{ID: roomID, Name: "Main Hall"}}

	// A1 locked to the VIP type, A2 locked to the event, B1 inactive,
	// B2 and B3 plain
	repo.seats = []Seat{
		{ID: uuid.New(), RoomID: roomID, Row: "A", Number: 1, IsActive: true,
			Locks: []SeatLock{{EventID: eventID, TicketTypeID: &vipType}}},
		{ID: uuid.New(), RoomID: roomID, Row: "A", Number: 2, IsActive: true,
			Locks: []SeatLock{{EventID: eventID}}},
		{ID: uuid.New(), RoomID: roomID, Row: "B", Number: 1, IsActive: false},
		{ID: uuid.New(), RoomID: roomID, Row: "B", Number: 2, IsActive: true},
		{ID: uuid.New(), RoomID: roomID, Row: "B", Number: 3, IsActive: true},
	}
	return repo
}

func TestRuleFor(t *testing.T) {
	eventID := uuid.New()
	otherEvent := uuid.New()
	vipType := uuid.New()

	t.Run("no locks", func(t *testing.T) {
		seat := &Seat{}
		assert.Equal(t, Unrestricted, RuleFor(seat, eventID).Kind)
	})

	t.Run("lock for another event is invisible", func(t *testing.T) {
		seat := &Seat{Locks: []SeatLock{{EventID: otherEvent, TicketTypeID: &vipType}}}
		assert.Equal(t, Unrestricted, RuleFor(seat, eventID).Kind)
	})

	t.Run("event lock without type", func(t *testing.T) {
		seat := &Seat{Locks: []SeatLock{{EventID: eventID}}}
		rule := RuleFor(seat, eventID)
		assert.Equal(t, RestrictedToEvent, rule.Kind)
		assert.True(t, rule.Allows(uuid.New()))
	})

	t.Run("typed lock wins over blanket lock", func(t *testing.T) {
		seat := &Seat{Locks: []SeatLock{
			{EventID: eventID},
			{EventID: eventID, TicketTypeID: &vipType},
		}}
		rule := RuleFor(seat, eventID)
		require.Equal(t, RestrictedToEventAndType, rule.Kind)
		assert.True(t, rule.Allows(vipType))
		assert.False(t, rule.Allows(uuid.New()))
	})
}

func TestGetSeatMap_EffectiveStatuses(t *testing.T) {
	eventID := uuid.New()
	vipType := uuid.New()
	repo := gridFixture(eventID, vipType)
	occupancy := &stubOccupancy{occupied: map[string]bool{Key("B", 2): true}}

	svc := NewService(repo, occupancy, nil, time.Minute)
	seatMap, err := svc.GetSeatMap(context.Background(), repo.room.ID, eventID)
	require.NoError(t, err)
	require.Len(t, seatMap.Seats, 5)

	byKey := make(map[string]SeatView)
	for _, view := range seatMap.Seats {
		byKey[Key(view.Row, view.Number)] = view
	}

	assert.Equal(t, SeatLocked, byKey["A-1"].Status)
	require.NotNil(t, byKey["A-1"].TicketTypeID)
	assert.Equal(t, vipType.String(), *byKey["A-1"].TicketTypeID)

	assert.Equal(t, SeatAvailable, byKey["A-2"].Status, "event-only lock does not mark the seat for buyers of this event")
	assert.Equal(t, SeatInactive, byKey["B-1"].Status)
	assert.Equal(t, SeatOccupied, byKey["B-2"].Status)
	assert.Equal(t, SeatAvailable, byKey["B-3"].Status)
	assert.Equal(t, "Main Hall", seatMap.RoomName)
}

func TestCheckAssignments(t *testing.T) {
	eventID := uuid.New()
	vipType := uuid.New()
	repo := gridFixture(eventID, vipType)
	svc := NewService(repo, &stubOccupancy{}, nil, time.Minute)

	check := func(row string, number int, typeID uuid.UUID) error {
		return svc.CheckAssignments(context.Background(), repo.room.ID, eventID,
			[]AssignmentCheck{{Row: row, Number: number, TicketTypeID: typeID}})
	}

	t.Run("plain seat passes", func(t *testing.T) {
		assert.NoError(t, check("B", 3, uuid.New()))
	})

	t.Run("unknown seat", func(t *testing.T) {
		err := check("Z", 99, uuid.New())
		var notAvailable *apperrors.SeatNotAvailableError
		require.ErrorAs(t, err, &notAvailable)
		assert.Equal(t, "Z", notAvailable.Row)
	})

	t.Run("inactive seat", func(t *testing.T) {
		err := check("B", 1, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrSeatConflict)
	})

	t.Run("typed lock admits matching type only", func(t *testing.T) {
		assert.NoError(t, check("A", 1, vipType))
		assert.Error(t, check("A", 1, uuid.New()))
	})

	t.Run("occupancy is not checked here", func(t *testing.T) {
		occupied := &stubOccupancy{occupied: map[string]bool{Key("B", 3): true}}
		svcWithOccupied := NewService(repo, occupied, nil, time.Minute)
		assert.NoError(t, svcWithOccupied.CheckAssignments(context.Background(), repo.room.ID, eventID,
			[]AssignmentCheck{{Row: "B", Number: 3, TicketTypeID: uuid.New()}}))
	})

	t.Run("empty assignment list is a no-op", func(t *testing.T) {
		assert.NoError(t, svc.CheckAssignments(context.Background(), repo.room.ID, eventID, nil))
	})
}
