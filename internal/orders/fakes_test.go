package orders_test

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/orders"
	"ticketly/internal/payments"
	"ticketly/internal/seats"
	"ticketly/internal/tickets"
	"ticketly/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The fakes below reproduce the storage guarantees the engine relies on:
// mutex-serialized conditional stock updates, unique seat and code
// enforcement on ticket insert, and status-guarded order transitions.

type fakeEventsRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]events.Event
	types  map[uuid.UUID]events.TicketType
}

func newFakeEventsRepo() *fakeEventsRepo {
	return &fakeEventsRepo{
		events: make(map[uuid.UUID]events.Event),
		types:  make(map[uuid.UUID]events.TicketType),
	}
}

func (f *fakeEventsRepo) addEvent(e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = e
	for _, tt := range e.TicketTypes {
		f.types[tt.ID] = tt
	}
}

func (f *fakeEventsRepo) sold(typeID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types[typeID].Sold
}

func (f *fakeEventsRepo) GetEvent(_ context.Context, id uuid.UUID) (*events.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	copied := e
	return &copied, nil
}

func (f *fakeEventsRepo) GetTicketType(_ context.Context, eventID, typeID uuid.UUID) (*events.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.types[typeID]
	if !ok || tt.EventID != eventID {
		return nil, apperrors.ErrTicketTypeNotFound
	}
	copied := tt
	return &copied, nil
}

func (f *fakeEventsRepo) GetTicketTypes(_ context.Context, eventID uuid.UUID) ([]events.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []events.TicketType
	for _, tt := range f.types {
		if tt.EventID == eventID {
			list = append(list, tt)
		}
	}
	return list, nil
}

// ReserveStock mirrors the conditional-UPDATE transaction: all lines succeed
// under one lock or none do.
func (f *fakeEventsRepo) ReserveStock(_ context.Context, eventID uuid.UUID, lines []events.StockLine) error {
	if len(lines) == 0 {
		return apperrors.ErrInvalidRequest
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, line := range lines {
		tt, ok := f.types[line.TicketTypeID]
		if !ok || tt.EventID != eventID {
			return apperrors.ErrTicketTypeNotFound
		}
		if tt.Capacity != nil && tt.Sold+line.Quantity > *tt.Capacity {
			return &apperrors.SoldOutError{
				TicketType: tt.Name,
				Requested:  line.Quantity,
				Available:  tt.Remaining(),
			}
		}
	}
	for _, line := range lines {
		tt := f.types[line.TicketTypeID]
		tt.Sold += line.Quantity
		f.types[line.TicketTypeID] = tt
	}
	return nil
}

func (f *fakeEventsRepo) ReleaseStock(_ context.Context, eventID uuid.UUID, lines []events.StockLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range lines {
		tt, ok := f.types[line.TicketTypeID]
		if !ok || tt.EventID != eventID {
			continue
		}
		if tt.Sold >= line.Quantity {
			tt.Sold -= line.Quantity
			f.types[line.TicketTypeID] = tt
		}
	}
	return nil
}

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets []tickets.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{}
}

// CreateBatch enforces the two unique indexes: ticket code globally, seat per
// event among non-cancelled tickets. Violations surface as
// gorm.ErrDuplicatedKey exactly like the translated Postgres error.
func (f *fakeTicketStore) CreateBatch(_ context.Context, batch []tickets.Ticket) error {
	if len(batch) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	codes := make(map[string]bool)
	seatKeys := make(map[string]bool)
	for _, existing := range f.tickets {
		codes[existing.Code] = true
		if existing.Status != tickets.StatusCancelled && existing.SeatRow != "" {
			seatKeys[fmt.Sprintf("%s:%s-%d", existing.EventID, existing.SeatRow, existing.SeatNumber)] = true
		}
	}
	for _, ticket := range batch {
		if codes[ticket.Code] {
			return gorm.ErrDuplicatedKey
		}
		codes[ticket.Code] = true
		if ticket.SeatRow != "" {
			key := fmt.Sprintf("%s:%s-%d", ticket.EventID, ticket.SeatRow, ticket.SeatNumber)
			if seatKeys[key] {
				return gorm.ErrDuplicatedKey
			}
			seatKeys[key] = true
		}
	}

	f.tickets = append(f.tickets, batch...)
	return nil
}

func (f *fakeTicketStore) ListByOrder(_ context.Context, orderID uuid.UUID) ([]tickets.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []tickets.Ticket
	for _, ticket := range f.tickets {
		if ticket.OrderID == orderID {
			list = append(list, ticket)
		}
	}
	return list, nil
}

func (f *fakeTicketStore) GetByCode(_ context.Context, code string) (*tickets.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tickets {
		if f.tickets[i].Code == code {
			copied := f.tickets[i]
			return &copied, nil
		}
	}
	return nil, apperrors.ErrTicketNotFound
}

func (f *fakeTicketStore) CountActiveByBuyerAndType(_ context.Context, eventID, typeID uuid.UUID, buyerUserID *uuid.UUID, buyerEmail string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, ticket := range f.tickets {
		if ticket.EventID != eventID || ticket.TicketTypeID != typeID || ticket.Status == tickets.StatusCancelled {
			continue
		}
		if buyerUserID != nil {
			if ticket.BuyerUserID != nil && *ticket.BuyerUserID == *buyerUserID {
				count++
			}
		} else if ticket.BuyerUserID == nil && ticket.BuyerEmail == buyerEmail {
			count++
		}
	}
	return count, nil
}

func (f *fakeTicketStore) OccupiedSeats(_ context.Context, eventID uuid.UUID) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	occupied := make(map[string]bool)
	for _, ticket := range f.tickets {
		if ticket.EventID == eventID && ticket.Status != tickets.StatusCancelled && ticket.SeatRow != "" {
			occupied[seats.Key(ticket.SeatRow, ticket.SeatNumber)] = true
		}
	}
	return occupied, nil
}

func (f *fakeTicketStore) SeatsTaken(ctx context.Context, eventID uuid.UUID, keys []tickets.SeatAssignment) ([]tickets.SeatAssignment, error) {
	occupied, err := f.OccupiedSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}
	var taken []tickets.SeatAssignment
	for _, key := range keys {
		if occupied[seats.Key(key.Row, key.Number)] {
			taken = append(taken, key)
		}
	}
	return taken, nil
}

func (f *fakeTicketStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]orders.Order
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]orders.Order)}
}

func (f *fakeOrderRepo) Create(_ context.Context, order *orders.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *order
	stored.Items = append([]orders.OrderItem(nil), order.Items...)
	stored.Seats = append([]orders.OrderSeat(nil), order.Seats...)
	stored.CreatedAt = time.Now().UTC()
	f.orders[order.ID] = stored
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	copied := order
	copied.Items = append([]orders.OrderItem(nil), order.Items...)
	copied.Seats = append([]orders.OrderSeat(nil), order.Seats...)
	return &copied, nil
}

func (f *fakeOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []orders.Order
	for _, order := range f.orders {
		if order.UserID != nil && *order.UserID == userID {
			list = append(list, order)
		}
	}
	return list, nil
}

func (f *fakeOrderRepo) MarkPaid(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return f.transition(id, orders.StatusPending, orders.StatusPaid, at), nil
}

func (f *fakeOrderRepo) MarkCancelled(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return f.transition(id, orders.StatusPending, orders.StatusCancelled, at), nil
}

func (f *fakeOrderRepo) RevertPaid(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return f.transition(id, orders.StatusPaid, orders.StatusCancelled, at), nil
}

func (f *fakeOrderRepo) transition(id uuid.UUID, from, to orders.Status, at time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return false
	}
	order.Status = to
	switch to {
	case orders.StatusPaid:
		order.PaidAt = &at
	case orders.StatusCancelled:
		order.CancelledAt = &at
	}
	f.orders[id] = order
	return true
}

func (f *fakeOrderRepo) FindExpiredPending(_ context.Context, cutoff time.Time, limit int) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []orders.Order
	for _, order := range f.orders {
		if order.Status == orders.StatusPending && order.CreatedAt.Before(cutoff) {
			copied := order
			copied.Items = append([]orders.OrderItem(nil), order.Items...)
			list = append(list, copied)
			if len(list) == limit {
				break
			}
		}
	}
	return list, nil
}

func (f *fakeOrderRepo) backdate(id uuid.UUID, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := f.orders[id]
	order.CreatedAt = time.Now().UTC().Add(-age)
	f.orders[id] = order
}

func (f *fakeOrderRepo) status(id uuid.UUID) orders.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id].Status
}

// fakeSeatDirectory passes every structural check unless a seat is listed as
// blocked, mirroring the real directory's verdicts.
type fakeSeatDirectory struct {
	blocked map[string]string // Key(row, number) -> reason
}

func (f *fakeSeatDirectory) GetSeatMap(context.Context, uuid.UUID, uuid.UUID) (*seats.SeatMapResponse, error) {
	return nil, nil
}

func (f *fakeSeatDirectory) CheckAssignments(_ context.Context, _, _ uuid.UUID, assignments []seats.AssignmentCheck) error {
	for _, a := range assignments {
		if reason, bad := f.blocked[seats.Key(a.Row, a.Number)]; bad {
			return &apperrors.SeatNotAvailableError{Row: a.Row, Number: a.Number, Reason: reason}
		}
	}
	return nil
}

func (f *fakeSeatDirectory) RoomName(context.Context, uuid.UUID) (string, error) {
	return "Main Hall", nil
}

type fakeGateway struct {
	mu         sync.Mutex
	buildErr   error
	buildCalls int
}

func (f *fakeGateway) BuildRedirectURL(_ context.Context, req payments.PaymentRequest) (string, error) {
	f.mu.Lock()
	f.buildCalls++
	f.mu.Unlock()
	if f.buildErr != nil {
		return "", f.buildErr
	}
	return "https://pay.test/redirect?order=" + req.OrderID, nil
}

// VerifyCallback treats sig=ok as a valid signature and status=00 as success,
// the same shape the HMAC gateway produces.
func (f *fakeGateway) VerifyCallback(values url.Values) (*payments.CallbackResult, error) {
	amount, err := decimal.NewFromString(values.Get("amount"))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed amount", apperrors.ErrPaymentGateway)
	}
	valid := values.Get("sig") == "ok"
	return &payments.CallbackResult{
		OrderID:        values.Get("order_ref"),
		Amount:         amount,
		Success:        valid && values.Get("status") == "00",
		SignatureValid: valid,
	}, nil
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buildCalls
}

type fakeSink struct {
	mu         sync.Mutex
	issued     int
	activities []string
}

func (f *fakeSink) NotifyTicketsIssued(_ context.Context, _, _ string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued += count
	return nil
}

func (f *fakeSink) RecordActivity(_ context.Context, kind, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, kind)
	return nil
}
