package orders

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/notifications"
	"ticketly/internal/payments"
	"ticketly/internal/seats"
	"ticketly/internal/tickets"
	"ticketly/pkg/apperrors"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceConfig carries the engine's non-storage settings.
type ServiceConfig struct {
	// ReturnURL is where the gateway sends the buyer (and the callback) after
	// a payment attempt.
	ReturnURL string

	// PaymentTimeout is how long an online order may stay pending before the
	// sweeper reclaims its stock.
	PaymentTimeout time.Duration

	// SweepBatchSize caps how many expired orders one sweep processes.
	SweepBatchSize int
}

// Service is the reservation engine: the single entry point for placing
// orders (self-serve and operator grants), the payment-callback handler and
// the expiry sweep. All stock and seat guarantees are enforced here or in the
// storage layer it drives; controllers only translate errors.
type Service interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest, clientIP string) (*PlaceOrderResult, error)
	HandlePaymentCallback(ctx context.Context, values url.Values) (*CallbackOutcome, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDetailResponse, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]Order, error)
	SweepExpiredOrders(ctx context.Context) (int, error)
}

type service struct {
	repo       Repository
	eventsRepo events.Repository
	ticketRepo tickets.Repository
	issuer     tickets.Issuer
	seatSvc    seats.Service
	gateway    payments.Gateway
	sink       notifications.Sink
	config     ServiceConfig
	log        *logger.Logger
}

func NewService(
	repo Repository,
	eventsRepo events.Repository,
	ticketRepo tickets.Repository,
	issuer tickets.Issuer,
	seatSvc seats.Service,
	gateway payments.Gateway,
	sink notifications.Sink,
	config ServiceConfig,
	log *logger.Logger,
) Service {
	return &service{
		repo:       repo,
		eventsRepo: eventsRepo,
		ticketRepo: ticketRepo,
		issuer:     issuer,
		seatSvc:    seatSvc,
		gateway:    gateway,
		sink:       sink,
		config:     config,
		log:        log,
	}
}

// validatedOrder is the outcome of the side-effect-free validation phase:
// everything resolved, snapshotted and merged, ready to reserve stock.
type validatedOrder struct {
	event  *events.Event
	buyer  tickets.BuyerSnapshot
	items  []OrderItem
	seats  []OrderSeat
	stock  []events.StockLine
	total  float64
	method PaymentMethod
}

// PlaceOrder runs the reservation sequence: pure validation first (no side
// effects on any failure), then the atomic stock reservation, then order
// creation, then either immediate issuance (free) or a gateway redirect
// (online). Every failure after the stock step releases exactly what was
// reserved.
func (s *service) PlaceOrder(ctx context.Context, req PlaceOrderRequest, clientIP string) (*PlaceOrderResult, error) {
	v, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.eventsRepo.ReserveStock(ctx, v.event.ID, v.stock); err != nil {
		return nil, err
	}

	// Side effects exist from here on; every failure path must release the
	// stock reserved above.
	now := time.Now().UTC()
	order := &Order{
		ID:            uuid.New(),
		EventID:       v.event.ID,
		UserID:        v.buyer.UserID,
		BuyerName:     v.buyer.Name,
		BuyerEmail:    v.buyer.Email,
		Items:         v.items,
		Seats:         v.seats,
		TotalAmount:   v.total,
		PaymentMethod: v.method,
		Status:        StatusPending,
	}
	if v.method == PaymentFree {
		order.Status = StatusPaid
		order.PaidAt = &now
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	for i := range order.Seats {
		order.Seats[i].OrderID = order.ID
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.releaseStock(ctx, v.event.ID, v.stock, order.ID.String())
		return nil, err
	}

	s.log.LogOrderPlaced(ctx, order.ID.String(), v.event.ID.String(), v.total, string(v.method))

	if v.method == PaymentFree {
		issued, err := s.issueForOrder(ctx, order, v.event, v.buyer)
		if err != nil {
			if _, revertErr := s.repo.RevertPaid(ctx, order.ID, time.Now().UTC()); revertErr != nil {
				s.log.ErrorWithContext(ctx, "failed to cancel order after issuance failure", revertErr,
					map[string]interface{}{"order_id": order.ID.String()})
			}
			s.releaseStock(ctx, v.event.ID, v.stock, order.ID.String())
			return nil, err
		}
		s.notifyIssued(ctx, v.buyer.Email, v.event.Title, len(issued))
		return &PlaceOrderResult{Order: order, Tickets: issued}, nil
	}

	paymentURL, err := s.gateway.BuildRedirectURL(ctx, payments.PaymentRequest{
		OrderID:   order.ID.String(),
		Amount:    decimal.NewFromFloat(v.total),
		ReturnURL: s.config.ReturnURL,
		ClientIP:  clientIP,
	})
	if err != nil {
		// The order stays pending and the stock stays reserved; the buyer can
		// retry payment until the sweeper reclaims it.
		return &PlaceOrderResult{Order: order},
			fmt.Errorf("%w: order created, payment pending", err)
	}

	return &PlaceOrderResult{Order: order, PaymentURL: paymentURL}, nil
}

// validate performs the fail-fast phase. It touches storage read-only and
// leaves no side effects regardless of which check fails.
func (s *service) validate(ctx context.Context, req PlaceOrderRequest) (*validatedOrder, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no line items", apperrors.ErrInvalidRequest)
	}

	buyer, err := resolveBuyer(req)
	if err != nil {
		return nil, err
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed event id", apperrors.ErrInvalidRequest)
	}
	event, err := s.eventsRepo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	v := &validatedOrder{event: event, buyer: buyer}
	totalUnits := 0
	for _, line := range lines {
		tt, err := s.eventsRepo.GetTicketType(ctx, eventID, line.TicketTypeID)
		if err != nil {
			return nil, err
		}

		if tt.HasUserCap() {
			owned, err := s.ticketRepo.CountActiveByBuyerAndType(ctx, eventID, tt.ID, buyer.UserID, buyer.Email)
			if err != nil {
				return nil, err
			}
			if owned+line.Quantity > *tt.PerUserCap {
				return nil, &apperrors.LimitExceededError{
					TicketType: tt.Name,
					Cap:        *tt.PerUserCap,
					Owned:      owned,
					Requested:  line.Quantity,
				}
			}
		}

		// Advisory capacity pre-check; the conditional update in ReserveStock
		// is the authoritative guard.
		if !tt.Unlimited() && line.Quantity > tt.Remaining() {
			return nil, &apperrors.SoldOutError{
				TicketType: tt.Name,
				Requested:  line.Quantity,
				Available:  tt.Remaining(),
			}
		}

		v.items = append(v.items, OrderItem{
			ID:           uuid.New(),
			TicketTypeID: tt.ID,
			TypeName:     tt.Name,
			Quantity:     line.Quantity,
			UnitPrice:    tt.Price,
		})
		v.stock = append(v.stock, line)
		v.total += tt.Price * float64(line.Quantity)
		totalUnits += line.Quantity
	}

	if len(req.SeatAssignments) > 0 {
		seatRows, err := s.validateSeats(ctx, event, req.SeatAssignments, totalUnits)
		if err != nil {
			return nil, err
		}
		v.seats = seatRows
	}

	switch {
	case req.PaymentMethod == string(PaymentFree), v.total == 0:
		v.method = PaymentFree
	default:
		v.method = PaymentOnline
	}

	return v, nil
}

// validateSeats checks the requested seats structurally (exist, active, lock
// rules) and against current occupancy. The occupancy read is a pre-check
// with an acknowledged race window; the unique index on non-cancelled tickets
// is the authoritative guard and issuance compensates when it loses.
func (s *service) validateSeats(ctx context.Context, event *events.Event, reqSeats []SeatAssignmentRequest, totalUnits int) ([]OrderSeat, error) {
	if event.RoomID == nil {
		return nil, fmt.Errorf("%w: event has no seated room", apperrors.ErrInvalidRequest)
	}
	if len(reqSeats) > totalUnits {
		return nil, fmt.Errorf("%w: more seats than tickets requested", apperrors.ErrInvalidRequest)
	}

	checks := make([]seats.AssignmentCheck, 0, len(reqSeats))
	seatRows := make([]OrderSeat, 0, len(reqSeats))
	seen := make(map[string]bool, len(reqSeats))
	for _, a := range reqSeats {
		typeID, err := uuid.Parse(a.TicketTypeID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed ticket type id on seat %s-%d", apperrors.ErrInvalidRequest, a.Row, a.Number)
		}
		key := seats.Key(a.Row, a.Number)
		if seen[key] {
			return nil, fmt.Errorf("%w: seat %s-%d requested twice", apperrors.ErrInvalidRequest, a.Row, a.Number)
		}
		seen[key] = true
		checks = append(checks, seats.AssignmentCheck{Row: a.Row, Number: a.Number, TicketTypeID: typeID})
		seatRows = append(seatRows, OrderSeat{
			ID:           uuid.New(),
			SeatRow:      a.Row,
			SeatNumber:   a.Number,
			TicketTypeID: typeID,
		})
	}

	if err := s.seatSvc.CheckAssignments(ctx, *event.RoomID, event.ID, checks); err != nil {
		return nil, err
	}

	occupied, err := s.ticketRepo.OccupiedSeats(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	for _, seat := range seatRows {
		if occupied[seats.Key(seat.SeatRow, seat.SeatNumber)] {
			return nil, &apperrors.SeatConflictError{Row: seat.SeatRow, Number: seat.SeatNumber}
		}
	}

	return seatRows, nil
}

// HandlePaymentCallback is the asynchronous confirmation path. Idempotent:
// replays of a successful payload find the order already PAID and return the
// existing tickets without minting new ones. Failed or unverifiable payloads
// cancel the order and release its stock, once.
func (s *service) HandlePaymentCallback(ctx context.Context, values url.Values) (*CallbackOutcome, error) {
	result, err := s.gateway.VerifyCallback(values)
	if err != nil {
		return nil, err
	}

	orderID, err := uuid.Parse(result.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: callback order reference is not an order id", apperrors.ErrPaymentGateway)
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	confirmed := result.Success && result.Amount.Equal(decimal.NewFromFloat(order.TotalAmount))
	if !confirmed {
		return s.cancelAfterFailedPayment(ctx, order, result)
	}

	switch order.Status {
	case StatusPaid:
		issued, err := s.ticketRepo.ListByOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		return &CallbackOutcome{Order: order, Paid: true, Tickets: issued, AlreadyProcessed: true}, nil
	case StatusCancelled:
		s.log.LogStaleTransition(ctx, order.ID.String(), "confirm")
		return nil, fmt.Errorf("%w: order already cancelled", apperrors.ErrStaleOrderState)
	}

	ok, err := s.repo.MarkPaid(ctx, order.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against another callback or the sweeper. Re-read to
		// tell which.
		current, err := s.repo.GetByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == StatusPaid {
			issued, err := s.ticketRepo.ListByOrder(ctx, order.ID)
			if err != nil {
				return nil, err
			}
			return &CallbackOutcome{Order: current, Paid: true, Tickets: issued, AlreadyProcessed: true}, nil
		}
		s.log.LogStaleTransition(ctx, order.ID.String(), "confirm")
		return nil, fmt.Errorf("%w: order already cancelled", apperrors.ErrStaleOrderState)
	}
	order.Status = StatusPaid

	event, err := s.eventsRepo.GetEvent(ctx, order.EventID)
	if err != nil {
		return nil, err
	}
	issued, err := s.issueForOrder(ctx, order, event, s.buyerSnapshot(order))
	if err != nil {
		// The seat snapshot lost a race since the order was placed. The buyer
		// paid, so this is loud: cancel, release stock and surface the
		// conflict for manual follow-up.
		if _, revertErr := s.repo.RevertPaid(ctx, order.ID, time.Now().UTC()); revertErr != nil {
			s.log.ErrorWithContext(ctx, "failed to cancel paid order after issuance failure", revertErr,
				map[string]interface{}{"order_id": order.ID.String()})
		}
		s.releaseStock(ctx, order.EventID, stockLinesOf(order), order.ID.String())
		s.log.ErrorWithContext(ctx, "issuance failed for confirmed payment", err,
			map[string]interface{}{"order_id": order.ID.String()})
		return nil, err
	}

	s.log.LogPaymentConfirmed(ctx, order.ID.String(), len(issued))
	s.notifyIssued(ctx, s.buyerSnapshot(order).Email, event.Title, len(issued))

	return &CallbackOutcome{Order: order, Paid: true, Tickets: issued}, nil
}

// cancelAfterFailedPayment handles denied payments and unverifiable payloads:
// one guarded cancel plus stock release; replays and races are no-ops.
func (s *service) cancelAfterFailedPayment(ctx context.Context, order *Order, result *payments.CallbackResult) (*CallbackOutcome, error) {
	ok, err := s.repo.MarkCancelled(ctx, order.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.LogStaleTransition(ctx, order.ID.String(), "cancel")
		return &CallbackOutcome{Order: order, Paid: false, AlreadyProcessed: true}, nil
	}
	order.Status = StatusCancelled

	s.releaseStock(ctx, order.EventID, stockLinesOf(order), order.ID.String())

	reason := "payment denied"
	if !result.SignatureValid {
		reason = "callback signature invalid"
	}
	s.log.LogOrderCancelled(ctx, order.ID.String(), reason)
	s.recordActivity(ctx, "order_cancelled", fmt.Sprintf("order %s cancelled: %s", order.ID, reason))

	return &CallbackOutcome{Order: order, Paid: false}, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDetailResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	issued, err := s.ticketRepo.ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderDetailResponse{Order: order, Tickets: issued}, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SweepExpiredOrders cancels pending orders older than the payment timeout
// and releases their stock. Each cancel is status-guarded, so a callback that
// lands mid-sweep wins or loses cleanly per order.
func (s *service) SweepExpiredOrders(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.config.PaymentTimeout)
	expired, err := s.repo.FindExpiredPending(ctx, cutoff, s.config.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range expired {
		order := &expired[i]
		ok, err := s.repo.MarkCancelled(ctx, order.ID, time.Now().UTC())
		if err != nil {
			s.log.ErrorWithContext(ctx, "sweep failed to cancel order", err,
				map[string]interface{}{"order_id": order.ID.String()})
			continue
		}
		if !ok {
			s.log.LogStaleTransition(ctx, order.ID.String(), "expire")
			continue
		}

		s.releaseStock(ctx, order.EventID, stockLinesOf(order), order.ID.String())
		s.log.LogOrderCancelled(ctx, order.ID.String(), "payment timeout")
		swept++
	}
	return swept, nil
}

// issueForOrder translates the order's stored snapshots into an issuance
// request. Never reads live prices or seat data.
func (s *service) issueForOrder(ctx context.Context, order *Order, event *events.Event, buyer tickets.BuyerSnapshot) ([]tickets.Ticket, error) {
	roomName := ""
	if len(order.Seats) > 0 && event.RoomID != nil {
		name, err := s.seatSvc.RoomName(ctx, *event.RoomID)
		if err != nil {
			return nil, err
		}
		roomName = name
	}

	items := make([]tickets.IssueItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, tickets.IssueItem{
			TicketTypeID: item.TicketTypeID,
			TypeName:     item.TypeName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
		})
	}
	assignments := make([]tickets.SeatAssignment, 0, len(order.Seats))
	for _, seat := range order.Seats {
		assignments = append(assignments, tickets.SeatAssignment{
			Row:          seat.SeatRow,
			Number:       seat.SeatNumber,
			TicketTypeID: seat.TicketTypeID,
		})
	}

	return s.issuer.IssueTickets(ctx, tickets.IssueRequest{
		OrderID:    order.ID,
		EventID:    order.EventID,
		EventTitle: event.Title,
		RoomName:   roomName,
		Buyer:      buyer,
		Items:      items,
		Seats:      assignments,
	})
}

// releaseStock is the compensation step. A release failure cannot be
// propagated usefully mid-compensation, so it is logged loudly instead.
func (s *service) releaseStock(ctx context.Context, eventID uuid.UUID, lines []events.StockLine, orderID string) {
	if err := s.eventsRepo.ReleaseStock(ctx, eventID, lines); err != nil {
		s.log.ErrorWithContext(ctx, "failed to release reserved stock", err,
			map[string]interface{}{"order_id": orderID, "event_id": eventID.String()})
	}
}

func (s *service) buyerSnapshot(order *Order) tickets.BuyerSnapshot {
	return tickets.BuyerSnapshot{
		UserID: order.UserID,
		Name:   order.BuyerName,
		Email:  order.BuyerEmail,
	}
}

// notifyIssued and recordActivity are fire-and-forget: a sink failure costs a
// notification, never the order.
func (s *service) notifyIssued(ctx context.Context, email, eventTitle string, count int) {
	if err := s.sink.NotifyTicketsIssued(ctx, email, eventTitle, count); err != nil {
		s.log.Warn("notification sink rejected tickets-issued signal", "error", err.Error())
	}
	s.recordActivity(ctx, "tickets_issued", fmt.Sprintf("%d ticket(s) issued for %q", count, eventTitle))
}

func (s *service) recordActivity(ctx context.Context, kind, summary string) {
	if err := s.sink.RecordActivity(ctx, kind, summary); err != nil {
		s.log.Warn("notification sink rejected activity record", "error", err.Error())
	}
}

func resolveBuyer(req PlaceOrderRequest) (tickets.BuyerSnapshot, error) {
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return tickets.BuyerSnapshot{}, fmt.Errorf("%w: malformed user id", apperrors.ErrInvalidRequest)
		}
		snapshot := tickets.BuyerSnapshot{UserID: &userID}
		if req.BuyerInfo != nil {
			snapshot.Name = req.BuyerInfo.Name
			snapshot.Email = req.BuyerInfo.Email
		}
		return snapshot, nil
	}
	if req.BuyerInfo == nil || req.BuyerInfo.Email == "" {
		return tickets.BuyerSnapshot{}, fmt.Errorf("%w: guest orders require buyer name and email", apperrors.ErrInvalidRequest)
	}
	return tickets.BuyerSnapshot{Name: req.BuyerInfo.Name, Email: req.BuyerInfo.Email}, nil
}

// mergeLines folds duplicate ticket-type lines together and rejects
// non-positive quantities, preserving first-seen order.
func mergeLines(items []OrderItemRequest) ([]events.StockLine, error) {
	index := make(map[uuid.UUID]int, len(items))
	var lines []events.StockLine
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", apperrors.ErrInvalidRequest)
		}
		typeID, err := uuid.Parse(item.TicketTypeID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed ticket type id", apperrors.ErrInvalidRequest)
		}
		if at, ok := index[typeID]; ok {
			lines[at].Quantity += item.Quantity
			continue
		}
		index[typeID] = len(lines)
		lines = append(lines, events.StockLine{TicketTypeID: typeID, Quantity: item.Quantity})
	}
	return lines, nil
}

// stockLinesOf rebuilds the reservation lines from an order's item snapshot.
func stockLinesOf(order *Order) []events.StockLine {
	lines := make([]events.StockLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, events.StockLine{TicketTypeID: item.TicketTypeID, Quantity: item.Quantity})
	}
	return lines
}
