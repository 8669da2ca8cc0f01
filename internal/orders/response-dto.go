package orders

import "ticketly/internal/tickets"

// PlaceOrderResult is what the engine hands back. Free orders carry the
// freshly issued tickets; online orders carry the gateway redirect URL and no
// tickets yet.
type PlaceOrderResult struct {
	Order      *Order           `json:"order"`
	Tickets    []tickets.Ticket `json:"tickets,omitempty"`
	PaymentURL string           `json:"payment_url,omitempty"`
}

// CallbackOutcome reports what the payment callback did with an order.
type CallbackOutcome struct {
	Order   *Order           `json:"order"`
	Paid    bool             `json:"paid"`
	Tickets []tickets.Ticket `json:"tickets,omitempty"`

	// AlreadyProcessed marks an idempotent replay: the order was in a
	// terminal state before this callback arrived.
	AlreadyProcessed bool `json:"already_processed"`
}

// OrderDetailResponse pairs an order with its issued tickets, if any.
type OrderDetailResponse struct {
	Order   *Order           `json:"order"`
	Tickets []tickets.Ticket `json:"tickets,omitempty"`
}
