package orders

type PlaceOrderRequest struct {
	EventID string             `json:"event_id" binding:"required,uuid"`
	Items   []OrderItemRequest `json:"items" binding:"required,min=1,dive"`

	// Optional seat selection; validated against the event's room
	SeatAssignments []SeatAssignmentRequest `json:"seat_assignments,omitempty" binding:"omitempty,dive"`

	// UserID comes from the auth context on the self-serve path; operator
	// grants supply BuyerInfo for guests instead.
	UserID    string            `json:"user_id,omitempty" binding:"omitempty,uuid"`
	BuyerInfo *BuyerInfoRequest `json:"buyer_info,omitempty"`

	// PaymentMethod may force FREE on operator grants; empty means derive
	// from the total.
	PaymentMethod string `json:"payment_method,omitempty" binding:"omitempty,oneof=FREE ONLINE"`
}

type OrderItemRequest struct {
	TicketTypeID string `json:"ticket_type_id" binding:"required,uuid"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
}

type SeatAssignmentRequest struct {
	Row          string `json:"row" binding:"required"`
	Number       int    `json:"number" binding:"required,min=1"`
	TicketTypeID string `json:"ticket_type_id" binding:"required,uuid"`
}

type BuyerInfoRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}
