package orders

// Status is the order lifecycle state. PENDING is the only non-terminal state;
// the only reachable transitions are PENDING->PAID and PENDING->CANCELLED.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// PaymentMethod selects how an order is settled. FREE orders are issued
// immediately; ONLINE orders wait for the gateway callback.
type PaymentMethod string

const (
	PaymentFree   PaymentMethod = "FREE"
	PaymentOnline PaymentMethod = "ONLINE"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}
