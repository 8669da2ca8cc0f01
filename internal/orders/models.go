package orders

import (
	"time"

	"github.com/google/uuid"
)

// Order is the purchase record. Line items and the seat-assignment snapshot
// are owned exclusively by the order and captured verbatim at creation time,
// so a payment confirmation minutes later reconstructs exactly what the buyer
// selected even if prices or the seat map changed in between.
type Order struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	EventID uuid.UUID `json:"event_id" gorm:"type:uuid;index;not null"`

	// Purchaser snapshot. UserID is nil for operator-granted guest orders;
	// name and email are captured for everyone so the payment callback can
	// issue and notify without a user lookup.
	UserID     *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	BuyerName  string     `json:"buyer_name" gorm:"size:255;default:''"`
	BuyerEmail string     `json:"buyer_email" gorm:"size:255;default:''"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE;"`
	Seats []OrderSeat `json:"seats,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE;"`

	TotalAmount   float64       `json:"total_amount" gorm:"not null;check:total_amount >= 0"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null"`
	Status        Status        `json:"status" gorm:"type:varchar(20);default:'PENDING';index"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// OrderItem is one cart line with name and price snapshotted at validation
// time; totals are never recomputed from live ticket-type prices.
type OrderItem struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	OrderID      uuid.UUID `json:"order_id" gorm:"type:uuid;index;not null"`
	TicketTypeID uuid.UUID `json:"ticket_type_id" gorm:"type:uuid;not null"`
	TypeName     string    `json:"type_name" gorm:"not null;size:255"`
	Quantity     int       `json:"quantity" gorm:"not null;check:quantity > 0"`
	UnitPrice    float64   `json:"unit_price" gorm:"not null;check:unit_price >= 0"`
}

// OrderSeat is one entry of the seat-assignment snapshot. Stored but not yet
// consumed as tickets until the order reaches PAID.
type OrderSeat struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	OrderID      uuid.UUID `json:"order_id" gorm:"type:uuid;index;not null"`
	SeatRow      string    `json:"seat_row" gorm:"not null;size:16"`
	SeatNumber   int       `json:"seat_number" gorm:"not null"`
	TicketTypeID uuid.UUID `json:"ticket_type_id" gorm:"type:uuid;not null"`
}

func (Order) TableName() string {
	return "orders"
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (OrderSeat) TableName() string {
	return "order_seats"
}

// IsGuest reports whether the order was granted to a guest without an account.
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// TotalUnits is the number of tickets this order represents.
func (o *Order) TotalUnits() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
