package tickets

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusValid     Status = "VALID"
	StatusUsed      Status = "USED"
	StatusCancelled Status = "CANCELLED"
)

// Ticket is one admitted unit. Event, seat and buyer data are point-in-time
// snapshots captured at issuance, never live references, so later edits to
// the event or seat map cannot retroactively alter an issued ticket.
type Ticket struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	OrderID      uuid.UUID `json:"order_id" gorm:"type:uuid;index;not null"`
	EventID      uuid.UUID `json:"event_id" gorm:"type:uuid;index;not null"`
	TicketTypeID uuid.UUID `json:"ticket_type_id" gorm:"type:uuid;not null"`
	TypeName     string    `json:"type_name" gorm:"not null;size:255"`
	EventTitle   string    `json:"event_title" gorm:"not null;size:255"`

	Code      string `json:"code" gorm:"not null;size:32"`
	ScanToken string `json:"scan_token" gorm:"not null;type:text"`
	Status    Status `json:"status" gorm:"type:varchar(20);default:'VALID'"`

	// Seat snapshot; empty row means a seatless (general admission) ticket
	SeatRow    string `json:"seat_row" gorm:"default:''"`
	SeatNumber int    `json:"seat_number" gorm:"default:0"`
	RoomName   string `json:"room_name" gorm:"default:''"`

	// Buyer snapshot
	BuyerUserID *uuid.UUID `json:"buyer_user_id,omitempty" gorm:"type:uuid;index"`
	BuyerName   string     `json:"buyer_name" gorm:"size:255"`
	BuyerEmail  string     `json:"buyer_email" gorm:"size:255"`

	PricePaid float64   `json:"price_paid" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) IsCancelled() bool {
	return t.Status == StatusCancelled
}

// HasSeat reports whether the ticket carries a seat snapshot.
func (t *Ticket) HasSeat() bool {
	return t.SeatRow != ""
}

// BuyerSnapshot identifies the purchaser at issuance time. UserID is nil for
// operator-granted guest tickets.
type BuyerSnapshot struct {
	UserID *uuid.UUID
	Name   string
	Email  string
}

// IssueItem is one line of an order at issuance time, prices already
// snapshotted by the reservation engine.
type IssueItem struct {
	TicketTypeID uuid.UUID
	TypeName     string
	Quantity     int
	UnitPrice    float64
}

// SeatAssignment is one seat from the order's stored seat snapshot.
type SeatAssignment struct {
	Row          string
	Number       int
	TicketTypeID uuid.UUID
}

// IssueRequest carries everything the issuer needs; it never reads the order
// back from storage so the caller controls exactly which snapshot is used.
type IssueRequest struct {
	OrderID    uuid.UUID
	EventID    uuid.UUID
	EventTitle string
	RoomName   string
	Buyer      BuyerSnapshot
	Items      []IssueItem
	Seats      []SeatAssignment
}
