package events

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
)

type Event struct {
	ID       uuid.UUID   `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title    string      `json:"title" gorm:"not null;size:255"`
	RoomID   *uuid.UUID  `json:"room_id" gorm:"type:uuid;index"`
	StartsAt time.Time   `json:"starts_at" gorm:"not null"`
	Status   EventStatus `json:"status" gorm:"type:varchar(20);default:'draft'"`

	TicketTypes []TicketType `json:"ticket_types,omitempty" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE;"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type TicketTypeStatus string

const (
	TicketTypeActive TicketTypeStatus = "active"
	TicketTypeHidden TicketTypeStatus = "hidden"
)

// TicketType is the unit of inventory. Capacity and PerUserCap use nil as the
// "unlimited" sentinel. Sold is mutated only through the conditional UPDATE in
// the repository, never read-then-written from application code.
type TicketType struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	EventID       uuid.UUID        `json:"event_id" gorm:"type:uuid;index;not null"`
	Name          string           `json:"name" gorm:"not null;size:255"`
	Price         float64          `json:"price" gorm:"not null;check:price >= 0"`
	OriginalPrice *float64         `json:"original_price,omitempty"`
	Capacity      *int             `json:"capacity,omitempty" gorm:"check:capacity IS NULL OR capacity >= 0"`
	Sold          int              `json:"sold" gorm:"default:0;check:sold >= 0"`
	PerUserCap    *int             `json:"per_user_cap,omitempty" gorm:"check:per_user_cap IS NULL OR per_user_cap >= 1"`
	Status        TicketTypeStatus `json:"status" gorm:"type:varchar(20);default:'active'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// StockLine is one "reserve N units of type T" entry in a bulk reservation.
type StockLine struct {
	TicketTypeID uuid.UUID
	Quantity     int
}

func (Event) TableName() string {
	return "events"
}

func (TicketType) TableName() string {
	return "ticket_types"
}

// Unlimited reports whether the type has no capacity ceiling.
func (t *TicketType) Unlimited() bool {
	return t.Capacity == nil
}

// Remaining returns how many units are still sellable. Unlimited types report
// a negative value; callers must check Unlimited first.
func (t *TicketType) Remaining() int {
	if t.Capacity == nil {
		return -1
	}
	remaining := *t.Capacity - t.Sold
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// HasUserCap reports whether a finite per-user purchase cap applies.
func (t *TicketType) HasUserCap() bool {
	return t.PerUserCap != nil
}
