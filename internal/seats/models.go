package seats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Room is a physical venue room holding a fixed seat grid.
type Room struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name string    `json:"name" gorm:"not null;size:255"`

	Seats []Seat `json:"seats,omitempty" gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE;"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Seat is immutable in structure (row/number) once created; only IsActive and
// the lock set change, via administrative action.
type Seat struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	RoomID   uuid.UUID `json:"room_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_room_row_number"`
	Row      string    `json:"row" gorm:"not null;uniqueIndex:idx_room_row_number"`
	Number   int       `json:"number" gorm:"not null;uniqueIndex:idx_room_row_number"`
	IsActive bool      `json:"is_active" gorm:"default:true"`

	Locks []SeatLock `json:"locks,omitempty" gorm:"foreignKey:SeatID;constraint:OnDelete:CASCADE;"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SeatLock binds a seat to one event and optionally one ticket type: only a
// buyer purchasing that event (and that type, if set) may select the seat.
type SeatLock struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SeatID       uuid.UUID  `json:"seat_id" gorm:"type:uuid;index;not null"`
	EventID      uuid.UUID  `json:"event_id" gorm:"type:uuid;index;not null"`
	TicketTypeID *uuid.UUID `json:"ticket_type_id,omitempty" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Room) TableName() string {
	return "rooms"
}

func (Seat) TableName() string {
	return "seats"
}

func (SeatLock) TableName() string {
	return "seat_locks"
}

// Key returns the canonical "row-number" occupancy key for a seat position.
func Key(row string, number int) string {
	return fmt.Sprintf("%s-%d", row, number)
}

// SeatStatus is the effective per-event state shown to buyers.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatOccupied  SeatStatus = "OCCUPIED"
	SeatLocked    SeatStatus = "LOCKED"
	SeatInactive  SeatStatus = "INACTIVE"
)

// SeatView is one grid cell in the seat-map response.
type SeatView struct {
	ID           string     `json:"id"`
	Row          string     `json:"row"`
	Number       int        `json:"number"`
	Status       SeatStatus `json:"status"`
	TicketTypeID *string    `json:"ticket_type_id,omitempty"`
}

// SeatMapResponse is the full grid for a room, evaluated for one event.
type SeatMapResponse struct {
	RoomID   string     `json:"room_id"`
	RoomName string     `json:"room_name"`
	EventID  string     `json:"event_id"`
	Seats    []SeatView `json:"seats"`
}
