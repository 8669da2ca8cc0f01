package database

import (
	"ticketly/internal/events"
	"ticketly/internal/orders"
	"ticketly/internal/seats"
	"ticketly/internal/tickets"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&events.Event{},
		&events.TicketType{},
		&seats.Room{},
		&seats.Seat{},
		&seats.SeatLock{},
		&orders.Order{},
		&orders.OrderItem{},
		&orders.OrderSeat{},
		&tickets.Ticket{},
	)
}
