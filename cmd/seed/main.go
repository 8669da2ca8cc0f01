package main

import (
	"fmt"
	"log"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"

	"github.com/google/uuid"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Ticketly Database Seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"tickets",
		"order_seats",
		"order_items",
		"orders",
		"seat_locks",
		"seats",
		"rooms",
		"ticket_types",
		"events",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll creates a demo room with a small grid, one seated event and one
// general-admission event with a free tier.
func (s *Seeder) SeedAll() error {
	room, err := s.seedRoom()
	if err != nil {
		return err
	}
	if err := s.seedSeatedEvent(room); err != nil {
		return err
	}
	return s.seedGeneralAdmissionEvent()
}

func (s *Seeder) seedRoom() (*seats.Room, error) {
	room := seats.Room{
		ID:   uuid.New(),
		Name: "Main Hall",
	}
	if err := s.db.PostgreSQL.Create(&room).Error; err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	// 5 rows of 10 seats; seat E10 is out of service
	var grid []seats.Seat
	for _, row := range []string{"A", "B", "C", "D", "E"} {
		for number := 1; number <= 10; number++ {
			grid = append(grid, seats.Seat{
				ID:       uuid.New(),
				RoomID:   room.ID,
				Row:      row,
				Number:   number,
				IsActive: !(row == "E" && number == 10),
			})
		}
	}
	if err := s.db.PostgreSQL.Create(&grid).Error; err != nil {
		return nil, fmt.Errorf("failed to create seats: %w", err)
	}

	fmt.Printf("  Created room %q with %d seats\n", room.Name, len(grid))
	return &room, nil
}

func (s *Seeder) seedSeatedEvent(room *seats.Room) error {
	capVIP := 10
	capStandard := 40
	perUserCap := 4
	vipPrice := 120.0

	event := events.Event{
		ID:       uuid.New(),
		Title:    "Jazz Night",
		RoomID:   &room.ID,
		StartsAt: time.Now().AddDate(0, 1, 0),
		Status:   events.EventStatusPublished,
		TicketTypes: []events.TicketType{
			{
				ID:            uuid.New(),
				Name:          "VIP",
				Price:         vipPrice,
				OriginalPrice: &vipPrice,
				Capacity:      &capVIP,
				PerUserCap:    &perUserCap,
				Status:        events.TicketTypeActive,
			},
			{
				ID:         uuid.New(),
				Name:       "Standard",
				Price:      45,
				Capacity:   &capStandard,
				PerUserCap: &perUserCap,
				Status:     events.TicketTypeActive,
			},
		},
	}
	if err := s.db.PostgreSQL.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to create seated event: %w", err)
	}

	// Row A is VIP only for this event
	vipType := event.TicketTypes[0].ID
	var rowA []seats.Seat
	if err := s.db.PostgreSQL.Where("room_id = ? AND row = ?", room.ID, "A").Find(&rowA).Error; err != nil {
		return fmt.Errorf("failed to load row A: %w", err)
	}
	var locks []seats.SeatLock
	for _, seat := range rowA {
		locks = append(locks, seats.SeatLock{
			ID:           uuid.New(),
			SeatID:       seat.ID,
			EventID:      event.ID,
			TicketTypeID: &vipType,
		})
	}
	if err := s.db.PostgreSQL.Create(&locks).Error; err != nil {
		return fmt.Errorf("failed to create seat locks: %w", err)
	}

	fmt.Printf("  Created event %q (%d ticket types, row A locked to VIP)\n", event.Title, len(event.TicketTypes))
	return nil
}

func (s *Seeder) seedGeneralAdmissionEvent() error {
	capPaid := 500

	event := events.Event{
		ID:       uuid.New(),
		Title:    "Open Air Meetup",
		StartsAt: time.Now().AddDate(0, 2, 0),
		Status:   events.EventStatusPublished,
		TicketTypes: []events.TicketType{
			{
				ID:     uuid.New(),
				Name:   "Free Entry",
				Price:  0,
				Status: events.TicketTypeActive,
			},
			{
				ID:       uuid.New(),
				Name:     "Supporter",
				Price:    15,
				Capacity: &capPaid,
				Status:   events.TicketTypeActive,
			},
		},
	}
	if err := s.db.PostgreSQL.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to create general admission event: %w", err)
	}

	fmt.Printf("  Created event %q (unlimited free tier + %d supporter seats)\n", event.Title, capPaid)
	return nil
}
