package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the database constraints the reservation engine
// depends on for concurrency control. The application-level seat pre-check is
// only a fast path; the partial unique index below is the authoritative guard
// against two buyers holding the same seat.
func MigrateConstraints(db *gorm.DB) error {
	// One non-cancelled ticket per physical seat per event. Tickets without a
	// seat assignment store an empty row label and are exempt.
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_ticket_seat_per_event
		ON tickets (event_id, seat_row, seat_number)
		WHERE status <> 'CANCELLED' AND seat_row <> '';
	`).Error
	if err != nil {
		return err
	}

	// Ticket codes are globally unique; the issuer re-rolls on violation.
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_ticket_code
		ON tickets (code);
	`).Error
	if err != nil {
		return err
	}

	// Sweeper scans pending orders by age.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_orders_status_created_at
		ON orders (status, created_at);
	`).Error
	if err != nil {
		return err
	}

	// Per-user cap counting and seat-occupancy reads.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tickets_event_type_buyer
		ON tickets (event_id, ticket_type_id, buyer_email);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
