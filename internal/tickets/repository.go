package tickets

import (
	"context"
	"errors"
	"fmt"

	"ticketly/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// CreateBatch persists all tickets of one order in a single insert.
	// Returns gorm.ErrDuplicatedKey when the seat-uniqueness or code index
	// rejects the batch; the issuer disambiguates the two.
	CreateBatch(ctx context.Context, batch []Ticket) error

	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Ticket, error)
	GetByCode(ctx context.Context, code string) (*Ticket, error)

	// CountActiveByBuyerAndType feeds the per-user purchase cap check.
	CountActiveByBuyerAndType(ctx context.Context, eventID, typeID uuid.UUID, buyerUserID *uuid.UUID, buyerEmail string) (int, error)

	// OccupiedSeats returns the "row-number" keys of all seats held by
	// non-cancelled tickets of the event.
	OccupiedSeats(ctx context.Context, eventID uuid.UUID) (map[string]bool, error)

	// SeatsTaken reports which of the given seat keys are already held.
	SeatsTaken(ctx context.Context, eventID uuid.UUID, keys []SeatAssignment) ([]SeatAssignment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBatch(ctx context.Context, batch []Ticket) error {
	if len(batch) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&batch).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Ticket, error) {
	var list []Ticket
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	return list, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Ticket, error) {
	var ticket Ticket
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return &ticket, nil
}

func (r *repository) CountActiveByBuyerAndType(ctx context.Context, eventID, typeID uuid.UUID, buyerUserID *uuid.UUID, buyerEmail string) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("event_id = ? AND ticket_type_id = ?", eventID, typeID).
		Where("status <> ?", StatusCancelled)

	// Registered buyers are counted by user id; operator-granted guests by
	// the email snapshot, which is all we have for them.
	if buyerUserID != nil {
		query = query.Where("buyer_user_id = ?", *buyerUserID)
	} else {
		query = query.Where("buyer_user_id IS NULL AND buyer_email = ?", buyerEmail)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count buyer tickets: %w", err)
	}
	return int(count), nil
}

func (r *repository) OccupiedSeats(ctx context.Context, eventID uuid.UUID) (map[string]bool, error) {
	var rows []struct {
		SeatRow    string
		SeatNumber int
	}
	err := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Select("seat_row, seat_number").
		Where("event_id = ? AND status <> ? AND seat_row <> ''", eventID, StatusCancelled).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load occupied seats: %w", err)
	}

	occupied := make(map[string]bool, len(rows))
	for _, row := range rows {
		occupied[fmt.Sprintf("%s-%d", row.SeatRow, row.SeatNumber)] = true
	}
	return occupied, nil
}

func (r *repository) SeatsTaken(ctx context.Context, eventID uuid.UUID, keys []SeatAssignment) ([]SeatAssignment, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	occupied, err := r.OccupiedSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var taken []SeatAssignment
	for _, key := range keys {
		if occupied[fmt.Sprintf("%s-%d", key.Row, key.Number)] {
			taken = append(taken, key)
		}
	}
	return taken, nil
}
