package events

import (
	"context"
	"errors"
	"fmt"

	"ticketly/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetTicketType(ctx context.Context, eventID, typeID uuid.UUID) (*TicketType, error)
	GetTicketTypes(ctx context.Context, eventID uuid.UUID) ([]TicketType, error)

	// Atomic stock operations
	ReserveStock(ctx context.Context, eventID uuid.UUID, lines []StockLine) error
	ReleaseStock(ctx context.Context, eventID uuid.UUID, lines []StockLine) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return &event, nil
}

func (r *repository) GetTicketType(ctx context.Context, eventID, typeID uuid.UUID) (*TicketType, error) {
	var tt TicketType
	err := r.db.WithContext(ctx).
		Where("id = ? AND event_id = ?", typeID, eventID).
		First(&tt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to load ticket type: %w", err)
	}
	return &tt, nil
}

func (r *repository) GetTicketTypes(ctx context.Context, eventID uuid.UUID) ([]TicketType, error) {
	var types []TicketType
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("price ASC").
		Find(&types).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket types: %w", err)
	}
	return types, nil
}

// ReserveStock increments the sold counter of every line inside one
// transaction. Each increment is a conditional UPDATE so concurrent
// reservations for the same type serialize at the storage layer; any line
// that cannot be satisfied rolls the whole transaction back, so partial
// reservation is impossible.
func (r *repository) ReserveStock(ctx context.Context, eventID uuid.UUID, lines []StockLine) error {
	if len(lines) == 0 {
		return apperrors.ErrInvalidRequest
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			result := tx.Exec(`
				UPDATE ticket_types
				SET sold = sold + ?, updated_at = NOW()
				WHERE id = ? AND event_id = ?
				  AND (capacity IS NULL OR sold + ? <= capacity)`,
				line.Quantity, line.TicketTypeID, eventID, line.Quantity,
			)
			if result.Error != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrStockReservationFailed, result.Error)
			}
			if result.RowsAffected == 0 {
				// Either the type vanished or the capacity guard failed.
				// Reload to produce an error naming the type.
				tt, err := r.GetTicketType(ctx, eventID, line.TicketTypeID)
				if err != nil {
					return err
				}
				return &apperrors.SoldOutError{
					TicketType: tt.Name,
					Requested:  line.Quantity,
					Available:  tt.Remaining(),
				}
			}
		}
		return nil
	})
}

// ReleaseStock decrements the sold counters previously incremented by
// ReserveStock. Used by the payment-failure, sweeper and compensation paths.
// The guard keeps sold from going negative if a release is replayed.
func (r *repository) ReleaseStock(ctx context.Context, eventID uuid.UUID, lines []StockLine) error {
	if len(lines) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			result := tx.Exec(`
				UPDATE ticket_types
				SET sold = sold - ?, updated_at = NOW()
				WHERE id = ? AND event_id = ? AND sold >= ?`,
				line.Quantity, line.TicketTypeID, eventID, line.Quantity,
			)
			if result.Error != nil {
				return fmt.Errorf("failed to release stock: %w", result.Error)
			}
		}
		return nil
	})
}
