package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketly/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Create persists the order with its line items and seat snapshot in one
	// transaction (gorm cascades the associations).
	Create(ctx context.Context, order *Order) error

	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)

	// MarkPaid and MarkCancelled are status-guarded transitions out of
	// PENDING. They return false without error when the order was no longer
	// pending, which is how racing transitions detect staleness.
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// RevertPaid undoes a MarkPaid that could not complete issuance.
	RevertPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// FindExpiredPending returns pending orders created before the cutoff,
	// oldest first, capped at limit. Line items are preloaded so the sweeper
	// can release stock without extra round trips.
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Seats").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	var list []Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return list, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.transition(ctx, id, StatusPending, map[string]interface{}{
		"status":  StatusPaid,
		"paid_at": at,
	})
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.transition(ctx, id, StatusPending, map[string]interface{}{
		"status":       StatusCancelled,
		"cancelled_at": at,
	})
}

func (r *repository) RevertPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.transition(ctx, id, StatusPaid, map[string]interface{}{
		"status":       StatusCancelled,
		"cancelled_at": at,
		"paid_at":      nil,
	})
}

// transition applies a guarded status change. RowsAffected tells the caller
// whether this transition won the race.
func (r *repository) transition(ctx context.Context, id uuid.UUID, from Status, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition order: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Order, error) {
	var list []Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND created_at < ?", StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired orders: %w", err)
	}
	return list, nil
}
