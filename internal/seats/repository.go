package seats

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	GetSeats(ctx context.Context, roomID uuid.UUID) ([]Seat, error)
	GetSeatByPosition(ctx context.Context, roomID uuid.UUID, row string, number int) (*Seat, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	var room Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("room %s not found", id)
		}
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	return &room, nil
}

func (r *repository) GetSeats(ctx context.Context, roomID uuid.UUID) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Preload("Locks").
		Where("room_id = ?", roomID).
		Order("row ASC, number ASC").
		Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	return seats, nil
}

func (r *repository) GetSeatByPosition(ctx context.Context, roomID uuid.UUID, row string, number int) (*Seat, error) {
	var seat Seat
	err := r.db.WithContext(ctx).
		Preload("Locks").
		Where("room_id = ? AND row = ? AND number = ?", roomID, row, number).
		First(&seat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load seat: %w", err)
	}
	return &seat, nil
}
