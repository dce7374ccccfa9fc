package room

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/engine"
)

// Repository reads room types and rooms. Every lookup takes an optional tx so
// callers inside a transaction keep all their reads on the one handle; a nil
// tx falls back to the repository's own connection.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *Repository) TypeByID(ctx context.Context, tx *gorm.DB, id uint) (*RoomType, error) {
	var rt RoomType
	err := r.handle(tx).WithContext(ctx).First(&rt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &engine.NotFoundError{Resource: "room type", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *Repository) RoomByID(ctx context.Context, tx *gorm.DB, id uint) (*Room, error) {
	var rm Room
	err := r.handle(tx).WithContext(ctx).First(&rm, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &engine.NotFoundError{Resource: "room", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

// RoomsOfType returns the physical rooms of a type ordered by id. The stable
// order is what downstream locking relies on.
func (r *Repository) RoomsOfType(ctx context.Context, tx *gorm.DB, typeID uint) ([]Room, error) {
	var rooms []Room
	err := r.handle(tx).WithContext(ctx).
		Where("room_type_id = ?", typeID).
		Order("id").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
