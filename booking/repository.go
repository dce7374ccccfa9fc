package booking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/engine"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ByID(ctx context.Context, id uint) (*Booking, error) {
	return byID(r.db.WithContext(ctx), id)
}

// byID loads a booking with its guests and ledger entries on whatever handle
// the caller is inside of.
func byID(tx *gorm.DB, id uint) (*Booking, error) {
	var b Booking
	err := tx.Preload("Guests").Preload("Payments").First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &engine.NotFoundError{Resource: "booking", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

type ListFilter struct {
	From   *time.Time
	To     *time.Time
	Status Status
}

// List returns bookings whose stay overlaps the filter range, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Booking, error) {
	q := r.db.WithContext(ctx).Preload("Guests")

	if f.From != nil {
		q = q.Where("check_out_date > ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("check_in_date < ?", *f.To)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var bookings []Booking
	if err := q.Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}
