package pricing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ActiveOffer finds the automatically-applicable offer for a room type and
// stay start: active, window covers the check-in date, scoped to the type or
// property-wide. When several apply the largest value wins. A nil offer with a
// nil error means no offer applies.
func (r *Repository) ActiveOffer(ctx context.Context, roomTypeID uint, checkIn time.Time) (*Offer, error) {
	var offer Offer
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("start_date <= ? AND end_date > ?", checkIn, checkIn).
		Where("room_type_id IS NULL OR room_type_id = ?", roomTypeID).
		Order("value DESC").
		First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// CouponByCode looks a coupon up by its code. A nil coupon with a nil error
// means the code is unknown; the calculator turns that into a validation
// failure.
func (r *Repository) CouponByCode(ctx context.Context, code string) (*Coupon, error) {
	var coupon Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ConsumeCoupon increments a coupon's usage counter inside the caller's
// transaction. Booking creation is the only caller; quoting never consumes.
func (r *Repository) ConsumeCoupon(tx *gorm.DB, couponID uint) error {
	return tx.Model(&Coupon{}).
		Where("id = ?", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
}
