package policy

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/engine"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Resolve returns the overriding policy when a room type names one, otherwise
// the property default. A non-nil tx keeps the read on the caller's
// transaction handle.
func (r *Repository) Resolve(ctx context.Context, tx *gorm.DB, override *uint) (*CancellationPolicy, error) {
	h := tx
	if h == nil {
		h = r.db
	}

	var p CancellationPolicy

	q := h.WithContext(ctx).Preload("Rules")
	var err error
	if override != nil {
		err = q.First(&p, *override).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &engine.NotFoundError{Resource: "cancellation policy", ID: *override}
		}
	} else {
		err = q.Where("is_default = ?", true).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &engine.NotFoundError{Resource: "cancellation policy", ID: "default"}
		}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
