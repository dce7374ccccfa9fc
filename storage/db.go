package storage

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lodgekeep/lodgekeep/booking"
	"github.com/lodgekeep/lodgekeep/payment"
	"github.com/lodgekeep/lodgekeep/policy"
	"github.com/lodgekeep/lodgekeep/pricing"
	"github.com/lodgekeep/lodgekeep/room"
)

// Connect opens the sqlite database. The handle is returned to the caller and
// passed down explicitly; nothing holds it at package level.
func Connect(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the engine's tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&room.RoomType{},
		&room.Room{},
		&room.RoomBlock{},
		&pricing.Offer{},
		&pricing.Coupon{},
		&policy.CancellationPolicy{},
		&policy.CancellationRule{},
		&booking.Booking{},
		&booking.Guest{},
		&payment.Payment{},
	)
}

// Seed guarantees the invariant that exactly one cancellation policy is the
// property default. A fresh database gets a standard three-tier policy.
func Seed(db *gorm.DB) error {
	var n int64
	if err := db.Model(&policy.CancellationPolicy{}).Where("is_default = ?", true).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	return db.Create(&policy.CancellationPolicy{
		Name:      "Standard",
		IsDefault: true,
		Rules: []policy.CancellationRule{
			{HoursBeforeCheckIn: 48, RefundPercent: 100},
			{HoursBeforeCheckIn: 24, RefundPercent: 50},
			{HoursBeforeCheckIn: 0, RefundPercent: 0},
		},
	}).Error
}
