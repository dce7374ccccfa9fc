package pricing

import (
	"time"

	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/money"
)

// DiscountKind says how a discount value is read: a percentage of the
// discounted base, or a flat amount.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "PERCENT"
	DiscountFlat    DiscountKind = "FLAT"
)

// Offer is an automatically-applied promotional discount, scoped to one room
// type or property-wide when RoomTypeID is nil. An offer applies when the stay
// begins inside [StartDate, EndDate).
type Offer struct {
	gorm.Model
	Name       string       `json:"name"`
	RoomTypeID *uint        `json:"roomTypeId" gorm:"index"`
	Kind       DiscountKind `json:"kind"`
	Value      money.Amount `json:"value" gorm:"type:decimal(12,2)"`
	StartDate  time.Time    `json:"startDate"`
	EndDate    time.Time    `json:"endDate"`
	Active     bool         `json:"active" gorm:"default:true"`
}

// Coupon is a code-gated discount. Usage is only consumed when a booking is
// created with the code, never by quoting.
type Coupon struct {
	gorm.Model
	Code      string       `json:"code" gorm:"uniqueIndex"`
	Kind      DiscountKind `json:"kind"`
	Value     money.Amount `json:"value" gorm:"type:decimal(12,2)"`
	Active    bool         `json:"active" gorm:"default:true"`
	ExpiresAt *time.Time   `json:"expiresAt"`
	MaxUses   *int         `json:"maxUses"`
	UsedCount int          `json:"usedCount"`
}

// Usable reports whether the coupon can still be redeemed at the given time.
func (c *Coupon) Usable(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return false
	}
	return true
}

// discount applies a kind/value pair to a base, clipped so the result never
// exceeds the base.
func discount(base money.Amount, kind DiscountKind, value money.Amount) money.Amount {
	var d money.Amount
	switch kind {
	case DiscountPercent:
		d = money.Percent(base, value)
	case DiscountFlat:
		d = money.Round2(value)
	default:
		return money.Zero
	}
	return money.Min(d, base)
}
