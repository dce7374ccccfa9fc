package pricing

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/engine"
	"github.com/lodgekeep/lodgekeep/money"
	"github.com/lodgekeep/lodgekeep/room"
)

type roomTypeSource interface {
	TypeByID(ctx context.Context, tx *gorm.DB, id uint) (*room.RoomType, error)
}

type discountSource interface {
	ActiveOffer(ctx context.Context, roomTypeID uint, checkIn time.Time) (*Offer, error)
	CouponByCode(ctx context.Context, code string) (*Coupon, error)
}

// Calculator quotes a prospective stay. Quoting is pure: identical inputs
// against an unchanged rate card and coupon state give identical output, and
// nothing is mutated.
type Calculator struct {
	types     roomTypeSource
	discounts discountSource
	currency  string
}

func NewCalculator(types roomTypeSource, discounts discountSource, currency string) *Calculator {
	return &Calculator{types: types, discounts: discounts, currency: currency}
}

type QuoteInput struct {
	RoomTypeID uint
	CheckIn    time.Time
	CheckOut   time.Time
	Adults     int
	Children   int
	CouponCode string
}

// Breakdown itemizes a stay's price. Discounts are applied in a fixed order:
// surcharges first, then the offer on the subtotal, then the coupon on what
// the offer left, then tax on the discounted amount.
type Breakdown struct {
	Nights               int          `json:"nights"`
	Currency             string       `json:"currency"`
	BaseAmount           money.Amount `json:"baseAmount"`
	ExtraAdultAmount     money.Amount `json:"extraAdultAmount"`
	ExtraChildAmount     money.Amount `json:"extraChildAmount"`
	Subtotal             money.Amount `json:"subtotal"`
	OfferName            string       `json:"offerName,omitempty"`
	OfferDiscountAmount  money.Amount `json:"offerDiscountAmount"`
	CouponCode           string       `json:"couponCode,omitempty"`
	CouponDiscountAmount money.Amount `json:"couponDiscountAmount"`
	TaxableAmount        money.Amount `json:"taxableAmount"`
	TaxAmount            money.Amount `json:"taxAmount"`
	TotalAmount          money.Amount `json:"totalAmount"`

	OfferID  *uint `json:"-"`
	CouponID *uint `json:"-"`
}

func (c *Calculator) Quote(ctx context.Context, in QuoteInput) (*Breakdown, error) {
	in.CheckIn, in.CheckOut = room.DateOnly(in.CheckIn), room.DateOnly(in.CheckOut)

	ve := engine.NewValidationError()
	if !in.CheckOut.After(in.CheckIn) {
		ve.Add("checkOutDate", "must be after check-in date")
	}
	if in.Adults < 1 {
		ve.Add("adultsCount", "must be at least 1")
	}
	if in.Children < 0 {
		ve.Add("childrenCount", "must not be negative")
	}
	if ve.HasErrors() {
		return nil, ve
	}

	rt, err := c.types.TypeByID(ctx, nil, in.RoomTypeID)
	if err != nil {
		return nil, err
	}

	nights := room.Nights(in.CheckIn, in.CheckOut)
	b := &Breakdown{Nights: nights, Currency: c.currency}

	nightsAmt := money.FromInt(int64(nights))
	b.BaseAmount = money.Round2(rt.BasePrice.Mul(nightsAmt))

	if extra := in.Adults - rt.MaxAdults; extra > 0 {
		b.ExtraAdultAmount = money.Round2(rt.ExtraAdultPrice.Mul(money.FromInt(int64(extra))).Mul(nightsAmt))
	}
	if payable := in.Children - rt.FreeChildrenCount; payable > 0 {
		b.ExtraChildAmount = money.Round2(rt.ExtraChildPrice.Mul(money.FromInt(int64(payable))).Mul(nightsAmt))
	}

	b.Subtotal = b.BaseAmount.Add(b.ExtraAdultAmount).Add(b.ExtraChildAmount)

	offer, err := c.discounts.ActiveOffer(ctx, rt.ID, in.CheckIn)
	if err != nil {
		return nil, err
	}
	if offer != nil {
		b.OfferName = offer.Name
		b.OfferID = &offer.ID
		b.OfferDiscountAmount = discount(b.Subtotal, offer.Kind, offer.Value)
	}

	afterOffer := b.Subtotal.Sub(b.OfferDiscountAmount)

	if in.CouponCode != "" {
		coupon, err := c.discounts.CouponByCode(ctx, in.CouponCode)
		if err != nil {
			return nil, err
		}
		// An unknown or unusable coupon fails the whole quote; it is never
		// silently dropped.
		if coupon == nil || !coupon.Usable(time.Now().UTC()) {
			return nil, engine.Invalidf("couponCode", "coupon %q is not valid", in.CouponCode)
		}
		b.CouponCode = coupon.Code
		b.CouponID = &coupon.ID
		b.CouponDiscountAmount = discount(afterOffer, coupon.Kind, coupon.Value)
	}

	b.TaxableAmount = afterOffer.Sub(b.CouponDiscountAmount)
	b.TaxAmount = money.Percent(b.TaxableAmount, rt.TaxRatePercent)
	b.TotalAmount = b.TaxableAmount.Add(b.TaxAmount)

	return b, nil
}
