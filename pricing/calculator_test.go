package pricing_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lodgekeep/lodgekeep/engine"
	"github.com/lodgekeep/lodgekeep/money"
	"github.com/lodgekeep/lodgekeep/pricing"
	"github.com/lodgekeep/lodgekeep/room"
	"github.com/lodgekeep/lodgekeep/storage"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	return db
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func seedDeluxe(t *testing.T, db *gorm.DB) *room.RoomType {
	t.Helper()
	rt := &room.RoomType{
		Name:              "Deluxe",
		BasePrice:         money.FromInt(2000),
		MaxAdults:         2,
		MaxChildren:       2,
		ExtraAdultPrice:   money.FromInt(500),
		ExtraChildPrice:   money.FromInt(250),
		FreeChildrenCount: 1,
		TaxRatePercent:    money.FromInt(12),
	}
	require.NoError(t, db.Create(rt).Error)
	return rt
}

func newCalculator(db *gorm.DB) *pricing.Calculator {
	return pricing.NewCalculator(room.NewRepository(db), pricing.NewRepository(db), "USD")
}

func TestQuoteWithExtraAdult(t *testing.T) {
	db := testDB(t)
	rt := seedDeluxe(t, db)
	calc := newCalculator(db)

	b, err := calc.Quote(context.Background(), pricing.QuoteInput{
		RoomTypeID: rt.ID,
		CheckIn:    date(t, "2026-11-10"),
		CheckOut:   date(t, "2026-11-13"),
		Adults:     3,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, b.Nights)
	assert.Equal(t, "USD", b.Currency)
	assert.Equal(t, "6000", b.BaseAmount.String())
	assert.Equal(t, "1500", b.ExtraAdultAmount.String())
	assert.Equal(t, "7500", b.Subtotal.String())
	assert.Equal(t, "7500", b.TaxableAmount.String())
	assert.Equal(t, "900", b.TaxAmount.String())
	assert.Equal(t, "8400", b.TotalAmount.String())
}

func TestQuoteChildSurchargeSkipsFreeChildren(t *testing.T) {
	db := testDB(t)
	rt := seedDeluxe(t, db)
	calc := newCalculator(db)

	b, err := calc.Quote(context.Background(), pricing.QuoteInput{
		RoomTypeID: rt.ID,
		CheckIn:    date(t, "2026-11-10"),
		CheckOut:   date(t, "2026-11-12"),
		Adults:     2,
		Children:   2,
	})
	require.NoError(t, err)

	// One free child, one payable: 1 x 250 x 2 nights.
	assert.Equal(t, "500", b.ExtraChildAmount.String())
	assert.Equal(t, "4500", b.Subtotal.String())
}

func TestQuoteIsIdempotent(t *testing.T) {
	db := testDB(t)
	rt := seedDeluxe(t, db)
	calc := newCalculator(db)

	in := pricing.QuoteInput{
		RoomTypeID: rt.ID,
		CheckIn:    date(t, "2026-11-10"),
		CheckOut:   date(t, "2026-11-13"),
		Adults:     3,
	}
	first, err := calc.Quote(context.Background(), in)
	require.NoError(t, err)
	second, err := calc.Quote(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.TotalAmount.String(), second.TotalAmount.String())
	assert.Equal(t, first.Subtotal.String(), second.Subtotal.String())
}

func TestQuoteOfferThenCoupon(t *testing.T) {
	db := testDB(t)
	rt := seedDeluxe(t, db)

	require.NoError(t, db.Create(&pricing.Offer{
		Name:      "Autumn",
		Kind:      pricing.DiscountPercent,
		Value:     money.FromInt(10),
		StartDate: date(t, "2026-11-01"),
		EndDate:   date(t, "2026-12-01"),
		Active:    true,
	}).Error)
	require.NoError(t, db.Create(&pricing.Coupon{
		Code:   "WELCOME",
		Kind:   pricing.DiscountFlat,
		Value:  money.FromInt(750),
		Active: true,
	}).Error)

	calc := newCalculator(db)
	b, err := calc.Quote(context.Background(), pricing.QuoteInput{
		RoomTypeID: rt.ID,
		CheckIn:    date(t, "2026-11-10"),
		CheckOut:   date(t, "2026-11-13"),
		Adults:     3,
		CouponCode: "WELCOME",
	})
	require.NoError(t, err)

	// 7500 subtotal, 10% offer first, then the flat coupon on what remains.
	assert.Equal(t, "750", b.OfferDiscountAmount.String())
	assert.Equal(t, "750", b.CouponDiscountAmount.String())
	assert.Equal(t, "6000", b.TaxableAmount.String())
	assert.Equal(t, "720", b.TaxAmount.String())
	assert.Equal(t, "6720", b.TotalAmount.String())
	require.NotNil(t, b.OfferID)
	require.NotNil(t, b.CouponID)
}

func TestQuoteFlatDiscountClipsAtSubtotal(t *testing.T) {
	db := testDB(t)
	rt := seedDeluxe(t, db)

	require.NoError(t, db.Create(&pricing.Coupon{
		Code:   "EVERYTHING",
		Kind:   pricing.DiscountFlat,
		Value:  money.FromInt(999999),
		Active: true,
	}).Error)

	calc := newCalculator(db)
	b, err := calc.Quote(context.Background(), pricing.QuoteInput{
		RoomTypeID: rt.ID,
		CheckIn:    date(t, "2026-11-10"),
		CheckOut:   date(t, "2026-11-11"),
		Adults:     2,
		CouponCode: "EVERYTHING",
	})
	require.NoError(t, err)

	assert.Equal(t, "2000", b.CouponDiscountAmount.String())
	assert.True(t, b.TaxableAmount.IsZero())
	assert.True(t, b.TotalAmount.IsZero())
}

func TestQuoteUnknownCouponFailsValidation(t *testing.T) {
	db := testDB(t)
	rt := seedDeluxe(t, db)
	calc := newCalculator(db)

	_, err := calc.Quote(context.Background(), pricing.QuoteInput{
		RoomTypeID: rt.ID,
		CheckIn:    date(t, "2026-11-10"),
		CheckOut:   date(t, "2026-11-12"),
		Adults:     2,
		CouponCode: "NOPE",
	})
	require.Error(t, err)
	ve := engine.AsValidation(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "couponCode")
}

func TestQuoteExhaustedCouponFailsValidation(t *testing.T) {
	db := testDB(t)
	rt := seedDeluxe(t, db)

	maxUses := 5
	require.NoError(t, db.Create(&pricing.Coupon{
		Code:      "SPENT",
		Kind:      pricing.DiscountPercent,
		Value:     money.FromInt(5),
		Active:    true,
		MaxUses:   &maxUses,
		UsedCount: 5,
	}).Error)

	calc := newCalculator(db)
	_, err := calc.Quote(context.Background(), pricing.QuoteInput{
		RoomTypeID: rt.ID,
		CheckIn:    date(t, "2026-11-10"),
		CheckOut:   date(t, "2026-11-12"),
		Adults:     2,
		CouponCode: "SPENT",
	})
	require.Error(t, err)
	assert.NotNil(t, engine.AsValidation(err))
}

func TestQuoteRejectsBadInput(t *testing.T) {
	db := testDB(t)
	rt := seedDeluxe(t, db)
	calc := newCalculator(db)

	_, err := calc.Quote(context.Background(), pricing.QuoteInput{
		RoomTypeID: rt.ID,
		CheckIn:    date(t, "2026-11-12"),
		CheckOut:   date(t, "2026-11-12"),
		Adults:     0,
	})
	require.Error(t, err)
	ve := engine.AsValidation(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "checkOutDate")
	assert.Contains(t, ve.Fields(), "adultsCount")
}

func TestQuoteUnknownRoomType(t *testing.T) {
	db := testDB(t)
	calc := newCalculator(db)

	_, err := calc.Quote(context.Background(), pricing.QuoteInput{
		RoomTypeID: 4242,
		CheckIn:    date(t, "2026-11-10"),
		CheckOut:   date(t, "2026-11-12"),
		Adults:     2,
	})
	require.Error(t, err)
	assert.NotNil(t, engine.AsNotFound(err))
}
