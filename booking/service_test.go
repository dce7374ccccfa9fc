package booking_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lodgekeep/lodgekeep/booking"
	"github.com/lodgekeep/lodgekeep/engine"
	"github.com/lodgekeep/lodgekeep/money"
	"github.com/lodgekeep/lodgekeep/payment"
	"github.com/lodgekeep/lodgekeep/policy"
	"github.com/lodgekeep/lodgekeep/pricing"
	"github.com/lodgekeep/lodgekeep/room"
	"github.com/lodgekeep/lodgekeep/storage"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturingPublisher) Publish(event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturingPublisher) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type env struct {
	db     *gorm.DB
	svc    *booking.Service
	rooms  *room.Ledger
	pay    *payment.Ledger
	rt     *room.RoomType
	pub    *capturingPublisher
	repo   *booking.Repository
	pricer *pricing.Calculator
}

func newEnv(t *testing.T, roomCount int) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, storage.Migrate(db))
	require.NoError(t, storage.Seed(db))

	rt := &room.RoomType{
		Name:            "Deluxe",
		BasePrice:       money.FromInt(2000),
		MaxAdults:       2,
		ExtraAdultPrice: money.FromInt(500),
		TaxRatePercent:  money.FromInt(12),
	}
	require.NoError(t, db.Create(rt).Error)
	for i := 0; i < roomCount; i++ {
		require.NoError(t, db.Create(&room.Room{RoomTypeID: rt.ID, Number: fmt.Sprintf("%d", 100+i)}).Error)
	}

	logger := log.NewNopLogger()
	roomsRepo := room.NewRepository(db)
	ledger := room.NewLedger(db, roomsRepo, logger)
	priceRepo := pricing.NewRepository(db)
	calc := pricing.NewCalculator(roomsRepo, priceRepo, "USD")
	payLedger := payment.NewLedger(db, logger)
	pub := &capturingPublisher{}

	svc := booking.NewService(booking.Deps{
		DB:       db,
		Log:      logger,
		Rooms:    ledger,
		Types:    roomsRepo,
		Pricer:   calc,
		Policies: policy.NewRepository(db),
		Payments: payLedger,
		Coupons:  priceRepo,
		Events:   pub,
		Currency: "USD",
	})

	return &env{
		db:     db,
		svc:    svc,
		rooms:  ledger,
		pay:    payLedger,
		rt:     rt,
		pub:    pub,
		repo:   booking.NewRepository(db),
		pricer: calc,
	}
}

func stay(t *testing.T, in, out string) (time.Time, time.Time) {
	t.Helper()
	a, err := time.Parse(time.DateOnly, in)
	require.NoError(t, err)
	b, err := time.Parse(time.DateOnly, out)
	require.NoError(t, err)
	return a, b
}

func (e *env) create(t *testing.T, source booking.Source, in, out string) *booking.Booking {
	t.Helper()
	checkIn, checkOut := stay(t, in, out)
	b, err := e.svc.Create(context.Background(), booking.CreateInput{
		RoomTypeID: e.rt.ID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     2,
		Source:     source,
		Guests:     []booking.GuestInput{{FullName: "Ada Wong", Email: "ada@example.com"}},
	})
	require.NoError(t, err)
	return b
}

// insert writes a booking row directly, bypassing the service, for scenarios
// that need exact check-in timestamps or pre-set states.
func (e *env) insert(t *testing.T, status booking.Status, checkIn time.Time, total int64) *booking.Booking {
	t.Helper()
	b := &booking.Booking{
		Reference:    fmt.Sprintf("ref-%d", time.Now().UnixNano()),
		RoomTypeID:   e.rt.ID,
		RoomID:       1,
		CheckInDate:  checkIn,
		CheckOutDate: checkIn.AddDate(0, 0, 2),
		Status:       status,
		TotalAmount:  money.FromInt(total),
	}
	require.NoError(t, e.db.Create(b).Error)
	return b
}

func TestCreateFrontDeskBooking(t *testing.T) {
	e := newEnv(t, 2)

	b := e.create(t, booking.SourceFrontDesk, "2027-03-10", "2027-03-13")

	assert.Equal(t, booking.StatusConfirmed, b.Status)
	assert.Equal(t, payment.StatusNone, b.PaymentStatus)
	assert.NotEmpty(t, b.Reference)
	assert.Equal(t, 3, b.Nights)
	assert.Equal(t, "6000", b.TotalAmount.Sub(b.TaxAmount).String())
	assert.Equal(t, "6720", b.TotalAmount.String())
	assert.True(t, b.PaidAmount.IsZero())
	require.Len(t, b.Guests, 1)
	assert.Contains(t, e.pub.seen(), "booking.created")
}

func TestCreateOnlineBookingStartsPendingPayment(t *testing.T) {
	e := newEnv(t, 1)

	b := e.create(t, booking.SourceOnline, "2027-03-10", "2027-03-12")
	assert.Equal(t, booking.StatusPendingPayment, b.Status)

	// A pending booking holds its nights.
	avail, err := e.rooms.CheckAvailability(context.Background(), e.rt.ID, b.CheckInDate, b.CheckOutDate)
	require.NoError(t, err)
	assert.False(t, avail.Available)
}

func TestCreateValidatesGuestsAndSource(t *testing.T) {
	e := newEnv(t, 1)
	checkIn, checkOut := stay(t, "2027-03-10", "2027-03-12")

	_, err := e.svc.Create(context.Background(), booking.CreateInput{
		RoomTypeID: e.rt.ID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     2,
		Source:     "CARRIER_PIGEON",
	})
	require.Error(t, err)
	ve := engine.AsValidation(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "guests")
	assert.Contains(t, ve.Fields(), "source")
}

func TestCreateConsumesCoupon(t *testing.T) {
	e := newEnv(t, 1)
	require.NoError(t, e.db.Create(&pricing.Coupon{
		Code:   "TENOFF",
		Kind:   pricing.DiscountPercent,
		Value:  money.FromInt(10),
		Active: true,
	}).Error)

	checkIn, checkOut := stay(t, "2027-03-10", "2027-03-12")
	b, err := e.svc.Create(context.Background(), booking.CreateInput{
		RoomTypeID: e.rt.ID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     2,
		CouponCode: "TENOFF",
		Source:     booking.SourceFrontDesk,
		Guests:     []booking.GuestInput{{FullName: "Ada Wong"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "400", b.CouponDiscountAmount.String())
	require.NotNil(t, b.CouponID)

	var c pricing.Coupon
	require.NoError(t, e.db.Where("code = ?", "TENOFF").First(&c).Error)
	assert.Equal(t, 1, c.UsedCount)
}

func TestCreateLastRoomRace(t *testing.T) {
	e := newEnv(t, 1)
	checkIn, checkOut := stay(t, "2027-03-10", "2027-03-13")

	const contenders = 8
	errs := make(chan error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Create(context.Background(), booking.CreateInput{
				RoomTypeID: e.rt.ID,
				CheckIn:    checkIn,
				CheckOut:   checkOut,
				Adults:     2,
				Source:     booking.SourceFrontDesk,
				Guests:     []booking.GuestInput{{FullName: "Ada Wong"}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins, capacityLosses := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case engine.AsCapacity(err) != nil:
			capacityLosses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one contender may take the last room")
	assert.Equal(t, contenders-1, capacityLosses)
}

func TestCheckInWithDocumentsAndPayment(t *testing.T) {
	e := newEnv(t, 1)
	b := e.create(t, booking.SourceFrontDesk, "2027-03-10", "2027-03-13")

	got, err := e.svc.CheckIn(context.Background(), b.ID, booking.CheckInInput{
		Documents: []booking.GuestDocument{{
			GuestID:  b.Guests[0].ID,
			IDType:   "passport",
			IDNumber: "X1234567",
		}},
		Payment: &booking.PaymentInput{
			Amount: money.FromInt(3000),
			Method: payment.MethodCash,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, booking.StatusCheckedIn, got.Status)
	assert.Equal(t, "3000", got.PaidAmount.String())
	assert.Equal(t, payment.StatusPartial, got.PaymentStatus)
	require.Len(t, got.Guests, 1)
	assert.Equal(t, "passport", got.Guests[0].IDType)
	assert.Contains(t, e.pub.seen(), "booking.checked_in")
}

func TestCheckInRejectsForeignGuestDocument(t *testing.T) {
	e := newEnv(t, 2)
	b := e.create(t, booking.SourceFrontDesk, "2027-03-10", "2027-03-12")
	other := e.create(t, booking.SourceFrontDesk, "2027-04-10", "2027-04-12")

	_, err := e.svc.CheckIn(context.Background(), b.ID, booking.CheckInInput{
		Documents: []booking.GuestDocument{{GuestID: other.Guests[0].ID, IDType: "passport"}},
	})
	require.Error(t, err)
	assert.NotNil(t, engine.AsValidation(err))

	got, err := e.repo.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status, "a failed check-in must not move the state")
}

func TestLifecycleHappyPath(t *testing.T) {
	e := newEnv(t, 1)
	b := e.create(t, booking.SourceFrontDesk, "2027-03-10", "2027-03-12")

	_, err := e.svc.CheckIn(context.Background(), b.ID, booking.CheckInInput{})
	require.NoError(t, err)

	got, err := e.svc.CheckOut(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCheckedOut, got.Status)
	assert.Contains(t, e.pub.seen(), "booking.checked_out")
}

func TestInvalidTransitions(t *testing.T) {
	e := newEnv(t, 1)
	ctx := context.Background()
	future := time.Now().UTC().Add(30 * 24 * time.Hour)

	cases := []struct {
		name string
		from booking.Status
		call func(id uint) error
	}{
		{"check in pending payment", booking.StatusPendingPayment, func(id uint) error {
			_, err := e.svc.CheckIn(ctx, id, booking.CheckInInput{})
			return err
		}},
		{"check in checked out", booking.StatusCheckedOut, func(id uint) error {
			_, err := e.svc.CheckIn(ctx, id, booking.CheckInInput{})
			return err
		}},
		{"check out confirmed", booking.StatusConfirmed, func(id uint) error {
			_, err := e.svc.CheckOut(ctx, id)
			return err
		}},
		{"cancel checked in", booking.StatusCheckedIn, func(id uint) error {
			_, err := e.svc.Cancel(ctx, id, "changed plans")
			return err
		}},
		{"cancel cancelled", booking.StatusCancelled, func(id uint) error {
			_, err := e.svc.Cancel(ctx, id, "again")
			return err
		}},
		{"pay cancelled", booking.StatusCancelled, func(id uint) error {
			_, err := e.svc.RecordPayment(ctx, id, booking.PaymentInput{
				Amount: money.FromInt(100), Method: payment.MethodCash,
			})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := e.insert(t, tc.from, future, 8400)
			err := tc.call(b.ID)
			require.Error(t, err)
			se := engine.AsInvalidState(err)
			require.NotNil(t, se, "want InvalidStateError, got %v", err)
			assert.Equal(t, string(tc.from), se.Current)
		})
	}
}

func TestTransitionOnUnknownBooking(t *testing.T) {
	e := newEnv(t, 1)

	_, err := e.svc.CheckOut(context.Background(), 9999)
	require.Error(t, err)
	assert.NotNil(t, engine.AsNotFound(err))
}

func TestCancelFullRefundWindow(t *testing.T) {
	e := newEnv(t, 1)
	b := e.insert(t, booking.StatusConfirmed, time.Now().UTC().Add(50*time.Hour), 8400)

	_, err := e.svc.RecordPayment(context.Background(), b.ID, booking.PaymentInput{
		Amount: money.FromInt(8400), Method: payment.MethodCard,
	})
	require.NoError(t, err)

	got, err := e.svc.Cancel(context.Background(), b.ID, "changed plans")
	require.NoError(t, err)

	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Equal(t, "changed plans", got.CancelReason)
	require.NotNil(t, got.CancelledAt)
	assert.True(t, got.PaidAmount.IsZero(), "100%% refund window leaves nothing collected")

	entries, err := e.pay.ForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, payment.MethodRefund, entries[1].Method)
	assert.Equal(t, "-8400", entries[1].Amount.String())
}

func TestCancelHalfRefundWindow(t *testing.T) {
	e := newEnv(t, 1)
	b := e.insert(t, booking.StatusConfirmed, time.Now().UTC().Add(30*time.Hour), 8400)

	_, err := e.svc.RecordPayment(context.Background(), b.ID, booking.PaymentInput{
		Amount: money.FromInt(8400), Method: payment.MethodCard,
	})
	require.NoError(t, err)

	got, err := e.svc.Cancel(context.Background(), b.ID, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, "4200", got.PaidAmount.String())
}

func TestCancelInsideNoRefundWindow(t *testing.T) {
	e := newEnv(t, 1)
	b := e.insert(t, booking.StatusConfirmed, time.Now().UTC().Add(10*time.Hour), 8400)

	_, err := e.svc.RecordPayment(context.Background(), b.ID, booking.PaymentInput{
		Amount: money.FromInt(8400), Method: payment.MethodCard,
	})
	require.NoError(t, err)

	got, err := e.svc.Cancel(context.Background(), b.ID, "too late")
	require.NoError(t, err)

	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Equal(t, "8400", got.PaidAmount.String(), "inside 24h nothing is refunded")

	entries, err := e.pay.ForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no refund entry is appended for a 0%% refund")
}

func TestCancelUnpaidBookingWritesNoLedgerEntry(t *testing.T) {
	e := newEnv(t, 1)
	b := e.create(t, booking.SourceFrontDesk, "2027-03-10", "2027-03-12")

	got, err := e.svc.Cancel(context.Background(), b.ID, "no show risk")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)

	entries, err := e.pay.ForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, e.pub.seen(), "booking.cancelled")
}

func TestCancelReleasesInventory(t *testing.T) {
	e := newEnv(t, 1)
	b := e.create(t, booking.SourceFrontDesk, "2027-03-10", "2027-03-13")

	avail, err := e.rooms.CheckAvailability(context.Background(), e.rt.ID, b.CheckInDate, b.CheckOutDate)
	require.NoError(t, err)
	require.False(t, avail.Available)

	_, err = e.svc.Cancel(context.Background(), b.ID, "plans changed")
	require.NoError(t, err)

	avail, err = e.rooms.CheckAvailability(context.Background(), e.rt.ID, b.CheckInDate, b.CheckOutDate)
	require.NoError(t, err)
	assert.True(t, avail.Available, "cancelling must free the nights")
}

func TestFullPaymentConfirmsPendingBooking(t *testing.T) {
	e := newEnv(t, 1)
	b := e.create(t, booking.SourceOnline, "2027-03-10", "2027-03-12")
	require.Equal(t, booking.StatusPendingPayment, b.Status)

	_, err := e.svc.RecordPayment(context.Background(), b.ID, booking.PaymentInput{
		Amount:    b.TotalAmount,
		Method:    payment.MethodGateway,
		Reference: "gw-tx-001",
	})
	require.NoError(t, err)

	got, err := e.repo.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
	assert.Equal(t, payment.StatusFull, got.PaymentStatus)
	assert.Contains(t, e.pub.seen(), "booking.confirmed")
}

func TestPartialPaymentKeepsBookingPending(t *testing.T) {
	e := newEnv(t, 1)
	b := e.create(t, booking.SourceOnline, "2027-03-10", "2027-03-12")

	_, err := e.svc.RecordPayment(context.Background(), b.ID, booking.PaymentInput{
		Amount: money.FromInt(1000),
		Method: payment.MethodGateway,
	})
	require.NoError(t, err)

	got, err := e.repo.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPendingPayment, got.Status)
	assert.Equal(t, payment.StatusPartial, got.PaymentStatus)
}

func TestListFiltersByRangeAndStatus(t *testing.T) {
	e := newEnv(t, 3)
	e.create(t, booking.SourceFrontDesk, "2027-03-10", "2027-03-13")
	e.create(t, booking.SourceFrontDesk, "2027-05-01", "2027-05-04")
	cancelled := e.create(t, booking.SourceFrontDesk, "2027-03-11", "2027-03-12")
	_, err := e.svc.Cancel(context.Background(), cancelled.ID, "dup")
	require.NoError(t, err)

	from, to := stay(t, "2027-03-01", "2027-04-01")
	got, err := e.repo.List(context.Background(), booking.ListFilter{
		From: &from, To: &to, Status: booking.StatusConfirmed,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2027-03-10", got[0].CheckInDate.Format(time.DateOnly))
}
