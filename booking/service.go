package booking

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/engine"
	"github.com/lodgekeep/lodgekeep/metrics"
	"github.com/lodgekeep/lodgekeep/money"
	"github.com/lodgekeep/lodgekeep/payment"
	"github.com/lodgekeep/lodgekeep/policy"
	"github.com/lodgekeep/lodgekeep/pricing"
	"github.com/lodgekeep/lodgekeep/room"
)

type RoomLedger interface {
	FreeRoom(ctx context.Context, tx *gorm.DB, roomTypeID uint, checkIn, checkOut time.Time) (*room.Room, error)
}

type RoomTypeSource interface {
	TypeByID(ctx context.Context, tx *gorm.DB, id uint) (*room.RoomType, error)
}

type Quoter interface {
	Quote(ctx context.Context, in pricing.QuoteInput) (*pricing.Breakdown, error)
}

type PolicySource interface {
	Resolve(ctx context.Context, tx *gorm.DB, override *uint) (*policy.CancellationPolicy, error)
}

type PaymentLedger interface {
	Record(ctx context.Context, tx *gorm.DB, in payment.RecordInput) (*payment.Payment, error)
}

type CouponConsumer interface {
	ConsumeCoupon(tx *gorm.DB, couponID uint) error
}

// Publisher broadcasts lifecycle events for external consumers. A nil
// publisher disables broadcasting.
type Publisher interface {
	Publish(event string, payload any)
}

// Service owns the booking lifecycle. Every transition is a total function
// from (state, event): it either produces the next state or fails with a
// declared error, and each one runs inside a keyed lock plus a transaction so
// ledger writes and state writes land together or not at all.
type Service struct {
	db       *gorm.DB
	l        log.Logger
	rooms    RoomLedger
	types    RoomTypeSource
	pricer   Quoter
	policies PolicySource
	payments PaymentLedger
	coupons  CouponConsumer
	events   Publisher
	currency string

	typeLocks    lockTable
	bookingLocks lockTable
}

type Deps struct {
	DB       *gorm.DB
	Log      log.Logger
	Rooms    RoomLedger
	Types    RoomTypeSource
	Pricer   Quoter
	Policies PolicySource
	Payments PaymentLedger
	Coupons  CouponConsumer
	Events   Publisher
	Currency string
}

func NewService(d Deps) *Service {
	return &Service{
		db:       d.DB,
		l:        d.Log,
		rooms:    d.Rooms,
		types:    d.Types,
		pricer:   d.Pricer,
		policies: d.Policies,
		payments: d.Payments,
		coupons:  d.Coupons,
		events:   d.Events,
		currency: d.Currency,
	}
}

type GuestInput struct {
	FullName string
	Email    string
	Phone    string
}

type CreateInput struct {
	RoomTypeID uint
	CheckIn    time.Time
	CheckOut   time.Time
	Adults     int
	Children   int
	CouponCode string
	Source     Source
	Guests     []GuestInput

	// Optional cross-currency display pair: when both are set the total is
	// mirrored into the booking currency at the given rate.
	BookingCurrency string
	ConversionRate  money.Amount
}

// Create commits a stay. Availability is re-checked and a concrete room chosen
// under the room type's lock, inside the same transaction that writes the
// booking, its guests and the coupon consumption, so two racing creates for
// the last room cannot both win: the loser gets CapacityError and must
// re-quote.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Booking, error) {
	ve := engine.NewValidationError()
	if len(in.Guests) == 0 {
		ve.Add("guests", "provide at least one guest")
	}
	for _, g := range in.Guests {
		if g.FullName == "" {
			ve.Add("guests", "guest name is required")
			break
		}
	}
	switch in.Source {
	case SourceOnline, SourceFrontDesk, SourcePhone:
	default:
		ve.Add("source", "must be one of ONLINE, FRONT_DESK, PHONE")
	}
	if ve.HasErrors() {
		return nil, ve
	}

	quote, err := s.pricer.Quote(ctx, pricing.QuoteInput{
		RoomTypeID: in.RoomTypeID,
		CheckIn:    in.CheckIn,
		CheckOut:   in.CheckOut,
		Adults:     in.Adults,
		Children:   in.Children,
		CouponCode: in.CouponCode,
	})
	if err != nil {
		return nil, err
	}

	unlock := s.typeLocks.acquire(in.RoomTypeID)
	defer unlock()

	var b *Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rm, err := s.rooms.FreeRoom(ctx, tx, in.RoomTypeID, in.CheckIn, in.CheckOut)
		if err != nil {
			if engine.AsCapacity(err) != nil {
				metrics.CapacityConflicts.Inc()
			}
			return err
		}

		checkIn, checkOut := room.DateOnly(in.CheckIn), room.DateOnly(in.CheckOut)
		b = &Booking{
			Reference:            uuid.NewString(),
			RoomTypeID:           in.RoomTypeID,
			RoomID:               rm.ID,
			CheckInDate:          checkIn,
			CheckOutDate:         checkOut,
			Nights:               quote.Nights,
			AdultsCount:          in.Adults,
			ChildrenCount:        in.Children,
			Source:               in.Source,
			Status:               initialStatus(in.Source),
			PaymentStatus:        payment.StatusNone,
			Currency:             s.currency,
			BaseAmount:           quote.BaseAmount,
			ExtraAdultAmount:     quote.ExtraAdultAmount,
			ExtraChildAmount:     quote.ExtraChildAmount,
			OfferDiscountAmount:  quote.OfferDiscountAmount,
			CouponDiscountAmount: quote.CouponDiscountAmount,
			TaxAmount:            quote.TaxAmount,
			TotalAmount:          quote.TotalAmount,
			PaidAmount:           money.Zero,
			OfferID:              quote.OfferID,
			CouponID:             quote.CouponID,
		}

		if in.BookingCurrency != "" && in.ConversionRate.IsPositive() {
			converted := money.Round2(quote.TotalAmount.Mul(in.ConversionRate))
			b.BookingCurrency = in.BookingCurrency
			b.AmountInBookingCurrency = &converted
		}

		for _, g := range in.Guests {
			b.Guests = append(b.Guests, Guest{FullName: g.FullName, Email: g.Email, Phone: g.Phone})
		}

		if err := tx.Create(b).Error; err != nil {
			return err
		}

		if quote.CouponID != nil {
			if err := s.coupons.ConsumeCoupon(tx, *quote.CouponID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	level.Info(s.l).Log(
		"msg", "booking created",
		"booking", b.ID,
		"reference", b.Reference,
		"room", b.RoomID,
		"status", b.Status,
		"total", b.TotalAmount,
	)
	s.publish("booking.created", b)

	return b, nil
}

type GuestDocument struct {
	GuestID  uint
	IDType   string
	IDNumber string
	IDImage  string
}

type PaymentInput struct {
	Amount    money.Amount
	Method    payment.Method
	Notes     string
	Reference string
}

type CheckInInput struct {
	Documents []GuestDocument

	// Optional same-transaction payment to close an outstanding balance at
	// the desk. Check-in itself does not require the booking to be fully
	// paid; that is a front-desk policy, not a state machine rule.
	Payment *PaymentInput
}

// CheckIn moves CONFIRMED to CHECKED_IN and writes identity documents onto the
// booking's guests.
func (s *Service) CheckIn(ctx context.Context, bookingID uint, in CheckInInput) (*Booking, error) {
	unlock := s.bookingLocks.acquire(bookingID)
	defer unlock()

	var b *Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = byID(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != StatusConfirmed {
			return &engine.InvalidStateError{Event: "check in", Current: string(b.Status)}
		}

		guests := make(map[uint]*Guest, len(b.Guests))
		for i := range b.Guests {
			guests[b.Guests[i].ID] = &b.Guests[i]
		}
		for _, doc := range in.Documents {
			g, ok := guests[doc.GuestID]
			if !ok {
				return engine.Invalidf("guests", "guest %d does not belong to booking %d", doc.GuestID, bookingID)
			}
			g.IDType = doc.IDType
			g.IDNumber = doc.IDNumber
			g.IDImage = doc.IDImage
			if err := tx.Model(&Guest{}).Where("id = ?", g.ID).
				Updates(map[string]any{"id_type": g.IDType, "id_number": g.IDNumber, "id_image": g.IDImage}).Error; err != nil {
				return err
			}
		}

		if in.Payment != nil {
			if _, err := s.payments.Record(ctx, tx, payment.RecordInput{
				BookingID: bookingID,
				Amount:    in.Payment.Amount,
				Method:    in.Payment.Method,
				Notes:     in.Payment.Notes,
				Reference: in.Payment.Reference,
			}); err != nil {
				return err
			}
			metrics.PaymentsRecorded.WithLabelValues(string(in.Payment.Method)).Inc()
		}

		return tx.Model(&Booking{}).Where("id = ?", bookingID).
			Update("status", StatusCheckedIn).Error
	})
	if err != nil {
		return nil, err
	}

	b, err = byID(s.db.WithContext(ctx), bookingID)
	if err != nil {
		return nil, err
	}

	level.Info(s.l).Log("msg", "guest checked in", "booking", b.ID, "paid", b.PaidAmount)
	s.publish("booking.checked_in", b)
	return b, nil
}

// CheckOut moves CHECKED_IN to CHECKED_OUT. No inventory is released: the
// nights are historical, not resellable.
func (s *Service) CheckOut(ctx context.Context, bookingID uint) (*Booking, error) {
	unlock := s.bookingLocks.acquire(bookingID)
	defer unlock()

	var b *Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = byID(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != StatusCheckedIn {
			return &engine.InvalidStateError{Event: "check out", Current: string(b.Status)}
		}
		b.Status = StatusCheckedOut
		return tx.Model(&Booking{}).Where("id = ?", bookingID).
			Update("status", StatusCheckedOut).Error
	})
	if err != nil {
		return nil, err
	}

	level.Info(s.l).Log("msg", "guest checked out", "booking", b.ID)
	s.publish("booking.checked_out", b)
	return b, nil
}

// Cancel moves PENDING_PAYMENT or CONFIRMED to CANCELLED. The refund
// percentage comes from the cancellation policy at the hours remaining until
// the check-in boundary; any refund lands in the ledger as a negative entry
// inside the same transaction that flips the state. Setting the state releases
// the nights, since only active statuses consume inventory.
func (s *Service) Cancel(ctx context.Context, bookingID uint, reason string) (*Booking, error) {
	unlock := s.bookingLocks.acquire(bookingID)
	defer unlock()

	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := byID(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != StatusPendingPayment && b.Status != StatusConfirmed {
			return &engine.InvalidStateError{Event: "cancel", Current: string(b.Status)}
		}

		rt, err := s.types.TypeByID(ctx, tx, b.RoomTypeID)
		if err != nil {
			return err
		}
		pol, err := s.policies.Resolve(ctx, tx, rt.PolicyID)
		if err != nil {
			return err
		}

		hours := b.CheckInDate.Sub(now).Hours()
		pct := policy.RefundPercent(pol, hours)
		refund := money.PercentInt(b.PaidAmount, pct)

		if refund.IsPositive() {
			if _, err := s.payments.Record(ctx, tx, payment.RecordInput{
				BookingID: bookingID,
				Amount:    refund.Neg(),
				Method:    payment.MethodRefund,
				Notes:     reason,
			}); err != nil {
				return err
			}
		}

		level.Info(s.l).Log(
			"msg", "booking cancelled",
			"booking", b.ID,
			"hoursBeforeCheckIn", hours,
			"refundPercent", pct,
			"refund", refund,
		)

		return tx.Model(&Booking{}).Where("id = ?", bookingID).
			Updates(map[string]any{
				"status":        StatusCancelled,
				"cancel_reason": reason,
				"cancelled_at":  now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	b, err := byID(s.db.WithContext(ctx), bookingID)
	if err != nil {
		return nil, err
	}

	metrics.BookingsCancelled.Inc()
	s.publish("booking.cancelled", b)
	return b, nil
}

// RecordPayment appends a manual or gateway-confirmed payment under the
// booking's lock. Settling a PENDING_PAYMENT booking in full confirms it.
func (s *Service) RecordPayment(ctx context.Context, bookingID uint, in PaymentInput) (*payment.Payment, error) {
	unlock := s.bookingLocks.acquire(bookingID)
	defer unlock()

	var p *payment.Payment
	var confirmed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := byID(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == StatusCancelled {
			return &engine.InvalidStateError{Event: "record a payment on", Current: string(b.Status)}
		}

		p, err = s.payments.Record(ctx, tx, payment.RecordInput{
			BookingID: bookingID,
			Amount:    in.Amount,
			Method:    in.Method,
			Notes:     in.Notes,
			Reference: in.Reference,
		})
		if err != nil {
			return err
		}

		b, err = byID(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == StatusPendingPayment && b.PaymentStatus == payment.StatusFull {
			confirmed = true
			return tx.Model(&Booking{}).Where("id = ?", bookingID).
				Update("status", StatusConfirmed).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(in.Method)).Inc()
	if confirmed {
		if b, err := byID(s.db.WithContext(ctx), bookingID); err == nil {
			level.Info(s.l).Log("msg", "booking confirmed by payment", "booking", bookingID)
			s.publish("booking.confirmed", b)
		}
	}

	return p, nil
}

// LifecycleEvent is the payload broadcast on every booking transition.
type LifecycleEvent struct {
	BookingID    uint         `json:"bookingId"`
	Reference    string       `json:"reference"`
	Status       Status       `json:"status"`
	RoomTypeID   uint         `json:"roomTypeId"`
	RoomID       uint         `json:"roomId"`
	CheckInDate  string       `json:"checkInDate"`
	CheckOutDate string       `json:"checkOutDate"`
	Currency     string       `json:"currency"`
	TotalAmount  money.Amount `json:"totalAmount"`
	PaidAmount   money.Amount `json:"paidAmount"`
}

func (s *Service) publish(event string, b *Booking) {
	if s.events == nil {
		return
	}
	s.events.Publish(event, LifecycleEvent{
		BookingID:    b.ID,
		Reference:    b.Reference,
		Status:       b.Status,
		RoomTypeID:   b.RoomTypeID,
		RoomID:       b.RoomID,
		CheckInDate:  b.CheckInDate.Format(time.DateOnly),
		CheckOutDate: b.CheckOutDate.Format(time.DateOnly),
		Currency:     b.Currency,
		TotalAmount:  b.TotalAmount,
		PaidAmount:   b.PaidAmount,
	})
}
