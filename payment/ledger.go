package payment

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/engine"
	"github.com/lodgekeep/lodgekeep/money"
)

// Ledger appends money movements and keeps each booking's paid amount equal to
// the sum of its non-voided entries. It updates the bookings table by column
// so the dependency between packages points one way.
type Ledger struct {
	db *gorm.DB
	l  log.Logger
}

func NewLedger(db *gorm.DB, l log.Logger) *Ledger {
	return &Ledger{db: db, l: l}
}

type RecordInput struct {
	BookingID uint
	Amount    money.Amount
	Method    Method
	Notes     string
	Reference string
}

// Record appends an entry and recomputes the booking's paid amount and payment
// status. When tx is non-nil the whole thing joins the caller's transaction,
// which is how lifecycle transitions keep ledger writes and state writes in
// one atomic unit. The booking's total is never touched.
//
// A positive entry may not push the paid amount past the total; negative
// (refund) entries are exempt, since they only ever bring it back down.
func (lg *Ledger) Record(ctx context.Context, tx *gorm.DB, in RecordInput) (*Payment, error) {
	if tx == nil {
		tx = lg.db
	}
	tx = tx.WithContext(ctx)

	if in.Amount.IsZero() {
		return nil, engine.Invalidf("amount", "must not be zero")
	}

	var rows []struct {
		TotalAmount money.Amount
	}
	err := tx.Raw(`SELECT total_amount FROM bookings WHERE id = ? AND deleted_at IS NULL`, in.BookingID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &engine.NotFoundError{Resource: "booking", ID: in.BookingID}
	}
	total := rows[0].TotalAmount

	paid, err := lg.sumEntries(tx, in.BookingID)
	if err != nil {
		return nil, err
	}

	if in.Amount.IsPositive() && paid.Add(in.Amount).GreaterThan(total) {
		return nil, engine.Invalidf("amount", "exceeds outstanding balance of %s", total.Sub(paid))
	}

	p := &Payment{
		BookingID: in.BookingID,
		Amount:    money.Round2(in.Amount),
		Method:    in.Method,
		Notes:     in.Notes,
		Reference: in.Reference,
	}
	if err := tx.Create(p).Error; err != nil {
		return nil, err
	}

	paid = paid.Add(p.Amount)
	status := DeriveStatus(paid, total)

	err = tx.Table("bookings").
		Where("id = ?", in.BookingID).
		Updates(map[string]any{"paid_amount": paid, "payment_status": status}).Error
	if err != nil {
		return nil, err
	}

	level.Info(lg.l).Log(
		"msg", "payment recorded",
		"booking", in.BookingID,
		"amount", p.Amount,
		"method", p.Method,
		"paid", paid,
		"status", status,
	)

	return p, nil
}

// ForBooking lists a booking's ledger entries, oldest first, voided included
// for audit.
func (lg *Ledger) ForBooking(ctx context.Context, bookingID uint) ([]Payment, error) {
	var n int64
	if err := lg.db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM bookings WHERE id = ? AND deleted_at IS NULL`, bookingID).Scan(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &engine.NotFoundError{Resource: "booking", ID: bookingID}
	}

	var entries []Payment
	err := lg.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// sumEntries recomputes net collected money from the entries themselves rather
// than trusting the cached column.
func (lg *Ledger) sumEntries(tx *gorm.DB, bookingID uint) (money.Amount, error) {
	var entries []Payment
	err := tx.Where("booking_id = ? AND voided = ?", bookingID, false).Find(&entries).Error
	if err != nil {
		return money.Zero, err
	}

	paid := money.Zero
	for _, e := range entries {
		paid = paid.Add(e.Amount)
	}
	return paid, nil
}

// DeriveStatus maps a paid/total pair onto the booking's payment status.
func DeriveStatus(paid, total money.Amount) Status {
	switch {
	case !paid.IsPositive():
		return StatusNone
	case paid.GreaterThanOrEqual(total):
		return StatusFull
	default:
		return StatusPartial
	}
}
