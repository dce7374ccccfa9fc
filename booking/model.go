package booking

import (
	"time"

	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/money"
	"github.com/lodgekeep/lodgekeep/payment"
)

// Status is the booking lifecycle state. PENDING_PAYMENT and CONFIRMED are
// both active-not-yet-checked-in; the difference is whether the source's
// payment policy requires gateway confirmation first.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCheckedIn      Status = "CHECKED_IN"
	StatusCheckedOut     Status = "CHECKED_OUT"
	StatusCancelled      Status = "CANCELLED"
)

// Source is where the booking came from. Online bookings start
// PENDING_PAYMENT until the gateway settles them; staff-entered ones are
// confirmed immediately.
type Source string

const (
	SourceOnline    Source = "ONLINE"
	SourceFrontDesk Source = "FRONT_DESK"
	SourcePhone     Source = "PHONE"
)

func initialStatus(s Source) Status {
	if s == SourceOnline {
		return StatusPendingPayment
	}
	return StatusConfirmed
}

// Booking is the central aggregate. Monetary fields are snapshots of the rate
// card at creation time; PaidAmount is maintained by the payment ledger as the
// sum of the booking's entries. Bookings are never hard-deleted — cancellation
// is a terminal state, and the row stays for audit.
type Booking struct {
	gorm.Model
	Reference  string `json:"reference" gorm:"uniqueIndex"`
	RoomTypeID uint   `json:"roomTypeId" gorm:"index"`
	RoomID     uint   `json:"roomId" gorm:"index"`

	CheckInDate   time.Time `json:"checkInDate"`
	CheckOutDate  time.Time `json:"checkOutDate"`
	Nights        int       `json:"nights"`
	AdultsCount   int       `json:"adultsCount"`
	ChildrenCount int       `json:"childrenCount"`

	Source        Source         `json:"source"`
	Status        Status         `json:"status" gorm:"index"`
	PaymentStatus payment.Status `json:"paymentStatus"`

	Currency             string       `json:"currency"`
	BaseAmount           money.Amount `json:"baseAmount" gorm:"type:decimal(12,2)"`
	ExtraAdultAmount     money.Amount `json:"extraAdultAmount" gorm:"type:decimal(12,2)"`
	ExtraChildAmount     money.Amount `json:"extraChildAmount" gorm:"type:decimal(12,2)"`
	OfferDiscountAmount  money.Amount `json:"offerDiscountAmount" gorm:"type:decimal(12,2)"`
	CouponDiscountAmount money.Amount `json:"couponDiscountAmount" gorm:"type:decimal(12,2)"`
	TaxAmount            money.Amount `json:"taxAmount" gorm:"type:decimal(12,2)"`
	TotalAmount          money.Amount `json:"totalAmount" gorm:"type:decimal(12,2)"`
	PaidAmount           money.Amount `json:"paidAmount" gorm:"type:decimal(12,2)"`

	// Optional parallel pair for cross-currency properties.
	BookingCurrency         string        `json:"bookingCurrency,omitempty"`
	AmountInBookingCurrency *money.Amount `json:"amountInBookingCurrency,omitempty" gorm:"type:decimal(12,2)"`

	OfferID  *uint `json:"offerId,omitempty"`
	CouponID *uint `json:"couponId,omitempty"`

	CancelReason string     `json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`

	Guests   []Guest           `json:"guests"`
	Payments []payment.Payment `json:"payments,omitempty" gorm:"foreignKey:BookingID"`
}

// Guest is a person attached to a booking. Identity-document fields are empty
// until check-in; the image field is an opaque reference, never file content.
type Guest struct {
	gorm.Model
	BookingID uint   `json:"bookingId" gorm:"index"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IDType    string `json:"idType"`
	IDNumber  string `json:"idNumber"`
	IDImage   string `json:"idImage"`
}
