package payment

import (
	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/money"
)

// Method is how money moved. GATEWAY entries carry the external payment
// reference; the gateway itself is outside the engine.
type Method string

const (
	MethodCash     Method = "CASH"
	MethodCard     Method = "CARD"
	MethodTransfer Method = "TRANSFER"
	MethodGateway  Method = "GATEWAY"
	MethodRefund   Method = "REFUND"
)

// Status is the derived paid state of a booking: nothing collected, part of
// the total, or the full total (or more, during refund windows).
type Status string

const (
	StatusNone    Status = "NONE"
	StatusPartial Status = "PARTIAL"
	StatusFull    Status = "FULL"
)

// Payment is one money movement against a booking. Amounts are signed:
// positive is collected, negative is refunded. Entries are never edited or
// deleted; corrections void the entry and append a new one.
type Payment struct {
	gorm.Model
	BookingID uint         `json:"bookingId" gorm:"index"`
	Amount    money.Amount `json:"amount" gorm:"type:decimal(12,2)"`
	Method    Method       `json:"method"`
	Notes     string       `json:"notes"`
	Reference string       `json:"reference"`
	Voided    bool         `json:"voided" gorm:"default:false"`
}
