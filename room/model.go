package room

import (
	"time"

	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/money"
)

// RoomType is a sellable category of rooms sharing price and capacity rules.
// Rate fields are snapshotted onto the booking at creation time, so a booking
// is unaffected by later edits here.
type RoomType struct {
	gorm.Model
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	BasePrice         money.Amount `json:"basePrice" gorm:"type:decimal(12,2)"`
	MaxAdults         int          `json:"maxAdults"`
	MaxChildren       int          `json:"maxChildren"`
	ExtraAdultPrice   money.Amount `json:"extraAdultPrice" gorm:"type:decimal(12,2)"`
	ExtraChildPrice   money.Amount `json:"extraChildPrice" gorm:"type:decimal(12,2)"`
	FreeChildrenCount int          `json:"freeChildrenCount"`
	TaxRatePercent    money.Amount `json:"taxRatePercent" gorm:"type:decimal(5,2)"`

	// PolicyID overrides the property default cancellation policy when set.
	PolicyID *uint `json:"policyId"`

	Rooms []Room `json:"rooms,omitempty"`
}

// Room is one physical unit belonging to exactly one RoomType.
type Room struct {
	gorm.Model
	RoomTypeID uint        `json:"roomTypeId" gorm:"index"`
	Number     string      `json:"number"`
	Blocks     []RoomBlock `json:"blocks,omitempty"`
}

// RoomBlock is an administrative unavailability window (maintenance,
// owner use). The window is half-open: [StartDate, EndDate).
type RoomBlock struct {
	gorm.Model
	RoomID    uint      `json:"roomId" gorm:"index"`
	Reason    string    `json:"reason"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}
