package policy

import "gorm.io/gorm"

// CancellationPolicy is an ordered set of refund rules. Exactly one policy per
// property is marked default; room types may point at an overriding policy.
type CancellationPolicy struct {
	gorm.Model
	Name      string             `json:"name"`
	IsDefault bool               `json:"isDefault"`
	Rules     []CancellationRule `json:"rules" gorm:"foreignKey:PolicyID"`
}

// CancellationRule pays RefundPercent when a cancellation happens at least
// HoursBeforeCheckIn hours ahead of the check-in boundary.
type CancellationRule struct {
	gorm.Model
	PolicyID           uint `json:"policyId" gorm:"index"`
	HoursBeforeCheckIn int  `json:"hoursBeforeCheckIn"`
	RefundPercent      int  `json:"refundPercent"`
}
