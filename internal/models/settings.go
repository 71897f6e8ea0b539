package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings is the marketplace configuration singleton read by the
// settlement engine. Money values are in cents, reward bonuses for
// first sale and profile completion are in points.
type Settings struct {
	PlatformCommissionRate decimal.Decimal  `json:"platformCommissionRate"`
	PlatformFee            int64            `json:"platformFee"`
	Rewards                Rewards          `json:"rewards"`
	CallRates              map[string]int64 `json:"callRates"`
	WithdrawalMinAmount    int64            `json:"withdrawalMinAmount"`
	WithdrawalMaxAmount    int64            `json:"withdrawalMaxAmount"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// Rewards holds the one-shot bonus amounts.
type Rewards struct {
	ProfileCompletionBonus int64 `json:"profileCompletionBonus"`
	FirstSaleBonus         int64 `json:"firstSaleBonus"`
	WelcomeBonusAmount     int64 `json:"welcomeBonusAmount"`
}
