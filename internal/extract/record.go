package extract

import (
	"github.com/shopspring/decimal"
)

// Record is the structured portfolio state pulled out of a pasted dashboard.
// Every numeric field uses NullDecimal so "the model did not find it" stays
// distinguishable from a genuine zero all the way to the database merge.
type Record struct {
	Balance      decimal.NullDecimal `json:"balance"`
	TotalPoints  decimal.NullDecimal `json:"total_points"`
	PointDelta   decimal.NullDecimal `json:"point_delta"`
	Rank         *string             `json:"rank"`
	TotalFees    decimal.NullDecimal `json:"total_fees"`
	FeesToday    decimal.NullDecimal `json:"fees_today"`
	PendingYield decimal.NullDecimal `json:"pending_yield"`

	Positions []PositionRecord `json:"positions"`

	// Slot hint detected in the input itself, e.g. "Akun 3" / "Account 3".
	AccountNumber *int    `json:"account_number"`
	AccountName   *string `json:"account_name"`
}

// PositionRecord is one active liquidity pair as extracted.
type PositionRecord struct {
	Pair         string              `json:"pair"`
	Size         decimal.NullDecimal `json:"size"`
	Rate         decimal.NullDecimal `json:"rate"`
	PriceRange   string              `json:"price_range"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	Status       string              `json:"status"`
	InRange      bool                `json:"in_range"`
	Unclaimed    decimal.NullDecimal `json:"unclaimed"`
}

// HasBalance reports whether the extraction produced a usable balance.
// Callers must prompt for a manual number before persisting when it is false.
func (r *Record) HasBalance() bool {
	return r != nil && r.Balance.Valid
}

// SetBalance fills in a manually supplied balance.
func (r *Record) SetBalance(d decimal.Decimal) {
	r.Balance = decimal.NullDecimal{Decimal: d, Valid: true}
}

// SlotHint returns the detected account slot if it falls in the valid 1-10
// range, 0 otherwise.
func (r *Record) SlotHint() int {
	if r == nil || r.AccountNumber == nil {
		return 0
	}
	if n := *r.AccountNumber; n >= 1 && n <= 10 {
		return n
	}
	return 0
}
