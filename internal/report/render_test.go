package report

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/danverbz/lpfolio/internal/database"
	"github.com/danverbz/lpfolio/internal/extract"
)

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestSummaryEmpty(t *testing.T) {
	out := Summary(nil)
	assert.Contains(t, out, "No accounts yet")
}

func TestSummaryAggregates(t *testing.T) {
	accounts := []database.Account{
		{Slot: 1, Balance: dec(1000), Points: dec(50), Fees: dec(3), PendingYield: dec(1)},
		{Slot: 2, Balance: dec(250.50), Points: dec(10), Fees: dec(2), PendingYield: dec(0.5)},
	}

	out := Summary(accounts)
	assert.Contains(t, out, "*Accounts:* 2")
	assert.Contains(t, out, "$1250.5")
	assert.Contains(t, out, "*Total Points:* 60")
	assert.Contains(t, out, "*Total Fees:* $5")
	assert.Contains(t, out, "*Pending Yield:* $1.5")
}

func TestAnalysisDeltaAgainstPriorSnapshot(t *testing.T) {
	account := database.Account{Slot: 1, Balance: dec(1200), Points: dec(100)}
	prev := &database.DailyHistory{Balance: dec(1000), Points: dec(90)}

	out := Analysis(account, nil, prev, decimal.NewFromInt(1))
	assert.Contains(t, out, "$1200 (+200)")
	assert.Contains(t, out, "100 (+10)")
	assert.NotContains(t, out, "No prior snapshot")
}

func TestAnalysisNeutralWithoutSnapshot(t *testing.T) {
	account := database.Account{Slot: 1, Balance: dec(1200)}

	out := Analysis(account, nil, nil, decimal.NewFromInt(1))
	assert.Contains(t, out, "(±0)")
	assert.Contains(t, out, "No prior snapshot")
}

func TestAnalysisPositions(t *testing.T) {
	account := database.Account{Slot: 2, Balance: dec(1000)}
	positions := []database.Position{
		{Pair: "SOL/USDC", Size: dec(600), Rate: dec(36.5), InRange: true},
		{Pair: "ETH/USDC", Size: dec(400), Rate: dec(7.3), InRange: false},
	}

	out := Analysis(account, positions, nil, decimal.NewFromInt(1))

	// share of balance
	assert.Contains(t, out, "(60%)")
	assert.Contains(t, out, "(40%)")
	// daily earnings estimate: size * (rate/100) / 365
	assert.Contains(t, out, "$0.6/day")  // 600 * 0.365 / 365
	assert.Contains(t, out, "$0.08/day") // 400 * 0.073 / 365
	// in-range markers
	assert.Contains(t, out, "🟢")
	assert.Contains(t, out, "🔴")
	// average rate across positions
	assert.Contains(t, out, "*Average APR:* 21.9%")
}

func TestAnalysisRecommendation(t *testing.T) {
	threshold := decimal.NewFromInt(1)

	claim := Analysis(database.Account{PendingYield: dec(5)}, nil, nil, threshold)
	assert.Contains(t, claim, "claim")

	hold := Analysis(database.Account{PendingYield: dec(0.4)}, nil, nil, threshold)
	assert.Contains(t, hold, "holding")
}

func TestPreviewDetectedSlot(t *testing.T) {
	three := 3
	rec := &extract.Record{
		Balance:       decimal.NullDecimal{Decimal: dec(1234.56), Valid: true},
		AccountNumber: &three,
	}

	out := Preview(rec)
	assert.Contains(t, out, "$1234.56")
	assert.Contains(t, out, "Detected account *3*")
}

func TestPreviewMissingBalance(t *testing.T) {
	out := Preview(&extract.Record{})
	assert.Contains(t, out, "not detected")
}

func TestSaveConfirmation(t *testing.T) {
	current := &database.Account{Slot: 3, Balance: dec(750), Points: dec(20)}

	first := SaveConfirmation(current, nil)
	assert.Contains(t, first, "slot 3")
	assert.NotContains(t, first, "(+", "no diff without prior state")

	previous := &database.Account{Balance: dec(500), Points: dec(20)}
	second := SaveConfirmation(current, previous)
	assert.Contains(t, second, "(+250)")
	assert.Contains(t, second, "(±0)")
}

func TestAccountLineFallbackName(t *testing.T) {
	out := AccountLine(database.Account{Slot: 4, Balance: dec(10), Points: dec(2)})
	assert.True(t, strings.Contains(out, "Account 4"))
}
