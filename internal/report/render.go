// Package report renders portfolio state into Telegram Markdown text.
// Every renderer is a pure function of store state at query time.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/danverbz/lpfolio/internal/database"
	"github.com/danverbz/lpfolio/internal/extract"
)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// Summary renders the aggregate view across all of an owner's accounts.
func Summary(accounts []database.Account) string {
	if len(accounts) == 0 {
		return "📊 *Portfolio Summary*\n\nNo accounts yet. Tap ➕ Add Account to save your first one."
	}

	var balance, points, fees, yield decimal.Decimal
	for _, a := range accounts {
		balance = balance.Add(a.Balance)
		points = points.Add(a.Points)
		fees = fees.Add(a.Fees)
		yield = yield.Add(a.PendingYield)
	}

	return fmt.Sprintf(`📊 *Portfolio Summary*

👛 *Accounts:* %d
💰 *Total Balance:* $%s
⭐ *Total Points:* %s
💸 *Total Fees:* $%s
🎁 *Pending Yield:* $%s`,
		len(accounts),
		money(balance),
		money(points),
		money(fees),
		money(yield),
	)
}

// AccountLine renders one entry of the account list.
func AccountLine(a database.Account) string {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("Account %d", a.Slot)
	}
	return fmt.Sprintf("*Slot %d* — %s\n├ Balance: $%s\n└ Points: %s",
		a.Slot, escapeMarkdown(name), money(a.Balance), money(a.Points))
}

// Analysis renders the drill-down view for one account: current state, delta
// against the most recent prior-day snapshot, per-position breakdown and a
// claim/hold recommendation.
func Analysis(a database.Account, positions []database.Position, prev *database.DailyHistory, claimThreshold decimal.Decimal) string {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("Account %d", a.Slot)
	}

	var balanceDelta, pointsDelta, feesDelta decimal.Decimal
	if prev != nil {
		balanceDelta = a.Balance.Sub(prev.Balance)
		pointsDelta = a.Points.Sub(prev.Points)
		feesDelta = a.Fees.Sub(prev.Fees)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📈 *Analysis — Slot %d (%s)*\n\n", a.Slot, escapeMarkdown(name))
	fmt.Fprintf(&b, "💰 *Balance:* $%s (%s)\n", money(a.Balance), signedMoney(balanceDelta))
	fmt.Fprintf(&b, "⭐ *Points:* %s (%s)\n", money(a.Points), signedMoney(pointsDelta))
	fmt.Fprintf(&b, "💸 *Fees:* $%s (%s)\n", money(a.Fees), signedMoney(feesDelta))
	fmt.Fprintf(&b, "🎁 *Pending Yield:* $%s\n", money(a.PendingYield))
	if prev == nil {
		b.WriteString("\n_No prior snapshot yet — deltas start tomorrow._\n")
	}

	if len(positions) > 0 {
		b.WriteString("\n*Positions:*\n")
		var rateSum decimal.Decimal
		rated := 0
		for i, p := range positions {
			share := decimal.Zero
			if a.Balance.IsPositive() {
				share = p.Size.Div(a.Balance).Mul(hundred)
			}
			daily := p.Size.Mul(p.Rate.Div(hundred)).Div(daysPerYear)

			marker := "🟢"
			if !p.InRange {
				marker = "🔴"
			}
			branch := "├"
			if i == len(positions)-1 {
				branch = "└"
			}
			fmt.Fprintf(&b, "%s %s *%s* — $%s (%s%%)\n",
				branch, marker, escapeMarkdown(p.Pair), money(p.Size), share.Round(1))
			fmt.Fprintf(&b, "   APR %s%% ≈ $%s/day\n", p.Rate.Round(2), daily.Round(2))

			if !p.Rate.IsZero() {
				rateSum = rateSum.Add(p.Rate)
				rated++
			}
		}
		if rated > 0 {
			avg := rateSum.Div(decimal.NewFromInt(int64(rated)))
			fmt.Fprintf(&b, "\n📐 *Average APR:* %s%%\n", avg.Round(2))
		}
	}

	b.WriteString("\n")
	if a.PendingYield.GreaterThan(claimThreshold) {
		fmt.Fprintf(&b, "💡 *Recommendation:* claim your $%s pending yield.", money(a.PendingYield))
	} else {
		b.WriteString("💡 *Recommendation:* keep holding, yield is still small.")
	}

	return b.String()
}

// Preview renders a freshly extracted record so the user can verify it before
// picking a slot.
func Preview(rec *extract.Record) string {
	var b strings.Builder
	b.WriteString("🔎 *Extracted Portfolio Data*\n\n")

	if rec.Balance.Valid {
		fmt.Fprintf(&b, "💰 *Balance:* $%s\n", money(rec.Balance.Decimal))
	} else {
		b.WriteString("💰 *Balance:* not detected (I'll ask for it)\n")
	}
	if rec.TotalPoints.Valid {
		fmt.Fprintf(&b, "⭐ *Points:* %s", money(rec.TotalPoints.Decimal))
		if rec.PointDelta.Valid {
			fmt.Fprintf(&b, " (%s today)", signedMoney(rec.PointDelta.Decimal))
		}
		b.WriteString("\n")
	}
	if rec.Rank != nil && *rec.Rank != "" {
		fmt.Fprintf(&b, "🏅 *Rank:* %s\n", escapeMarkdown(*rec.Rank))
	}
	if rec.TotalFees.Valid {
		fmt.Fprintf(&b, "💸 *Fees:* $%s", money(rec.TotalFees.Decimal))
		if rec.FeesToday.Valid {
			fmt.Fprintf(&b, " (%s today)", signedMoney(rec.FeesToday.Decimal))
		}
		b.WriteString("\n")
	}
	if rec.PendingYield.Valid {
		fmt.Fprintf(&b, "🎁 *Pending Yield:* $%s\n", money(rec.PendingYield.Decimal))
	}

	if len(rec.Positions) > 0 {
		fmt.Fprintf(&b, "\n*Positions (%d):*\n", len(rec.Positions))
		for _, p := range rec.Positions {
			marker := "🟢"
			if !p.InRange {
				marker = "🔴"
			}
			fmt.Fprintf(&b, "%s %s", marker, escapeMarkdown(p.Pair))
			if p.Size.Valid {
				fmt.Fprintf(&b, " — $%s", money(p.Size.Decimal))
			}
			if p.Rate.Valid {
				fmt.Fprintf(&b, " @ %s%%", p.Rate.Decimal.Round(2))
			}
			b.WriteString("\n")
		}
	}

	if slot := rec.SlotHint(); slot > 0 {
		fmt.Fprintf(&b, "\n📌 Detected account *%d* in the input.", slot)
	}
	b.WriteString("\n\nPick a slot to save this to:")

	return b.String()
}

// SaveConfirmation renders the post-save message, with an immediate diff when
// the slot already held data.
func SaveConfirmation(current *database.Account, previous *database.Account) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ *Saved to slot %d*\n\n💰 Balance: $%s", current.Slot, money(current.Balance))
	if previous != nil {
		fmt.Fprintf(&b, " (%s)", signedMoney(current.Balance.Sub(previous.Balance)))
	}
	fmt.Fprintf(&b, "\n⭐ Points: %s", money(current.Points))
	if previous != nil {
		fmt.Fprintf(&b, " (%s)", signedMoney(current.Points.Sub(previous.Points)))
	}
	return b.String()
}

// Helpers

func money(d decimal.Decimal) string {
	return d.Round(2).String()
}

func signedMoney(d decimal.Decimal) string {
	switch {
	case d.IsPositive():
		return "+" + money(d)
	case d.IsNegative():
		return money(d)
	default:
		return "±0"
	}
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
