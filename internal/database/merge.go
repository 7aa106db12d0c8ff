package database

import (
	"github.com/danverbz/lpfolio/internal/extract"
)

// mergeAccount applies an extraction record onto an account row, field by
// field. A field only overwrites when the extraction actually produced it;
// absent fields keep the stored value, so a partial extraction never erases
// known-good data. An extracted literal zero is a real value and does
// overwrite — absence is tracked explicitly, not inferred from zero.
//
// Pure function; the policy is testable without a database.
func mergeAccount(acc *Account, rec *extract.Record) {
	if rec.Balance.Valid {
		acc.Balance = rec.Balance.Decimal
	}
	if rec.TotalPoints.Valid {
		acc.Points = rec.TotalPoints.Decimal
	}
	if rec.TotalFees.Valid {
		acc.Fees = rec.TotalFees.Decimal
	}
	if rec.PendingYield.Valid {
		acc.PendingYield = rec.PendingYield.Decimal
	}
	if rec.AccountName != nil && *rec.AccountName != "" {
		acc.Name = *rec.AccountName
	}
}
