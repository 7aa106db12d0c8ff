package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/danverbz/lpfolio/internal/extract"
)

// DayFormat is the calendar-day key for history snapshots (UTC).
const DayFormat = "2006-01-02"

type Database struct {
	db *gorm.DB
}

// Models

// Account is one tracked portfolio slot. (owner_id, slot) is unique; an
// owner can track up to ten accounts.
type Account struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"`
	OwnerID      int64           `gorm:"uniqueIndex:idx_owner_slot;index"`
	Slot         int             `gorm:"uniqueIndex:idx_owner_slot"`
	Balance      decimal.Decimal `gorm:"type:decimal(20,6)"`
	Points       decimal.Decimal `gorm:"type:decimal(20,6)"`
	Fees         decimal.Decimal `gorm:"type:decimal(20,6)"`
	PendingYield decimal.Decimal `gorm:"type:decimal(20,6)"`
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Position is one active liquidity pair attached to an account. The set is
// fully replaced on every save; there is no position history.
type Position struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	AccountID uint    `gorm:"index"`
	Account   Account `gorm:"constraint:OnDelete:CASCADE"`
	Pair      string
	Size      decimal.Decimal `gorm:"type:decimal(20,6)"`
	Rate      decimal.Decimal `gorm:"type:decimal(10,4)"` // annual percent
	InRange   bool
	CreatedAt time.Time
}

// DailyHistory is the once-per-day snapshot used for delta reports. A second
// save on the same day overwrites that day's row.
type DailyHistory struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	AccountID uint            `gorm:"uniqueIndex:idx_account_day"`
	Account   Account         `gorm:"constraint:OnDelete:CASCADE"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,6)"`
	Points    decimal.Decimal `gorm:"type:decimal(20,6)"`
	Fees      decimal.Decimal `gorm:"type:decimal(20,6)"`
	Day       string          `gorm:"uniqueIndex:idx_account_day"`
	CreatedAt time.Time
}

func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	// Check if this is a PostgreSQL connection string
	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		// SQLite fallback
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&Account{}, &Position{}, &DailyHistory{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// SaveAccount upserts the (owner, slot) account from an extraction record
// inside a single transaction: merge into the account row, replace its
// position set, and overwrite today's history snapshot. Returns the resulting
// account and the prior state (nil if the slot was empty) for immediate
// diffing. Nothing is written if any step fails.
func (d *Database) SaveAccount(ownerID int64, slot int, rec *extract.Record) (*Account, *Account, error) {
	if slot < 1 || slot > 10 {
		return nil, nil, fmt.Errorf("slot %d out of range 1-10", slot)
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("nil extraction record")
	}

	var current Account
	var previous *Account

	err := d.db.Transaction(func(tx *gorm.DB) error {
		var existing Account
		err := tx.Where("owner_id = ? AND slot = ?", ownerID, slot).First(&existing).Error
		switch {
		case err == nil:
			prior := existing
			previous = &prior
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = Account{OwnerID: ownerID, Slot: slot}
		default:
			return err
		}

		mergeAccount(&existing, rec)
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}

		// Full replace of the position set.
		if err := tx.Where("account_id = ?", existing.ID).Delete(&Position{}).Error; err != nil {
			return err
		}
		for _, p := range rec.Positions {
			pos := Position{
				AccountID: existing.ID,
				Pair:      p.Pair,
				Size:      p.Size.Decimal,
				Rate:      p.Rate.Decimal,
				InRange:   p.InRange,
			}
			if err := tx.Create(&pos).Error; err != nil {
				return err
			}
		}

		// Overwrite today's snapshot, one row per (account, day).
		day := time.Now().UTC().Format(DayFormat)
		var snap DailyHistory
		err = tx.Where("account_id = ? AND day = ?", existing.ID, day).First(&snap).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		snap.AccountID = existing.ID
		snap.Day = day
		snap.Balance = existing.Balance
		snap.Points = existing.Points
		snap.Fees = existing.Fees
		if err := tx.Save(&snap).Error; err != nil {
			return err
		}

		current = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int64("owner", ownerID).
		Int("slot", slot).
		Str("balance", current.Balance.String()).
		Msg("Account saved")

	return &current, previous, nil
}

// GetAccounts returns all of an owner's accounts ordered by slot.
func (d *Database) GetAccounts(ownerID int64) ([]Account, error) {
	var accounts []Account
	err := d.db.Where("owner_id = ?", ownerID).Order("slot ASC").Find(&accounts).Error
	return accounts, err
}

// GetAccountByID fetches one account, scoped to its owner so a crafted
// callback can never read another user's row.
func (d *Database) GetAccountByID(ownerID int64, id uint) (*Account, error) {
	var account Account
	err := d.db.Where("owner_id = ? AND id = ?", ownerID, id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetPositions returns the account's current position set.
func (d *Database) GetPositions(accountID uint) ([]Position, error) {
	var positions []Position
	err := d.db.Where("account_id = ?", accountID).Find(&positions).Error
	return positions, err
}

// GetPreviousSnapshot returns the most recent history row strictly before
// the given day, or nil when no prior snapshot exists.
func (d *Database) GetPreviousSnapshot(accountID uint, beforeDay string) (*DailyHistory, error) {
	var snap DailyHistory
	err := d.db.Where("account_id = ? AND day < ?", accountID, beforeDay).
		Order("day DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetSnapshot returns the snapshot for an exact day, nil when absent.
func (d *Database) GetSnapshot(accountID uint, day string) (*DailyHistory, error) {
	var snap DailyHistory
	err := d.db.Where("account_id = ? AND day = ?", accountID, day).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteAllForOwner removes every account the owner has, along with their
// positions and history. Children are deleted explicitly inside the
// transaction so the result does not depend on the engine enforcing the
// declared cascades. Irreversible; callers confirm with the user first.
func (d *Database) DeleteAllForOwner(ownerID int64) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&Account{}).Where("owner_id = ?", ownerID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("account_id IN ?", ids).Delete(&Position{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id IN ?", ids).Delete(&DailyHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", ownerID).Delete(&Account{}).Error; err != nil {
			return err
		}
		log.Info().Int64("owner", ownerID).Int("accounts", len(ids)).Msg("All data deleted")
		return nil
	})
}
