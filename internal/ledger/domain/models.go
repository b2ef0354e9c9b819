package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// EntryDirection represents debit or credit postings.
type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "debit"
	EntryDirectionCredit EntryDirection = "credit"
)

type AccountCode string

const (
	// Assets
	AccountCodeUPPFReceivable AccountCode = "uppf_receivable"

	// Revenue
	AccountCodeClaimsIncome AccountCode = "uppf_claims_income"
)

// JournalHeader is the immutable header for one settlement posting.
type JournalHeader struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Reference    string       `gorm:"type:varchar(32);not null;uniqueIndex:ux_journal_reference"`
	SettlementID string       `gorm:"type:varchar(32);not null;index"`
	WindowID     string       `gorm:"type:varchar(16);not null;index"`
	Description  string       `gorm:"type:text"`
	PostedAt     time.Time    `gorm:"not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (JournalHeader) TableName() string { return "journal_entries" }

// JournalLine is a double-entry posting line.
type JournalLine struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	JournalID snowflake.ID    `gorm:"not null;index"`
	Account   AccountCode     `gorm:"type:text;not null"`
	Direction EntryDirection  `gorm:"type:text;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (JournalLine) TableName() string { return "journal_entry_lines" }
