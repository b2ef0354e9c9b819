package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status tracks a settlement through the payout run.
type Status string

const (
	StatusPending          Status = "pending"
	StatusProcessing       Status = "processing"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusPartiallySettled Status = "partially_settled"
)

// UPPFSettlement is one payout run covering a batch of approved claims
// from a single submission window. A failed run keeps its row for the
// audit trail; the claims themselves roll back untouched.
type UPPFSettlement struct {
	ID       snowflake.ID `json:"id" gorm:"primaryKey"`
	WindowID string       `json:"window_id" gorm:"type:varchar(16);index:ix_settlement_window"`
	Status   Status       `json:"status" gorm:"type:varchar(32);not null"`

	ClaimCount       int             `json:"claim_count"`
	TotalClaimAmount decimal.Decimal `json:"total_claim_amount" gorm:"type:decimal(20,6)"`
	// Net value actually paid out, after penalties and bonuses.
	TotalSettledAmount decimal.Decimal `json:"total_settled_amount" gorm:"type:decimal(20,6)"`
	Penalties          decimal.Decimal `json:"penalties" gorm:"type:decimal(20,6)"`
	Bonuses            decimal.Decimal `json:"bonuses" gorm:"type:decimal(20,6)"`
	NetAmount          decimal.Decimal `json:"net_amount" gorm:"type:decimal(20,6)"`

	// Per-claim breakdown, kept for downstream accounting.
	Details datatypes.JSON `json:"details"`

	// Set after the ledger accepts the posting. Empty means the entry
	// is pending manual reconciliation.
	JournalRef string `json:"journal_ref,omitempty" gorm:"type:varchar(64)"`

	SettledAt time.Time `json:"settled_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UPPFSettlement) TableName() string {
	return "uppf_settlements"
}

// ClaimBreakdown is the per-claim line inside a settlement.
type ClaimBreakdown struct {
	ClaimID        string          `json:"claim_id"`
	ClaimNumber    string          `json:"claim_number"`
	DealerID       string          `json:"dealer_id"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	Penalty        decimal.Decimal `json:"penalty"`
	Bonus          decimal.Decimal `json:"bonus"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	// Signed difference between what settles and what was claimed.
	Variance decimal.Decimal `json:"variance"`
}

// CreditProfile describes a dealer as a settlement payee.
type CreditProfile struct {
	DealerID       string `json:"dealer_id"`
	PayableAccount string `json:"payable_account"`
	Blocked        bool   `json:"blocked"`
}

// DealerDirectory validates payees. Consulted before settling, never
// for amount calculation.
type DealerDirectory interface {
	GetDealerCreditProfile(ctx context.Context, dealerID string) (*CreditProfile, error)
}

// JournalEntry is the accounting posting for one settlement.
type JournalEntry struct {
	SettlementID string          `json:"settlement_id"`
	WindowID     string          `json:"window_id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	PostedAt     time.Time       `json:"posted_at"`
}

// AccountingLedger posts settlements to the general ledger.
// Failures are logged for manual reconciliation, never rolled back.
type AccountingLedger interface {
	PostJournalEntry(ctx context.Context, entry JournalEntry) (string, error)
}

type SettleRequest struct {
	WindowID string         `json:"window_id"`
	ClaimIDs []snowflake.ID `json:"claim_ids"`
	Actor    string         `json:"actor"`
}

type Service interface {
	Settle(ctx context.Context, req SettleRequest) (*UPPFSettlement, error)
	Get(ctx context.Context, settlementID snowflake.ID) (*UPPFSettlement, error)
	ListByWindow(ctx context.Context, windowID string) ([]UPPFSettlement, error)
}

var (
	ErrNoClaims          = errors.New("no_claims_to_settle")
	ErrInvalidWindow     = errors.New("invalid_settlement_window")
	ErrPayeeBlocked      = errors.New("payee_blocked")
	ErrSettlementFailed  = errors.New("settlement_failed")
	ErrSettlementMissing = errors.New("settlement_not_found")
)
