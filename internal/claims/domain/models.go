package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	"github.com/petroworks/pumpline/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClaimStatus is the lifecycle state of a UPPF claim.
type ClaimStatus string

var (
	StatusDraft         ClaimStatus = "draft"
	StatusReadyToSubmit ClaimStatus = "ready_to_submit"
	StatusSubmitted     ClaimStatus = "submitted"
	StatusUnderReview   ClaimStatus = "under_review"
	StatusApproved      ClaimStatus = "approved"
	StatusSettled       ClaimStatus = "settled"
	StatusRejected      ClaimStatus = "rejected"
	StatusCancelled     ClaimStatus = "cancelled"
)

var transitions = map[ClaimStatus][]ClaimStatus{
	StatusDraft:         {StatusReadyToSubmit, StatusCancelled},
	StatusReadyToSubmit: {StatusSubmitted, StatusCancelled},
	StatusSubmitted:     {StatusUnderReview, StatusCancelled},
	StatusUnderReview:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:      {StatusSettled, StatusCancelled},
}

// CanTransition reports whether from may move to to at all. Guards
// beyond adjacency (reasons, anomalies, settlement scope) live in the
// service.
func CanTransition(from, to ClaimStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a claim in this status can never move again.
func IsTerminal(s ClaimStatus) bool {
	return s == StatusSettled || s == StatusRejected || s == StatusCancelled
}

// AnomalyType classifies a detected irregularity on a claim.
type AnomalyType string

var (
	AnomalyGPSDeviation       AnomalyType = "GPS_DEVIATION"
	AnomalyVolumeVariance     AnomalyType = "VOLUME_VARIANCE"
	AnomalyTimeAnomaly        AnomalyType = "TIME_ANOMALY"
	AnomalyRouteChange        AnomalyType = "ROUTE_CHANGE"
	AnomalyDocumentationIssue AnomalyType = "DOCUMENTATION_ISSUE"
	AnomalyFuelLoss           AnomalyType = "FUEL_LOSS"
	AnomalySpeedViolation     AnomalyType = "SPEED_VIOLATION"
)

func ValidAnomalyType(t AnomalyType) bool {
	switch t {
	case AnomalyGPSDeviation, AnomalyVolumeVariance, AnomalyTimeAnomaly,
		AnomalyRouteChange, AnomalyDocumentationIssue, AnomalyFuelLoss,
		AnomalySpeedViolation:
		return true
	}
	return false
}

type Severity string

var (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// QualityDeduction is the quality-score cost of one unresolved anomaly.
func QualityDeduction(s Severity) int64 {
	switch s {
	case SeverityLow:
		return 2
	case SeverityMedium:
		return 5
	case SeverityHigh:
		return 15
	case SeverityCritical:
		return 40
	}
	return 0
}

// RiskWeight is the risk-score contribution of one unresolved anomaly.
func RiskWeight(s Severity) int64 {
	switch s {
	case SeverityLow:
		return 5
	case SeverityMedium:
		return 10
	case SeverityHigh:
		return 25
	case SeverityCritical:
		return 50
	}
	return 0
}

func ValidSeverity(s Severity) bool {
	return QualityDeduction(s) > 0
}

// BlocksApproval reports whether an unresolved anomaly of this severity
// prevents the move into approved.
func BlocksApproval(s Severity) bool {
	return s == SeverityHigh || s == SeverityCritical
}

// UPPFClaim is one transport-subsidy claim for a single consignment.
type UPPFClaim struct {
	ID            snowflake.ID           `json:"id" gorm:"primaryKey"`
	ClaimNumber   string                 `json:"claim_number" gorm:"type:varchar(32);uniqueIndex:ux_claim_number"`
	WindowID      string                 `json:"window_id" gorm:"type:varchar(16);index:ix_claim_window"`
	ConsignmentID string                 `json:"consignment_id" gorm:"type:varchar(64);uniqueIndex:ux_claim_consignment"`
	RouteID       string                 `json:"route_id" gorm:"type:varchar(64)"`
	DealerID      string                 `json:"dealer_id" gorm:"type:varchar(64)"`
	ProductType   levydomain.ProductType `json:"product_type" gorm:"type:varchar(16)"`

	VolumeLitres         decimal.Decimal `json:"volume_litres" gorm:"type:decimal(20,3)"`
	KmBeyondEqualisation decimal.Decimal `json:"km_beyond_equalisation" gorm:"type:decimal(12,3)"`
	TariffPerUnit        decimal.Decimal `json:"tariff_per_unit" gorm:"type:decimal(20,6)"`
	BaseClaimAmount      decimal.Decimal `json:"base_claim_amount" gorm:"type:decimal(20,6)"`
	Bonuses              datatypes.JSON  `json:"bonuses"`
	TotalClaimAmount     decimal.Decimal `json:"total_claim_amount" gorm:"type:decimal(20,6)"`

	QualityScore decimal.Decimal `json:"quality_score" gorm:"type:decimal(8,2)"`
	RiskScore    decimal.Decimal `json:"risk_score" gorm:"type:decimal(8,2)"`

	Status          ClaimStatus   `json:"status" gorm:"type:varchar(24);index:ix_claim_status"`
	RejectionReason string        `json:"rejection_reason,omitempty" gorm:"type:text"`
	SettlementID    *snowflake.ID `json:"settlement_id,omitempty" gorm:"index:ix_claim_settlement"`
	SubmittedAt     *time.Time    `json:"submitted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UPPFClaim) TableName() string {
	return "uppf_claims"
}

// ClaimAnomaly is one irregularity attached to a claim.
type ClaimAnomaly struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	ClaimID     snowflake.ID `json:"claim_id" gorm:"index:ix_anomaly_claim"`
	Type        AnomalyType  `json:"type" gorm:"type:varchar(32)"`
	Severity    Severity     `json:"severity" gorm:"type:varchar(16)"`
	Description string       `json:"description" gorm:"type:text"`
	Resolved    bool         `json:"resolved"`
	ResolvedBy  string       `json:"resolved_by,omitempty" gorm:"type:varchar(64)"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (ClaimAnomaly) TableName() string {
	return "claim_anomalies"
}

// ClaimAuditEntry records one mutation on a claim. The trail is
// append-only.
type ClaimAuditEntry struct {
	ID       snowflake.ID `json:"id" gorm:"primaryKey"`
	ClaimID  snowflake.ID `json:"claim_id" gorm:"index:ix_audit_claim"`
	Action   string       `json:"action" gorm:"type:varchar(48)"`
	Actor    string       `json:"actor" gorm:"type:varchar(64)"`
	OldValue string       `json:"old_value" gorm:"type:text"`
	NewValue string       `json:"new_value" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

func (ClaimAuditEntry) TableName() string {
	return "claim_audit_entries"
}

// DeliveryRegistry is the external source of delivery facts.
type DeliveryRegistry interface {
	GetDeliveryByID(ctx context.Context, consignmentID string) (*levydomain.DeliveryRecord, error)
	GetDeliveriesInWindow(ctx context.Context, windowID string) ([]levydomain.DeliveryRecord, error)
}

// PricingSnapshots reports whether a price build-up has been published
// for a product and window. Submission requires one.
type PricingSnapshots interface {
	HasBreakdown(ctx context.Context, productID, windowID string) (bool, error)
}

type CreateClaimRequest struct {
	ConsignmentID string `json:"consignment_id"`
	WindowID      string `json:"window_id"`
	DealerID      string `json:"dealer_id"`
	Actor         string `json:"actor"`
}

type TransitionRequest struct {
	ClaimID snowflake.ID `json:"claim_id"`
	Target  ClaimStatus  `json:"target"`
	Actor   string       `json:"actor"`
	// Required when Target is rejected.
	Reason string `json:"reason,omitempty"`
}

type AnomalyInput struct {
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Actor       string      `json:"actor"`
}

type ListClaimsRequest struct {
	WindowID  string      `json:"window_id"`
	Status    ClaimStatus `json:"status"`
	PageToken string      `json:"page_token"`
	PageSize  int32       `json:"page_size"`
}

type ListClaimsResponse struct {
	Claims   []UPPFClaim         `json:"claims"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// WindowSummary aggregates claims for one submission window.
type WindowSummary struct {
	WindowID         string                          `json:"window_id"`
	TotalClaims      int64                           `json:"total_claims"`
	CountsByStatus   map[ClaimStatus]int64           `json:"counts_by_status"`
	AmountsByStatus  map[ClaimStatus]decimal.Decimal `json:"amounts_by_status"`
	TotalClaimAmount decimal.Decimal                 `json:"total_claim_amount"`
	SettledAmount    decimal.Decimal                 `json:"settled_amount"`
	SettlementRate   decimal.Decimal                 `json:"settlement_rate"`
}

type Service interface {
	CreateClaim(ctx context.Context, req CreateClaimRequest) (*UPPFClaim, error)
	// RecordReconciliation runs the three-way reconciliation and, when a
	// variance is detected, flags the consignment's claim.
	RecordReconciliation(ctx context.Context, req recdomain.ReconcileRequest) (*recdomain.ThreeWayReconciliation, error)
	FindByConsignment(ctx context.Context, consignmentID string) (*UPPFClaim, error)
	Transition(ctx context.Context, req TransitionRequest) (*UPPFClaim, error)
	AddAnomaly(ctx context.Context, claimID snowflake.ID, input AnomalyInput) (*UPPFClaim, error)
	ResolveAnomaly(ctx context.Context, claimID, anomalyID snowflake.ID, actor string) (*UPPFClaim, error)
	Get(ctx context.Context, claimID snowflake.ID) (*UPPFClaim, error)
	ListClaims(ctx context.Context, req ListClaimsRequest) (ListClaimsResponse, error)
	Anomalies(ctx context.Context, claimID snowflake.ID) ([]ClaimAnomaly, error)
	AuditTrail(ctx context.Context, claimID snowflake.ID) ([]ClaimAuditEntry, error)
	WindowSummary(ctx context.Context, windowID string) (*WindowSummary, error)

	// AssignSettlement moves an approved, unsettled claim to settled
	// inside the caller's transaction. It is the only path into settled.
	AssignSettlement(ctx context.Context, tx *gorm.DB, claimID, settlementID snowflake.ID, actor string) (*UPPFClaim, error)
}

var (
	ErrClaimNotFound           = errors.New("claim_not_found")
	ErrDeliveryNotFound        = errors.New("delivery_not_found")
	ErrDuplicateClaim          = errors.New("duplicate_claim")
	ErrInvalidClaimRequest     = errors.New("invalid_claim_request")
	ErrInvalidPageToken        = errors.New("invalid_page_token")
	ErrInvalidTransition       = errors.New("invalid_transition")
	ErrRejectionReasonRequired = errors.New("rejection_reason_required")
	ErrUnresolvedAnomalies     = errors.New("unresolved_anomalies")
	ErrInvalidAnomaly          = errors.New("invalid_anomaly")
	ErrAnomalyNotFound         = errors.New("anomaly_not_found")
	ErrClaimNotApproved        = errors.New("claim_not_approved")
	ErrAlreadySettled          = errors.New("claim_already_settled")
)
