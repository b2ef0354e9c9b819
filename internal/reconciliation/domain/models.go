package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

var (
	StatusMatched          Status = "matched"
	StatusVarianceDetected Status = "variance_detected"
	StatusDisputed         Status = "disputed"
	StatusResolved         Status = "resolved"
)

// ThreeWayReconciliation cross-checks the volumes reported by depot,
// transporter and station for one consignment. One row per consignment;
// re-reconciliation supersedes the row in place.
type ThreeWayReconciliation struct {
	ID                         snowflake.ID    `json:"id" gorm:"primaryKey"`
	ConsignmentID              string          `json:"consignment_id" gorm:"type:text;not null;uniqueIndex"`
	DepotVolume                decimal.Decimal `json:"depot_volume" gorm:"type:decimal(20,3);not null"`
	DepotRef                   string          `json:"depot_ref" gorm:"type:text"`
	TransporterVolume          decimal.Decimal `json:"transporter_volume" gorm:"type:decimal(20,3);not null"`
	TransporterRef             string          `json:"transporter_ref" gorm:"type:text"`
	StationVolume              decimal.Decimal `json:"station_volume" gorm:"type:decimal(20,3);not null"`
	StationRef                 string          `json:"station_ref" gorm:"type:text"`
	VarianceDepotTransporter   decimal.Decimal `json:"variance_depot_transporter" gorm:"type:decimal(12,8);not null"`
	VarianceTransporterStation decimal.Decimal `json:"variance_transporter_station" gorm:"type:decimal(12,8);not null"`
	VarianceDepotStation       decimal.Decimal `json:"variance_depot_station" gorm:"type:decimal(12,8);not null"`
	ToleranceApplied           decimal.Decimal `json:"tolerance_applied" gorm:"type:decimal(12,8);not null"`
	RiskScore                  decimal.Decimal `json:"risk_score" gorm:"type:decimal(8,2);not null"`
	Status                     Status          `json:"status" gorm:"type:text;not null"`
	Note                       string          `json:"note,omitempty" gorm:"type:text"`
	CreatedAt                  time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt                  time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ThreeWayReconciliation) TableName() string { return "three_way_reconciliations" }

// MaxVariance returns the largest absolute pairwise variance.
func (r ThreeWayReconciliation) MaxVariance() decimal.Decimal {
	max := r.VarianceDepotTransporter.Abs()
	if v := r.VarianceTransporterStation.Abs(); v.GreaterThan(max) {
		max = v
	}
	if v := r.VarianceDepotStation.Abs(); v.GreaterThan(max) {
		max = v
	}
	return max
}

type ReconcileRequest struct {
	ConsignmentID     string          `json:"consignment_id"`
	DepotVolume       decimal.Decimal `json:"depot_volume"`
	DepotRef          string          `json:"depot_ref"`
	TransporterVolume decimal.Decimal `json:"transporter_volume"`
	TransporterRef    string          `json:"transporter_ref"`
	StationVolume     decimal.Decimal `json:"station_volume"`
	StationRef        string          `json:"station_ref"`

	// Tolerance wideners, each >= 1. Zero values default to 1.
	RouteComplexity   decimal.Decimal `json:"route_complexity"`
	ProductVolatility decimal.Decimal `json:"product_volatility"`

	// Confidence inputs lowering the risk score.
	GPSConfidence         decimal.Decimal `json:"gps_confidence"`
	DocumentationComplete bool            `json:"documentation_complete"`
}

type Service interface {
	Reconcile(ctx context.Context, req ReconcileRequest) (*ThreeWayReconciliation, error)
	Dispute(ctx context.Context, consignmentID, note string) (*ThreeWayReconciliation, error)
	Resolve(ctx context.Context, consignmentID, note string) (*ThreeWayReconciliation, error)
	AddNote(ctx context.Context, consignmentID, note string) (*ThreeWayReconciliation, error)
	FindByConsignment(ctx context.Context, consignmentID string) (*ThreeWayReconciliation, error)
}

var (
	ErrInvalidConsignment  = errors.New("invalid_consignment")
	ErrInvalidVolume       = errors.New("invalid_volume")
	ErrInvalidFactor       = errors.New("invalid_tolerance_factor")
	ErrInvalidNote         = errors.New("invalid_note")
	ErrNotFound            = errors.New("reconciliation_not_found")
	ErrReconciliationFinal = errors.New("reconciliation_final")
	ErrInvalidStatusChange = errors.New("invalid_reconciliation_status_change")
)
