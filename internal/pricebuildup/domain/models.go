package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ComponentValue is one line of a computed price breakdown, snapshotted
// with the rate that produced it.
type ComponentValue struct {
	Code     string              `json:"code"`
	Name     string              `json:"name"`
	Category ratedomain.Category `json:"category"`
	Unit     ratedomain.Unit     `json:"unit"`
	Rate     decimal.Decimal     `json:"rate"`
	Value    decimal.Decimal     `json:"value"`
}

// PriceBreakdown is an immutable snapshot of one ex-pump price
// computation. Recomputation inserts a new snapshot, never edits.
type PriceBreakdown struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	StationID         string          `json:"station_id" gorm:"type:text;not null;index:ix_breakdown_target"`
	ProductID         string          `json:"product_id" gorm:"type:text;not null;index:ix_breakdown_target"`
	WindowID          string          `json:"window_id" gorm:"type:text;not null;index:ix_breakdown_target"`
	BaseRate          decimal.Decimal `json:"base_rate" gorm:"type:decimal(20,6);not null"`
	TaxesAndLevies    decimal.Decimal `json:"taxes_and_levies" gorm:"type:decimal(20,6);not null"`
	RegulatoryMargins decimal.Decimal `json:"regulatory_margins" gorm:"type:decimal(20,6);not null"`
	OMCMargin         decimal.Decimal `json:"omc_margin" gorm:"type:decimal(20,6);not null"`
	DealerMargin      decimal.Decimal `json:"dealer_margin" gorm:"type:decimal(20,6);not null"`
	TotalPrice        decimal.Decimal `json:"total_price" gorm:"type:decimal(20,6);not null"`
	Components        datatypes.JSON  `json:"components" gorm:"type:jsonb;not null"`
	OutOfRange        bool            `json:"out_of_range" gorm:"not null;default:false"`
	ComputedAt        time.Time       `json:"computed_at" gorm:"not null;index"`
}

func (PriceBreakdown) TableName() string { return "price_breakdowns" }

// Station is the directory view of a retail outlet.
type Station struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	DealerID string `json:"dealer_id"`
	Region   string `json:"region"`
	Active   bool   `json:"active"`
}

// StationDirectory is the external station registry consulted for bulk
// computations.
type StationDirectory interface {
	GetActiveStations(ctx context.Context) ([]Station, error)
	GetStationByID(ctx context.Context, id string) (*Station, error)
}

type ComputeRequest struct {
	StationID string    `json:"station_id"`
	ProductID string    `json:"product_id"`
	WindowID  string    `json:"window_id"`
	AsOf      time.Time `json:"as_of"`
	// Overrides replace a component's rate for this computation only.
	Overrides map[string]decimal.Decimal `json:"overrides,omitempty"`
}

type BulkComputeRequest struct {
	WindowID   string    `json:"window_id"`
	StationIDs []string  `json:"station_ids"`
	ProductIDs []string  `json:"product_ids"`
	AsOf       time.Time `json:"as_of"`
}

// BulkError records one failed pair inside a bulk run.
type BulkError struct {
	StationID string `json:"station_id"`
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

type BulkResult struct {
	WindowID  string      `json:"window_id"`
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []BulkError `json:"errors,omitempty"`
}

type Service interface {
	ComputePrice(ctx context.Context, req ComputeRequest) (*PriceBreakdown, error)
	BulkCompute(ctx context.Context, req BulkComputeRequest) (*BulkResult, error)
	Validate(ctx context.Context, breakdownID snowflake.ID) (*PriceBreakdown, error)
	Latest(ctx context.Context, stationID, productID, windowID string) (*PriceBreakdown, error)
}

var (
	ErrMissingBaseRate    = errors.New("missing_base_rate")
	ErrInvalidRequest     = errors.New("invalid_price_request")
	ErrBreakdownNotFound  = errors.New("breakdown_not_found")
	ErrBreakdownMismatch  = errors.New("breakdown_mismatch")
	ErrPriceOutOfRange    = errors.New("price_out_of_range")
	ErrStationNotFound    = errors.New("station_not_found")
)
