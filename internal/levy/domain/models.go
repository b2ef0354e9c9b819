package domain

import (
	"context"
	"errors"
	"time"

	eqdomain "github.com/petroworks/pumpline/internal/equalisation/domain"
	"github.com/shopspring/decimal"
)

// ProductType values mirror the NPA product registry.
type ProductType string

var (
	ProductPMS      ProductType = "PMS"
	ProductAGO      ProductType = "AGO"
	ProductKerosene ProductType = "KEROSENE"
	ProductLPG      ProductType = "LPG"
)

// DeliveryRecord is the immutable input describing one consignment.
// Created by the external delivery collaborator, never persisted here.
type DeliveryRecord struct {
	ConsignmentID string          `json:"consignment_id"`
	RouteID       string          `json:"route_id"`
	ProductType   ProductType     `json:"product_type"`
	VolumeLitres  decimal.Decimal `json:"volume_litres"`
	KmActual      decimal.Decimal `json:"km_actual"`
	KmPlanned     decimal.Decimal `json:"km_planned"`
	// Value of the product per litre, used to bound the claim.
	UnitValue   decimal.Decimal `json:"unit_value"`
	DeliveredAt time.Time       `json:"delivered_at"`
}

// AdjustmentFactors are multipliers in [0, inf). A factor above 1
// contributes a bonus; a factor at or below 1 contributes nothing.
type AdjustmentFactors struct {
	RouteComplexity decimal.Decimal `json:"route_complexity"`
	ProductCategory decimal.Decimal `json:"product_category"`
	VolumeTier      decimal.Decimal `json:"volume_tier"`
	Compliance      decimal.Decimal `json:"compliance"`
}

// Result is the computed subsidy claim candidate for one delivery.
type Result struct {
	KmBeyondEqualisation decimal.Decimal            `json:"km_beyond_equalisation"`
	TariffPerUnit        decimal.Decimal            `json:"tariff_per_unit"`
	BaseClaimAmount      decimal.Decimal            `json:"base_claim_amount"`
	Bonuses              map[string]decimal.Decimal `json:"bonuses"`
	TotalClaimAmount     decimal.Decimal            `json:"total_claim_amount"`
	ClaimablePercentage  decimal.Decimal            `json:"claimable_percentage"`
	Capped               bool                       `json:"capped"`
}

// TotalBonus sums all bonus components.
func (r Result) TotalBonus() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.Bonuses {
		total = total.Add(v)
	}
	return total
}

type CalculateRequest struct {
	Delivery DeliveryRecord
	Point    eqdomain.EqualisationPoint
	Factors  AdjustmentFactors
	// Tariff overrides store resolution when positive.
	Tariff decimal.Decimal
}

type Service interface {
	Calculate(ctx context.Context, req CalculateRequest) (*Result, error)
	TariffAt(ctx context.Context, at time.Time) (decimal.Decimal, error)
	FactorsFor(product ProductType, volumeLitres decimal.Decimal) AdjustmentFactors
}

var (
	ErrInvalidDelivery = errors.New("invalid_delivery")
	ErrInvalidFactor   = errors.New("invalid_adjustment_factor")
)
