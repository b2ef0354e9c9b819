package service

import (
	"context"
	"errors"
	"time"

	"github.com/petroworks/pumpline/internal/config"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var one = decimal.NewFromInt(1)

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Pricing *config.PricingConfigHolder
	RateSvc ratedomain.Service
}

type Service struct {
	log     *zap.Logger
	pricing *config.PricingConfigHolder
	rateSvc ratedomain.Service
}

func New(p ServiceParam) levydomain.Service {
	return &Service{
		log:     p.Log.Named("levy.service"),
		pricing: p.Pricing,
		rateSvc: p.RateSvc,
	}
}

// Calculate computes the subsidy claim candidate for one delivery.
// Distance beyond the adjusted equalisation threshold earns the tariff
// per litre per km; adjustment factors add bonuses on top.
func (s *Service) Calculate(ctx context.Context, req levydomain.CalculateRequest) (*levydomain.Result, error) {
	delivery := req.Delivery
	if delivery.ConsignmentID == "" || !delivery.VolumeLitres.IsPositive() || delivery.KmActual.IsNegative() {
		return nil, levydomain.ErrInvalidDelivery
	}
	factors := req.Factors
	for _, f := range []decimal.Decimal{factors.RouteComplexity, factors.ProductCategory, factors.VolumeTier, factors.Compliance} {
		if f.IsNegative() {
			return nil, levydomain.ErrInvalidFactor
		}
	}

	tariff := req.Tariff
	if !tariff.IsPositive() {
		resolved, err := s.TariffAt(ctx, delivery.DeliveredAt)
		if err != nil {
			return nil, err
		}
		tariff = resolved
	}

	kmBeyond := delivery.KmActual.Sub(req.Point.AdjustedThreshold())
	if kmBeyond.IsNegative() {
		kmBeyond = decimal.Zero
	}

	baseClaim := kmBeyond.Mul(delivery.VolumeLitres).Mul(tariff)

	bonuses := map[string]decimal.Decimal{}
	addBonus := func(name string, factor decimal.Decimal) {
		if factor.GreaterThan(one) {
			bonuses[name] = baseClaim.Mul(factor.Sub(one))
		}
	}
	addBonus("route_complexity", factors.RouteComplexity)
	addBonus("product_category", factors.ProductCategory)
	addBonus("volume_tier", factors.VolumeTier)
	addBonus("compliance", factors.Compliance)

	total := baseClaim
	for _, bonus := range bonuses {
		total = total.Add(bonus)
	}

	result := &levydomain.Result{
		KmBeyondEqualisation: kmBeyond,
		TariffPerUnit:        tariff,
		BaseClaimAmount:      baseClaim,
		Bonuses:              bonuses,
		TotalClaimAmount:     total,
	}

	// Cap the claim at the configured fraction of the value moved.
	if delivery.UnitValue.IsPositive() {
		valueMoved := delivery.VolumeLitres.Mul(delivery.UnitValue)
		if valueMoved.IsPositive() {
			maxFraction := s.pricing.Get().MaxClaimFraction
			result.ClaimablePercentage = total.Div(valueMoved)
			cap := valueMoved.Mul(maxFraction)
			if total.GreaterThan(cap) {
				s.log.Warn("claim capped at maximum claimable fraction",
					zap.String("consignment_id", delivery.ConsignmentID),
					zap.String("total", total.String()),
					zap.String("cap", cap.String()),
				)
				result.TotalClaimAmount = cap
				result.ClaimablePercentage = maxFraction
				result.Capped = true
			}
		}
	}

	return result, nil
}

// TariffAt resolves the UPPF levy component at the given instant and
// falls back to the configured default tariff when none is in force.
func (s *Service) TariffAt(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	if at.IsZero() {
		return s.pricing.Get().DefaultTariff, nil
	}
	component, err := s.rateSvc.Resolve(ctx, ratedomain.CodeUPPFLevy, at)
	if err != nil {
		if errors.Is(err, ratedomain.ErrComponentNotFound) {
			return s.pricing.Get().DefaultTariff, nil
		}
		return decimal.Zero, err
	}
	return component.Value, nil
}

// FactorsFor derives the product-category and volume-tier factors.
// Route complexity and compliance come from the caller's context.
func (s *Service) FactorsFor(product levydomain.ProductType, volumeLitres decimal.Decimal) levydomain.AdjustmentFactors {
	factors := levydomain.AdjustmentFactors{
		RouteComplexity: one,
		ProductCategory: one,
		VolumeTier:      one,
		Compliance:      one,
	}

	switch product {
	case levydomain.ProductLPG:
		factors.ProductCategory = decimal.RequireFromString("1.10")
	case levydomain.ProductKerosene:
		factors.ProductCategory = decimal.RequireFromString("1.05")
	}

	switch {
	case volumeLitres.GreaterThanOrEqual(decimal.NewFromInt(36000)):
		factors.VolumeTier = decimal.RequireFromString("1.08")
	case volumeLitres.GreaterThanOrEqual(decimal.NewFromInt(18000)):
		factors.VolumeTier = decimal.RequireFromString("1.04")
	}

	return factors
}
