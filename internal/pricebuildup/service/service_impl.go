package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	"github.com/petroworks/pumpline/internal/clock"
	"github.com/petroworks/pumpline/internal/config"
	"github.com/petroworks/pumpline/internal/eventbus"
	eventdomain "github.com/petroworks/pumpline/internal/eventbus/domain"
	"github.com/petroworks/pumpline/internal/observability/metrics"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Pricing   *config.PricingConfigHolder
	RateSvc   ratedomain.Service
	Stations  pbdomain.StationDirectory
	Publisher *eventbus.Publisher
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	pricing   *config.PricingConfigHolder
	rateSvc   ratedomain.Service
	stations  pbdomain.StationDirectory
	publisher *eventbus.Publisher
}

func New(p ServiceParam) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("pricebuildup.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		pricing:   p.Pricing,
		rateSvc:   p.RateSvc,
		stations:  p.Stations,
		publisher: p.Publisher,
	}
}

// ComputePrice builds the ex-pump price for one station/product/window
// from the rate components in force at the requested instant. The
// snapshot always persists; a total outside the configured bounds is
// flagged for review, not discarded.
func (s *Service) ComputePrice(ctx context.Context, req pbdomain.ComputeRequest) (*pbdomain.PriceBreakdown, error) {
	stationID := strings.TrimSpace(req.StationID)
	productID := strings.TrimSpace(req.ProductID)
	windowID := strings.TrimSpace(req.WindowID)
	if stationID == "" || productID == "" || windowID == "" {
		return nil, pbdomain.ErrInvalidRequest
	}
	asOf := req.AsOf.UTC()
	if req.AsOf.IsZero() {
		asOf = s.clock.Now()
	}

	components, err := s.rateSvc.ResolveAt(ctx, asOf)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.buildBreakdown(stationID, productID, windowID, components, req.Overrides)
	if err != nil {
		metrics.Default().IncPriceComputed("error")
		return nil, err
	}
	breakdown.ComputedAt = s.clock.Now()

	pricing := s.pricing.Get()
	if breakdown.TotalPrice.LessThan(pricing.PriceFloor) || breakdown.TotalPrice.GreaterThan(pricing.PriceCeiling) {
		breakdown.OutOfRange = true
		s.log.Warn("computed price outside configured bounds",
			zap.String("station_id", stationID),
			zap.String("product_id", productID),
			zap.String("window_id", windowID),
			zap.String("total_price", breakdown.TotalPrice.String()),
		)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(breakdown).Error; err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, eventdomain.EventPriceCalculated, breakdown.ID.String(), map[string]any{
			"breakdown_id": breakdown.ID.String(),
			"station_id":   stationID,
			"product_id":   productID,
			"window_id":    windowID,
			"total_price":  breakdown.TotalPrice.String(),
			"out_of_range": breakdown.OutOfRange,
			"computed_at":  breakdown.ComputedAt,
		})
	})
	if err != nil {
		metrics.Default().IncPriceComputed("error")
		return nil, err
	}

	metrics.Default().IncPriceComputed("ok")
	return breakdown, nil
}

// BulkCompute walks the station x product cross-product. Pair failures
// accumulate in the summary and never abort the batch; cancellation is
// honored between pairs and keeps completed snapshots.
func (s *Service) BulkCompute(ctx context.Context, req pbdomain.BulkComputeRequest) (*pbdomain.BulkResult, error) {
	windowID := strings.TrimSpace(req.WindowID)
	if windowID == "" || len(req.ProductIDs) == 0 {
		return nil, pbdomain.ErrInvalidRequest
	}

	stationIDs := req.StationIDs
	if len(stationIDs) == 0 {
		stations, err := s.stations.GetActiveStations(ctx)
		if err != nil {
			return nil, err
		}
		for _, station := range stations {
			stationIDs = append(stationIDs, station.ID)
		}
	}

	result := &pbdomain.BulkResult{
		WindowID: windowID,
		Total:    len(stationIDs) * len(req.ProductIDs),
	}

	for _, stationID := range stationIDs {
		for _, productID := range req.ProductIDs {
			if err := ctx.Err(); err != nil {
				// Completed snapshots stay; report what we got to.
				s.emitBulkSummary(context.WithoutCancel(ctx), result, "cancelled")
				return result, err
			}

			_, err := s.ComputePrice(ctx, pbdomain.ComputeRequest{
				StationID: stationID,
				ProductID: productID,
				WindowID:  windowID,
				AsOf:      req.AsOf,
			})
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, pbdomain.BulkError{
					StationID: stationID,
					ProductID: productID,
					Reason:    err.Error(),
				})
				continue
			}
			result.Succeeded++
		}
	}

	s.emitBulkSummary(ctx, result, "completed")
	s.log.Info("bulk price computation finished",
		zap.String("window_id", windowID),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// Validate recomputes category totals from the stored component values
// and checks the snapshot against them and the configured price bounds.
func (s *Service) Validate(ctx context.Context, breakdownID snowflake.ID) (*pbdomain.PriceBreakdown, error) {
	breakdown, err := s.load(ctx, breakdownID)
	if err != nil {
		return nil, err
	}

	var components []pbdomain.ComponentValue
	if err := json.Unmarshal(breakdown.Components, &components); err != nil {
		return breakdown, fmt.Errorf("decode components for breakdown %s: %w", breakdownID, err)
	}

	totals := map[ratedomain.Category]decimal.Decimal{}
	for _, component := range components {
		totals[component.Category] = totals[component.Category].Add(component.Value)
	}

	recomputed := totals[ratedomain.CategoryBase].
		Add(totals[ratedomain.CategoryLevy]).
		Add(totals[ratedomain.CategoryRegulatoryMargin]).
		Add(totals[ratedomain.CategoryOMCMargin]).
		Add(totals[ratedomain.CategoryDealerMargin])

	if !recomputed.Equal(breakdown.TotalPrice) {
		s.log.Warn("breakdown total disagrees with stored components",
			zap.String("breakdown_id", breakdownID.String()),
			zap.String("stored_total", breakdown.TotalPrice.String()),
			zap.String("recomputed_total", recomputed.String()),
		)
		return breakdown, fmt.Errorf("breakdown %s: stored %s recomputed %s: %w",
			breakdownID, breakdown.TotalPrice, recomputed, pbdomain.ErrBreakdownMismatch)
	}

	pricing := s.pricing.Get()
	if breakdown.TotalPrice.LessThan(pricing.PriceFloor) || breakdown.TotalPrice.GreaterThan(pricing.PriceCeiling) {
		return breakdown, fmt.Errorf("breakdown %s: total %s outside [%s, %s]: %w",
			breakdownID, breakdown.TotalPrice, pricing.PriceFloor, pricing.PriceCeiling, pbdomain.ErrPriceOutOfRange)
	}

	return breakdown, nil
}

// HasBreakdown reports whether any station carries a published
// build-up for the product and window.
func (s *Service) HasBreakdown(ctx context.Context, productID, windowID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&pbdomain.PriceBreakdown{}).
		Where("product_id = ? AND window_id = ?", productID, windowID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Latest returns the authoritative snapshot for a target triple.
func (s *Service) Latest(ctx context.Context, stationID, productID, windowID string) (*pbdomain.PriceBreakdown, error) {
	var breakdown pbdomain.PriceBreakdown
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND product_id = ? AND window_id = ?", stationID, productID, windowID).
		Order("computed_at DESC").
		Limit(1).
		Find(&breakdown).Error
	if err != nil {
		return nil, err
	}
	if breakdown.ID == 0 {
		return nil, pbdomain.ErrBreakdownNotFound
	}
	return &breakdown, nil
}

func (s *Service) buildBreakdown(
	stationID, productID, windowID string,
	components []ratedomain.RateComponent,
	overrides map[string]decimal.Decimal,
) (*pbdomain.PriceBreakdown, error) {
	var base *ratedomain.RateComponent
	for i := range components {
		if components[i].Category == ratedomain.CategoryBase {
			base = &components[i]
			break
		}
	}
	if base == nil {
		return nil, pbdomain.ErrMissingBaseRate
	}

	baseRate := base.Value
	if override, ok := overrides[base.Code]; ok {
		baseRate = override
	}

	values := make([]pbdomain.ComponentValue, 0, len(components))
	taxesAndLevies := decimal.Zero
	regulatoryMargins := decimal.Zero
	omcMargin := decimal.Zero
	dealerMargin := decimal.Zero

	for _, component := range components {
		rate := component.Value
		if override, ok := overrides[component.Code]; ok {
			rate = override
		}

		var value decimal.Decimal
		switch {
		case component.Category == ratedomain.CategoryBase:
			value = baseRate
		case component.Unit == ratedomain.UnitPercentageOfBase:
			value = baseRate.Mul(rate).Div(hundred)
		default:
			value = rate
		}

		switch component.Category {
		case ratedomain.CategoryLevy:
			taxesAndLevies = taxesAndLevies.Add(value)
		case ratedomain.CategoryRegulatoryMargin:
			regulatoryMargins = regulatoryMargins.Add(value)
		case ratedomain.CategoryOMCMargin:
			omcMargin = value
		case ratedomain.CategoryDealerMargin:
			dealerMargin = value
		}

		values = append(values, pbdomain.ComponentValue{
			Code:     component.Code,
			Name:     component.Name,
			Category: component.Category,
			Unit:     component.Unit,
			Rate:     rate,
			Value:    value,
		})
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}

	return &pbdomain.PriceBreakdown{
		ID:                s.genID.Generate(),
		StationID:         stationID,
		ProductID:         productID,
		WindowID:          windowID,
		BaseRate:          baseRate,
		TaxesAndLevies:    taxesAndLevies,
		RegulatoryMargins: regulatoryMargins,
		OMCMargin:         omcMargin,
		DealerMargin:      dealerMargin,
		TotalPrice:        baseRate.Add(taxesAndLevies).Add(regulatoryMargins).Add(omcMargin).Add(dealerMargin),
		Components:        encoded,
	}, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*pbdomain.PriceBreakdown, error) {
	var breakdown pbdomain.PriceBreakdown
	err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&breakdown).Error
	if err != nil {
		return nil, err
	}
	if breakdown.ID == 0 {
		return nil, pbdomain.ErrBreakdownNotFound
	}
	return &breakdown, nil
}

func (s *Service) emitBulkSummary(ctx context.Context, result *pbdomain.BulkResult, outcome string) {
	err := s.publisher.Enqueue(ctx, nil, eventdomain.EventPriceBulkCompleted, "", map[string]any{
		"window_id": result.WindowID,
		"outcome":   outcome,
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	if err != nil {
		s.log.Warn("enqueue bulk summary event", zap.Error(err))
	}
}

var (
	_ pbdomain.Service             = (*Service)(nil)
	_ claimdomain.PricingSnapshots = (*Service)(nil)
)
