package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type baselineRate struct {
	code     string
	name     string
	category ratedomain.Category
	unit     ratedomain.Unit
	value    string
}

// Baseline NPA build-up components, GHS per litre. The ex-refinery
// rate is deliberately absent: it tracks world market prices and must
// be published through the rate-component API each window.
var baselineRates = []baselineRate{
	{ratedomain.CodeEnergyDebtRecovery, "Energy Debt Recovery Levy", ratedomain.CategoryLevy, ratedomain.UnitAmountPerLitre, "0.49"},
	{ratedomain.CodeRoadFund, "Road Fund Levy", ratedomain.CategoryLevy, ratedomain.UnitAmountPerLitre, "0.48"},
	{ratedomain.CodePriceStabilisation, "Price Stabilisation and Recovery Levy", ratedomain.CategoryLevy, ratedomain.UnitAmountPerLitre, "0.16"},
	{ratedomain.CodeUPPFLevy, "Unified Petroleum Price Fund Levy", ratedomain.CategoryLevy, ratedomain.UnitAmountPerLitre, "0.46"},
	{ratedomain.CodeBOSTMargin, "BOST Margin", ratedomain.CategoryRegulatoryMargin, ratedomain.UnitAmountPerLitre, "0.12"},
	{ratedomain.CodeFuelMarking, "Fuel Marking Margin", ratedomain.CategoryRegulatoryMargin, ratedomain.UnitAmountPerLitre, "0.09"},
	{ratedomain.CodePrimaryDistribution, "Primary Distribution Margin", ratedomain.CategoryRegulatoryMargin, ratedomain.UnitAmountPerLitre, "0.11"},
	{ratedomain.CodeOMCMargin, "OMC Marketing Margin", ratedomain.CategoryOMCMargin, ratedomain.UnitAmountPerLitre, "0.60"},
	{ratedomain.CodeDealerMargin, "Dealer Margin", ratedomain.CategoryDealerMargin, ratedomain.UnitAmountPerLitre, "0.40"},
}

// EnsureBaselineRates seeds the regulated components so a fresh
// deployment can compute a build-up as soon as a base rate is
// published. Codes that already exist are left untouched.
func EnsureBaselineRates(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rate := range baselineRates {
			var count int64
			if err := tx.Model(&ratedomain.RateComponent{}).
				Where("code = ?", rate.code).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			component := ratedomain.RateComponent{
				ID:            node.Generate(),
				Code:          rate.code,
				Name:          rate.name,
				Category:      rate.category,
				Value:         decimal.RequireFromString(rate.value),
				Unit:          rate.unit,
				Version:       1,
				Active:        true,
				EffectiveFrom: now,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Create(&component).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
