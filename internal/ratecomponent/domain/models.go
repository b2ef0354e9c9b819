package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Category string

var (
	CategoryBase             Category = "base"
	CategoryLevy             Category = "levy"
	CategoryRegulatoryMargin Category = "regulatory_margin"
	CategoryOMCMargin        Category = "omc_margin"
	CategoryDealerMargin     Category = "dealer_margin"
)

type Unit string

var (
	UnitAmountPerLitre   Unit = "amount_per_litre"
	UnitPercentageOfBase Unit = "percentage_of_base"
)

// Well-known NPA build-up component codes.
const (
	CodeExRefinery          = "EXREF"
	CodeEnergyDebtRecovery  = "EDRL"
	CodeRoadFund            = "ROAD"
	CodePriceStabilisation  = "PSRL"
	CodeBOSTMargin          = "BOST"
	CodeUPPFLevy            = "UPPF"
	CodeFuelMarking         = "MARK"
	CodePrimaryDistribution = "PRIM"
	CodeOMCMargin           = "OMC"
	CodeDealerMargin        = "DEAL"
)

// RateComponent is one effective-dated regulatory rate. Superseding a
// rate closes the current interval and inserts a new row; history rows
// are never deleted.
type RateComponent struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	Code          string          `json:"code" gorm:"type:text;not null;index"`
	Name          string          `json:"name" gorm:"type:text;not null"`
	Category      Category        `json:"category" gorm:"type:text;not null"`
	Value         decimal.Decimal `json:"value" gorm:"type:decimal(20,6);not null"`
	Unit          Unit            `json:"unit" gorm:"type:text;not null"`
	Version       int32           `json:"version" gorm:"not null;default:1"`
	Active        bool            `json:"active" gorm:"not null;default:true"`
	EffectiveFrom time.Time       `json:"effective_from" gorm:"not null;index"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty" gorm:""`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RateComponent) TableName() string { return "rate_components" }

// EffectiveAt reports whether the component's interval covers the instant.
func (c RateComponent) EffectiveAt(at time.Time) bool {
	if at.Before(c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && !at.Before(*c.EffectiveTo) {
		return false
	}
	return true
}

func ValidCategory(c Category) bool {
	switch c {
	case CategoryBase, CategoryLevy, CategoryRegulatoryMargin, CategoryOMCMargin, CategoryDealerMargin:
		return true
	default:
		return false
	}
}

func ValidUnit(u Unit) bool {
	switch u {
	case UnitAmountPerLitre, UnitPercentageOfBase:
		return true
	default:
		return false
	}
}
