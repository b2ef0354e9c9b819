package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// EqualisationPoint is the per-route distance threshold beyond which a
// delivery earns transport subsidy. One active row per route.
type EqualisationPoint struct {
	ID               snowflake.ID    `json:"id" gorm:"primaryKey"`
	RouteID          string          `json:"route_id" gorm:"type:text;not null;index"`
	DepotID          string          `json:"depot_id" gorm:"type:text;not null"`
	StationID        string          `json:"station_id" gorm:"type:text;not null"`
	KmThreshold      decimal.Decimal `json:"km_threshold" gorm:"type:decimal(12,3);not null"`
	TrafficFactor    decimal.Decimal `json:"traffic_factor" gorm:"type:decimal(8,4);not null;default:1"`
	ComplexityFactor decimal.Decimal `json:"complexity_factor" gorm:"type:decimal(8,4);not null;default:0"`
	Active           bool            `json:"active" gorm:"not null;default:true"`
	EffectiveFrom    time.Time       `json:"effective_from" gorm:"not null;index"`
	EffectiveTo      *time.Time      `json:"effective_to,omitempty" gorm:""`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (EqualisationPoint) TableName() string { return "equalisation_points" }

// AdjustedThreshold widens the raw km threshold by route complexity.
func (p EqualisationPoint) AdjustedThreshold() decimal.Decimal {
	return p.KmThreshold.Mul(decimal.NewFromInt(1).Add(p.ComplexityFactor))
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*EqualisationPoint, error)
	FindActive(ctx context.Context, routeID string, at time.Time) (*EqualisationPoint, error)
	History(ctx context.Context, routeID string) ([]EqualisationPoint, error)
}

type CreateRequest struct {
	RouteID          string          `json:"route_id"`
	DepotID          string          `json:"depot_id"`
	StationID        string          `json:"station_id"`
	KmThreshold      decimal.Decimal `json:"km_threshold"`
	TrafficFactor    decimal.Decimal `json:"traffic_factor"`
	ComplexityFactor decimal.Decimal `json:"complexity_factor"`
	EffectiveFrom    time.Time       `json:"effective_from"`
}

var (
	ErrInvalidRoute     = errors.New("invalid_route")
	ErrInvalidThreshold = errors.New("invalid_threshold")
	ErrInvalidFactor    = errors.New("invalid_factor")
)
