package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*RateComponent, error)
	Supersede(ctx context.Context, req SupersedeRequest) (*RateComponent, error)
	Resolve(ctx context.Context, code string, at time.Time) (*RateComponent, error)
	ResolveAt(ctx context.Context, at time.Time) ([]RateComponent, error)
	History(ctx context.Context, code string) ([]RateComponent, error)
}

type CreateRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Category      Category        `json:"category"`
	Unit          Unit            `json:"unit"`
	Value         decimal.Decimal `json:"value"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"`
}

type SupersedeRequest struct {
	Code             string          `json:"code"`
	Value            decimal.Decimal `json:"value"`
	Name             string          `json:"name"`
	NewEffectiveFrom time.Time       `json:"new_effective_from"`
	ExpectedVersion  int32           `json:"expected_version"`
}

var (
	ErrInvalidCode           = errors.New("invalid_code")
	ErrInvalidCategory       = errors.New("invalid_category")
	ErrInvalidUnit           = errors.New("invalid_unit")
	ErrInvalidValue          = errors.New("invalid_value")
	ErrInvalidEffectiveRange = errors.New("invalid_effective_range")
	ErrOverlappingWindow     = errors.New("overlapping_effective_window")
	ErrVersionConflict       = errors.New("version_conflict")
	ErrComponentNotFound     = errors.New("component_not_found")
)
