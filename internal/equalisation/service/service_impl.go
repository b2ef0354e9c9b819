package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/petroworks/pumpline/internal/clock"
	eqdomain "github.com/petroworks/pumpline/internal/equalisation/domain"
	"github.com/petroworks/pumpline/pkg/db/option"
	"github.com/petroworks/pumpline/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  repository.Repository[eqdomain.EqualisationPoint]
}

func New(p ServiceParam) eqdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("equalisation.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.ProvideStore[eqdomain.EqualisationPoint](p.DB),
	}
}

// Create closes any open interval for the route and opens a new one.
// Both writes commit together so the route never has two active rows.
func (s *Service) Create(ctx context.Context, req eqdomain.CreateRequest) (*eqdomain.EqualisationPoint, error) {
	routeID := strings.TrimSpace(req.RouteID)
	if routeID == "" {
		return nil, eqdomain.ErrInvalidRoute
	}
	if !req.KmThreshold.IsPositive() {
		return nil, eqdomain.ErrInvalidThreshold
	}
	if req.TrafficFactor.IsNegative() || req.ComplexityFactor.IsNegative() {
		return nil, eqdomain.ErrInvalidFactor
	}

	now := s.clock.Now()
	from := req.EffectiveFrom.UTC()
	if req.EffectiveFrom.IsZero() {
		from = now
	}

	trafficFactor := req.TrafficFactor
	if trafficFactor.IsZero() {
		trafficFactor = decimal.NewFromInt(1)
	}

	entity := &eqdomain.EqualisationPoint{
		ID:               s.genID.Generate(),
		RouteID:          routeID,
		DepotID:          strings.TrimSpace(req.DepotID),
		StationID:        strings.TrimSpace(req.StationID),
		KmThreshold:      req.KmThreshold,
		TrafficFactor:    trafficFactor,
		ComplexityFactor: req.ComplexityFactor,
		Active:           true,
		EffectiveFrom:    from,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).Model(&eqdomain.EqualisationPoint{}).
			Where("route_id = ? AND active = ?", routeID, true).
			Updates(map[string]any{
				"active":       false,
				"effective_to": from,
				"updated_at":   now,
			}).Error
		if err != nil {
			return err
		}
		return s.repo.WithTrx(tx).Create(ctx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("equalisation point set",
		zap.String("route_id", routeID),
		zap.String("km_threshold", req.KmThreshold.String()),
	)
	return entity, nil
}

func (s *Service) FindActive(ctx context.Context, routeID string, at time.Time) (*eqdomain.EqualisationPoint, error) {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		return nil, eqdomain.ErrInvalidRoute
	}

	var point eqdomain.EqualisationPoint
	err := s.db.WithContext(ctx).
		Where("route_id = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)", routeID, at.UTC(), at.UTC()).
		Order("effective_from DESC").
		Limit(1).
		Find(&point).Error
	if err != nil {
		return nil, err
	}
	if point.ID == 0 {
		return nil, eqdomain.ErrInvalidRoute
	}
	return &point, nil
}

func (s *Service) History(ctx context.Context, routeID string) ([]eqdomain.EqualisationPoint, error) {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		return nil, eqdomain.ErrInvalidRoute
	}

	items, err := s.repo.Find(ctx,
		&eqdomain.EqualisationPoint{RouteID: routeID},
		option.WithOrderBy("effective_from ASC"),
	)
	if err != nil {
		return nil, err
	}

	history := make([]eqdomain.EqualisationPoint, 0, len(items))
	for _, item := range items {
		history = append(history, *item)
	}
	return history, nil
}
