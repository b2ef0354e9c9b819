package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/petroworks/pumpline/internal/clock"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	"github.com/petroworks/pumpline/pkg/db/option"
	"github.com/petroworks/pumpline/pkg/repository"
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
	repo  repository.Repository[ratedomain.RateComponent]
}

func New(p ServiceParam) ratedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ratecomponent.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.ProvideStore[ratedomain.RateComponent](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req ratedomain.CreateRequest) (*ratedomain.RateComponent, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, ratedomain.ErrInvalidCode
	}
	if !ratedomain.ValidCategory(req.Category) {
		return nil, ratedomain.ErrInvalidCategory
	}
	if !ratedomain.ValidUnit(req.Unit) {
		return nil, ratedomain.ErrInvalidUnit
	}
	if req.Value.IsNegative() {
		return nil, ratedomain.ErrInvalidValue
	}
	if req.EffectiveFrom.IsZero() {
		return nil, ratedomain.ErrInvalidEffectiveRange
	}
	if req.EffectiveTo != nil && !req.EffectiveTo.After(req.EffectiveFrom) {
		return nil, ratedomain.ErrInvalidEffectiveRange
	}

	now := s.clock.Now()
	entity := &ratedomain.RateComponent{
		ID:            s.genID.Generate(),
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
		Category:      req.Category,
		Unit:          req.Unit,
		Value:         req.Value,
		Version:       1,
		Active:        true,
		EffectiveFrom: req.EffectiveFrom.UTC(),
		EffectiveTo:   req.EffectiveTo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		overlaps, err := s.countOverlapping(ctx, tx, code, entity.EffectiveFrom, entity.EffectiveTo)
		if err != nil {
			return err
		}
		if overlaps > 0 {
			return ratedomain.ErrOverlappingWindow
		}
		return s.repo.WithTrx(tx).Create(ctx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rate component created",
		zap.String("code", code),
		zap.String("category", string(req.Category)),
		zap.String("value", req.Value.String()),
	)
	return entity, nil
}

// Supersede closes the open interval for a code and opens a new one in
// a single transaction. The version check serializes concurrent rate
// changes to the same code.
func (s *Service) Supersede(ctx context.Context, req ratedomain.SupersedeRequest) (*ratedomain.RateComponent, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, ratedomain.ErrInvalidCode
	}
	if req.Value.IsNegative() {
		return nil, ratedomain.ErrInvalidValue
	}
	if req.NewEffectiveFrom.IsZero() {
		return nil, ratedomain.ErrInvalidEffectiveRange
	}

	var next *ratedomain.RateComponent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.WithTrx(tx).FindOne(ctx,
			&ratedomain.RateComponent{Code: code, Active: true},
			option.WithLockForUpdate(),
		)
		if err != nil {
			return err
		}
		if current == nil {
			return ratedomain.ErrComponentNotFound
		}
		if !req.NewEffectiveFrom.After(current.EffectiveFrom) {
			return ratedomain.ErrInvalidEffectiveRange
		}

		newFrom := req.NewEffectiveFrom.UTC()
		now := s.clock.Now()

		res := tx.WithContext(ctx).Model(&ratedomain.RateComponent{}).
			Where("id = ? AND active = ? AND version = ?", current.ID, true, req.ExpectedVersion).
			Updates(map[string]any{
				"active":       false,
				"effective_to": newFrom,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ratedomain.ErrVersionConflict
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = current.Name
		}
		next = &ratedomain.RateComponent{
			ID:            s.genID.Generate(),
			Code:          code,
			Name:          name,
			Category:      current.Category,
			Unit:          current.Unit,
			Value:         req.Value,
			Version:       current.Version + 1,
			Active:        true,
			EffectiveFrom: newFrom,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.repo.WithTrx(tx).Create(ctx, next)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rate component superseded",
		zap.String("code", code),
		zap.Int32("version", next.Version),
		zap.Time("effective_from", next.EffectiveFrom),
	)
	return next, nil
}

func (s *Service) Resolve(ctx context.Context, code string, at time.Time) (*ratedomain.RateComponent, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ratedomain.ErrInvalidCode
	}

	var component ratedomain.RateComponent
	err := s.db.WithContext(ctx).
		Where("code = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)", code, at.UTC(), at.UTC()).
		Order("effective_from DESC").
		Limit(1).
		Find(&component).Error
	if err != nil {
		return nil, err
	}
	if component.ID == 0 {
		return nil, ratedomain.ErrComponentNotFound
	}
	return &component, nil
}

// ResolveAt loads every component whose effective interval covers the
// instant, one row per code.
func (s *Service) ResolveAt(ctx context.Context, at time.Time) ([]ratedomain.RateComponent, error) {
	var components []ratedomain.RateComponent
	err := s.db.WithContext(ctx).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)", at.UTC(), at.UTC()).
		Order("code ASC, effective_from DESC").
		Find(&components).Error
	if err != nil {
		return nil, err
	}

	// Later intervals shadow earlier ones per code.
	result := components[:0]
	seen := make(map[string]struct{}, len(components))
	for i := range components {
		if _, ok := seen[components[i].Code]; ok {
			continue
		}
		seen[components[i].Code] = struct{}{}
		result = append(result, components[i])
	}
	return result, nil
}

func (s *Service) History(ctx context.Context, code string) ([]ratedomain.RateComponent, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ratedomain.ErrInvalidCode
	}

	items, err := s.repo.Find(ctx,
		&ratedomain.RateComponent{Code: code},
		option.WithOrderBy("effective_from ASC"),
	)
	if err != nil {
		return nil, err
	}

	history := make([]ratedomain.RateComponent, 0, len(items))
	for _, item := range items {
		history = append(history, *item)
	}
	return history, nil
}

func (s *Service) countOverlapping(ctx context.Context, tx *gorm.DB, code string, from time.Time, to *time.Time) (int64, error) {
	stmt := tx.WithContext(ctx).Model(&ratedomain.RateComponent{}).
		Where("code = ?", code)
	if to != nil {
		stmt = stmt.Where("effective_from < ? AND (effective_to IS NULL OR effective_to > ?)", *to, from)
	} else {
		stmt = stmt.Where("effective_to IS NULL OR effective_to > ?", from)
	}

	var count int64
	err := stmt.Count(&count).Error
	return count, err
}
