package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/petroworks/pumpline/internal/clock"
	"github.com/petroworks/pumpline/internal/config"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Pricing *config.PricingConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	pricing *config.PricingConfigHolder
}

func New(p ServiceParam) recdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("reconciliation.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		pricing: p.Pricing,
	}
}

// Reconcile computes the three pairwise variances and classifies the
// consignment. Running it again with the same inputs yields the same
// result; new inputs supersede the stored row rather than appending.
func (s *Service) Reconcile(ctx context.Context, req recdomain.ReconcileRequest) (*recdomain.ThreeWayReconciliation, error) {
	consignmentID := strings.TrimSpace(req.ConsignmentID)
	if consignmentID == "" {
		return nil, recdomain.ErrInvalidConsignment
	}
	if !req.DepotVolume.IsPositive() || !req.TransporterVolume.IsPositive() || !req.StationVolume.IsPositive() {
		return nil, recdomain.ErrInvalidVolume
	}

	routeComplexity := normalizeFactor(req.RouteComplexity)
	productVolatility := normalizeFactor(req.ProductVolatility)
	if routeComplexity.LessThan(one) || productVolatility.LessThan(one) {
		return nil, recdomain.ErrInvalidFactor
	}

	// Tolerance widens for hard routes and volatile products, never
	// narrows below the configured floor.
	base := s.pricing.Get().BaseTolerance
	tolerance := base.Mul(routeComplexity).Mul(productVolatility)
	if tolerance.LessThan(base) {
		tolerance = base
	}

	varDT := variance(req.DepotVolume, req.TransporterVolume)
	varTS := variance(req.TransporterVolume, req.StationVolume)
	varDS := variance(req.DepotVolume, req.StationVolume)

	status := recdomain.StatusMatched
	for _, v := range []decimal.Decimal{varDT, varTS, varDS} {
		if v.Abs().GreaterThan(tolerance) {
			status = recdomain.StatusVarianceDetected
			break
		}
	}

	entity := &recdomain.ThreeWayReconciliation{
		ConsignmentID:              consignmentID,
		DepotVolume:                req.DepotVolume,
		DepotRef:                   strings.TrimSpace(req.DepotRef),
		TransporterVolume:          req.TransporterVolume,
		TransporterRef:             strings.TrimSpace(req.TransporterRef),
		StationVolume:              req.StationVolume,
		StationRef:                 strings.TrimSpace(req.StationRef),
		VarianceDepotTransporter:   varDT,
		VarianceTransporterStation: varTS,
		VarianceDepotStation:       varDS,
		ToleranceApplied:           tolerance,
		Status:                     status,
	}
	entity.RiskScore = riskScore(entity.MaxVariance(), tolerance, req.GPSConfidence, req.DocumentationComplete)

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findForUpdate(ctx, tx, consignmentID)
		if err != nil {
			return err
		}
		if existing == nil {
			entity.ID = s.genID.Generate()
			entity.CreatedAt = now
			entity.UpdatedAt = now
			return tx.Create(entity).Error
		}
		if existing.Status == recdomain.StatusResolved {
			return recdomain.ErrReconciliationFinal
		}

		entity.ID = existing.ID
		entity.CreatedAt = existing.CreatedAt
		entity.UpdatedAt = now
		entity.Note = existing.Note
		return tx.Save(entity).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("consignment reconciled",
		zap.String("consignment_id", consignmentID),
		zap.String("status", string(entity.Status)),
		zap.String("tolerance", tolerance.String()),
	)
	return entity, nil
}

// Dispute marks a detected variance as contested.
func (s *Service) Dispute(ctx context.Context, consignmentID, note string) (*recdomain.ThreeWayReconciliation, error) {
	return s.changeStatus(ctx, consignmentID, note, recdomain.StatusDisputed, func(current recdomain.Status) bool {
		return current == recdomain.StatusVarianceDetected
	})
}

// Resolve closes a reconciliation. After this only the note may change.
func (s *Service) Resolve(ctx context.Context, consignmentID, note string) (*recdomain.ThreeWayReconciliation, error) {
	return s.changeStatus(ctx, consignmentID, note, recdomain.StatusResolved, func(current recdomain.Status) bool {
		return current == recdomain.StatusVarianceDetected || current == recdomain.StatusDisputed || current == recdomain.StatusMatched
	})
}

// AddNote appends an audit note without touching the status. This is
// the only write a resolved reconciliation still accepts.
func (s *Service) AddNote(ctx context.Context, consignmentID, note string) (*recdomain.ThreeWayReconciliation, error) {
	consignmentID = strings.TrimSpace(consignmentID)
	if consignmentID == "" {
		return nil, recdomain.ErrInvalidConsignment
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, recdomain.ErrInvalidNote
	}

	var result *recdomain.ThreeWayReconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findForUpdate(ctx, tx, consignmentID)
		if err != nil {
			return err
		}
		if existing == nil {
			return recdomain.ErrNotFound
		}

		if existing.Note == "" {
			existing.Note = note
		} else {
			existing.Note = existing.Note + "\n" + note
		}
		existing.UpdatedAt = s.clock.Now()
		result = existing
		return tx.Save(existing).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) FindByConsignment(ctx context.Context, consignmentID string) (*recdomain.ThreeWayReconciliation, error) {
	consignmentID = strings.TrimSpace(consignmentID)
	if consignmentID == "" {
		return nil, recdomain.ErrInvalidConsignment
	}

	var rec recdomain.ThreeWayReconciliation
	err := s.db.WithContext(ctx).Where("consignment_id = ?", consignmentID).Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, recdomain.ErrNotFound
	}
	return &rec, nil
}

func (s *Service) changeStatus(
	ctx context.Context,
	consignmentID, note string,
	target recdomain.Status,
	allowed func(recdomain.Status) bool,
) (*recdomain.ThreeWayReconciliation, error) {
	consignmentID = strings.TrimSpace(consignmentID)
	if consignmentID == "" {
		return nil, recdomain.ErrInvalidConsignment
	}

	var result *recdomain.ThreeWayReconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findForUpdate(ctx, tx, consignmentID)
		if err != nil {
			return err
		}
		if existing == nil {
			return recdomain.ErrNotFound
		}
		if existing.Status == recdomain.StatusResolved {
			return recdomain.ErrReconciliationFinal
		}
		if !allowed(existing.Status) {
			return recdomain.ErrInvalidStatusChange
		}

		existing.Status = target
		if note = strings.TrimSpace(note); note != "" {
			existing.Note = note
		}
		existing.UpdatedAt = s.clock.Now()
		result = existing
		return tx.Save(existing).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) findForUpdate(ctx context.Context, tx *gorm.DB, consignmentID string) (*recdomain.ThreeWayReconciliation, error) {
	var rec recdomain.ThreeWayReconciliation
	err := tx.WithContext(ctx).Where("consignment_id = ?", consignmentID).Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

// variance is the signed relative difference (a-b)/a.
func variance(a, b decimal.Decimal) decimal.Decimal {
	if a.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Div(a)
}

// riskScore grows with the worst variance relative to tolerance and
// shrinks with corroborating evidence. Bounded to [0, 100].
func riskScore(maxVariance, tolerance, gpsConfidence decimal.Decimal, documentationComplete bool) decimal.Decimal {
	if tolerance.IsZero() {
		return decimal.Zero
	}

	score := maxVariance.Div(tolerance).Mul(decimal.NewFromInt(25))
	if gpsConfidence.IsPositive() {
		score = score.Sub(gpsConfidence.Mul(decimal.NewFromInt(15)))
	}
	if documentationComplete {
		score = score.Sub(decimal.NewFromInt(10))
	}

	if score.IsNegative() {
		return decimal.Zero
	}
	if score.GreaterThan(hundred) {
		return hundred
	}
	return score
}

func normalizeFactor(f decimal.Decimal) decimal.Decimal {
	if f.IsZero() {
		return one
	}
	return f
}
