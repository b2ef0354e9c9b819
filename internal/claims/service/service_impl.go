package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	"github.com/petroworks/pumpline/internal/clock"
	eqdomain "github.com/petroworks/pumpline/internal/equalisation/domain"
	"github.com/petroworks/pumpline/internal/eventbus"
	eventdomain "github.com/petroworks/pumpline/internal/eventbus/domain"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	"github.com/petroworks/pumpline/internal/observability/metrics"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	"github.com/petroworks/pumpline/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Deliveries   claimdomain.DeliveryRegistry
	Equalisation eqdomain.Service
	Levy         levydomain.Service
	Recon        recdomain.Service
	Pricing      claimdomain.PricingSnapshots
	Publisher    *eventbus.Publisher
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	deliveries   claimdomain.DeliveryRegistry
	equalisation eqdomain.Service
	levy         levydomain.Service
	recon        recdomain.Service
	pricing      claimdomain.PricingSnapshots
	publisher    *eventbus.Publisher
}

func New(p ServiceParam) claimdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("claims.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		deliveries:   p.Deliveries,
		equalisation: p.Equalisation,
		levy:         p.Levy,
		recon:        p.Recon,
		pricing:      p.Pricing,
		publisher:    p.Publisher,
	}
}

// CreateClaim builds a draft claim for one delivered consignment. The
// levy calculation runs up front so the claim carries its full amount
// breakdown from birth; anomalies never block creation.
func (s *Service) CreateClaim(ctx context.Context, req claimdomain.CreateClaimRequest) (*claimdomain.UPPFClaim, error) {
	consignmentID := strings.TrimSpace(req.ConsignmentID)
	windowID := strings.TrimSpace(req.WindowID)
	if consignmentID == "" || windowID == "" {
		return nil, claimdomain.ErrInvalidClaimRequest
	}

	delivery, err := s.deliveries.GetDeliveryByID(ctx, consignmentID)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, claimdomain.ErrDeliveryNotFound
	}

	point, err := s.equalisation.FindActive(ctx, delivery.RouteID, delivery.DeliveredAt)
	if err != nil {
		return nil, err
	}

	tariff, err := s.levy.TariffAt(ctx, delivery.DeliveredAt)
	if err != nil {
		return nil, err
	}

	result, err := s.levy.Calculate(ctx, levydomain.CalculateRequest{
		Delivery: *delivery,
		Point:    *point,
		Factors:  s.levy.FactorsFor(delivery.ProductType, delivery.VolumeLitres),
		Tariff:   tariff,
	})
	if err != nil {
		return nil, err
	}

	bonuses, err := json.Marshal(result.Bonuses)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	claim := &claimdomain.UPPFClaim{
		ID:                   s.genID.Generate(),
		WindowID:             windowID,
		ConsignmentID:        consignmentID,
		RouteID:              delivery.RouteID,
		DealerID:             strings.TrimSpace(req.DealerID),
		ProductType:          delivery.ProductType,
		VolumeLitres:         delivery.VolumeLitres,
		KmBeyondEqualisation: result.KmBeyondEqualisation,
		TariffPerUnit:        result.TariffPerUnit,
		BaseClaimAmount:      result.BaseClaimAmount,
		Bonuses:              bonuses,
		TotalClaimAmount:     result.TotalClaimAmount,
		QualityScore:         hundred,
		RiskScore:            decimal.Zero,
		Status:               claimdomain.StatusDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&claimdomain.UPPFClaim{}).
			Where("consignment_id = ?", consignmentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return claimdomain.ErrDuplicateClaim
		}

		number, err := s.nextClaimNumber(tx, windowID)
		if err != nil {
			return err
		}
		claim.ClaimNumber = number

		if err := tx.Create(claim).Error; err != nil {
			return err
		}
		return s.appendAudit(tx, claim.ID, "claim.created", req.Actor, "", string(claimdomain.StatusDraft))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("claim created",
		zap.String("claim_number", claim.ClaimNumber),
		zap.String("consignment_id", consignmentID),
		zap.String("total_claim_amount", claim.TotalClaimAmount.String()),
	)
	return claim, nil
}

// RecordReconciliation runs the three-way reconciliation for a
// consignment. A detected variance puts a VOLUME_VARIANCE anomaly on
// the consignment's claim if one exists.
func (s *Service) RecordReconciliation(ctx context.Context, req recdomain.ReconcileRequest) (*recdomain.ThreeWayReconciliation, error) {
	rec, err := s.recon.Reconcile(ctx, req)
	if err != nil {
		return nil, err
	}
	if rec.Status != recdomain.StatusVarianceDetected {
		return rec, nil
	}

	claim, err := s.FindByConsignment(ctx, rec.ConsignmentID)
	if err != nil {
		if errors.Is(err, claimdomain.ErrClaimNotFound) {
			return rec, nil
		}
		return nil, err
	}

	severity := claimdomain.SeverityMedium
	if rec.MaxVariance().GreaterThan(rec.ToleranceApplied.Mul(decimal.NewFromInt(3))) {
		severity = claimdomain.SeverityHigh
	}
	_, err = s.AddAnomaly(ctx, claim.ID, claimdomain.AnomalyInput{
		Type:     claimdomain.AnomalyVolumeVariance,
		Severity: severity,
		Description: fmt.Sprintf("volume variance %s exceeds tolerance %s",
			rec.MaxVariance().String(), rec.ToleranceApplied.String()),
		Actor: "reconciliation",
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) FindByConsignment(ctx context.Context, consignmentID string) (*claimdomain.UPPFClaim, error) {
	var claim claimdomain.UPPFClaim
	err := s.db.WithContext(ctx).Where("consignment_id = ?", consignmentID).Limit(1).Find(&claim).Error
	if err != nil {
		return nil, err
	}
	if claim.ID == 0 {
		return nil, claimdomain.ErrClaimNotFound
	}
	return &claim, nil
}

// Transition moves a claim forward through its lifecycle. The settled
// state is reserved for the settlement path and cannot be reached here.
func (s *Service) Transition(ctx context.Context, req claimdomain.TransitionRequest) (*claimdomain.UPPFClaim, error) {
	if req.Target == claimdomain.StatusSettled {
		return nil, claimdomain.ErrInvalidTransition
	}

	var claim *claimdomain.UPPFClaim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		claim, err = findClaim(tx, req.ClaimID)
		if err != nil {
			return err
		}

		if req.Target == claimdomain.StatusCancelled {
			if claimdomain.IsTerminal(claim.Status) {
				return claimdomain.ErrInvalidTransition
			}
		} else if !claimdomain.CanTransition(claim.Status, req.Target) {
			return claimdomain.ErrInvalidTransition
		}

		switch req.Target {
		case claimdomain.StatusReadyToSubmit:
			held, err := s.holdInDraft(ctx, tx, claim, req.Actor)
			if err != nil {
				return err
			}
			if held {
				return nil
			}
		case claimdomain.StatusSubmitted:
			at := s.clock.Now()
			claim.SubmittedAt = &at
		case claimdomain.StatusApproved:
			blocked, err := s.hasBlockingAnomalies(tx, claim.ID)
			if err != nil {
				return err
			}
			if blocked {
				return claimdomain.ErrUnresolvedAnomalies
			}
		case claimdomain.StatusRejected:
			if strings.TrimSpace(req.Reason) == "" {
				return claimdomain.ErrRejectionReasonRequired
			}
			claim.RejectionReason = strings.TrimSpace(req.Reason)
		}

		return s.applyTransition(ctx, tx, claim, req.Target, req.Actor)
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// AddAnomaly attaches an irregularity and rescores the claim.
func (s *Service) AddAnomaly(ctx context.Context, claimID snowflake.ID, input claimdomain.AnomalyInput) (*claimdomain.UPPFClaim, error) {
	if !claimdomain.ValidAnomalyType(input.Type) || !claimdomain.ValidSeverity(input.Severity) {
		return nil, claimdomain.ErrInvalidAnomaly
	}

	var claim *claimdomain.UPPFClaim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		claim, err = findClaim(tx, claimID)
		if err != nil {
			return err
		}

		anomaly := &claimdomain.ClaimAnomaly{
			ID:          s.genID.Generate(),
			ClaimID:     claimID,
			Type:        input.Type,
			Severity:    input.Severity,
			Description: input.Description,
			CreatedAt:   s.clock.Now(),
		}
		if err := tx.Create(anomaly).Error; err != nil {
			return err
		}

		if err := s.rescore(tx, claim); err != nil {
			return err
		}
		return s.appendAudit(tx, claimID, "anomaly.added", input.Actor, "", fmt.Sprintf("%s/%s", input.Type, input.Severity))
	})
	if err != nil {
		return nil, err
	}

	metrics.Default().IncAnomaly(string(input.Type), string(input.Severity))
	return claim, nil
}

// ResolveAnomaly marks the anomaly resolved and restores the scores it
// was costing.
func (s *Service) ResolveAnomaly(ctx context.Context, claimID, anomalyID snowflake.ID, actor string) (*claimdomain.UPPFClaim, error) {
	var claim *claimdomain.UPPFClaim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		claim, err = findClaim(tx, claimID)
		if err != nil {
			return err
		}

		var anomaly claimdomain.ClaimAnomaly
		if err := tx.Where("id = ? AND claim_id = ?", anomalyID, claimID).Limit(1).Find(&anomaly).Error; err != nil {
			return err
		}
		if anomaly.ID == 0 {
			return claimdomain.ErrAnomalyNotFound
		}
		if anomaly.Resolved {
			return nil
		}

		now := s.clock.Now()
		anomaly.Resolved = true
		anomaly.ResolvedBy = actor
		anomaly.ResolvedAt = &now
		if err := tx.Save(&anomaly).Error; err != nil {
			return err
		}

		if err := s.rescore(tx, claim); err != nil {
			return err
		}
		return s.appendAudit(tx, claimID, "anomaly.resolved", actor, fmt.Sprintf("%s/%s", anomaly.Type, anomaly.Severity), "resolved")
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *Service) Get(ctx context.Context, claimID snowflake.ID) (*claimdomain.UPPFClaim, error) {
	return findClaim(s.db.WithContext(ctx), claimID)
}

func (s *Service) ListClaims(ctx context.Context, req claimdomain.ListClaimsRequest) (claimdomain.ListClaimsResponse, error) {
	var cursor *claimCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return claimdomain.ListClaimsResponse{}, claimdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return claimdomain.ListClaimsResponse{}, claimdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil {
			return claimdomain.ListClaimsResponse{}, claimdomain.ErrInvalidPageToken
		}
		cursor = &claimCursor{id: id, createdAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	q := s.db.WithContext(ctx).Model(&claimdomain.UPPFClaim{})
	if req.WindowID != "" {
		q = q.Where("window_id = ?", req.WindowID)
	}
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	if cursor != nil {
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)",
			cursor.createdAt, cursor.createdAt, cursor.id)
	}

	var items []*claimdomain.UPPFClaim
	err := q.Order("created_at ASC, id ASC").
		Limit(int(pageSize) + 1).
		Find(&items).Error
	if err != nil {
		return claimdomain.ListClaimsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(claim *claimdomain.UPPFClaim) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        claim.ID.String(),
			CreatedAt: claim.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	claims := make([]claimdomain.UPPFClaim, 0, len(items))
	for _, item := range items {
		claims = append(claims, *item)
	}
	return claimdomain.ListClaimsResponse{Claims: claims, PageInfo: *pageInfo}, nil
}

type claimCursor struct {
	id        snowflake.ID
	createdAt time.Time
}

func (s *Service) Anomalies(ctx context.Context, claimID snowflake.ID) ([]claimdomain.ClaimAnomaly, error) {
	var anomalies []claimdomain.ClaimAnomaly
	err := s.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at ASC").
		Find(&anomalies).Error
	return anomalies, err
}

func (s *Service) AuditTrail(ctx context.Context, claimID snowflake.ID) ([]claimdomain.ClaimAuditEntry, error) {
	var entries []claimdomain.ClaimAuditEntry
	err := s.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// WindowSummary totals claim counts and amounts per status for one
// submission window.
func (s *Service) WindowSummary(ctx context.Context, windowID string) (*claimdomain.WindowSummary, error) {
	var claims []claimdomain.UPPFClaim
	err := s.db.WithContext(ctx).
		Where("window_id = ?", windowID).
		Find(&claims).Error
	if err != nil {
		return nil, err
	}

	summary := &claimdomain.WindowSummary{
		WindowID:        windowID,
		CountsByStatus:  map[claimdomain.ClaimStatus]int64{},
		AmountsByStatus: map[claimdomain.ClaimStatus]decimal.Decimal{},
	}
	for _, c := range claims {
		summary.TotalClaims++
		summary.CountsByStatus[c.Status]++
		summary.AmountsByStatus[c.Status] = summary.AmountsByStatus[c.Status].Add(c.TotalClaimAmount)
		summary.TotalClaimAmount = summary.TotalClaimAmount.Add(c.TotalClaimAmount)
		if c.Status == claimdomain.StatusSettled {
			summary.SettledAmount = summary.SettledAmount.Add(c.TotalClaimAmount)
		}
	}
	if summary.TotalClaims > 0 {
		settled := summary.CountsByStatus[claimdomain.StatusSettled]
		summary.SettlementRate = decimal.NewFromInt(settled).Div(decimal.NewFromInt(summary.TotalClaims))
	}
	return summary, nil
}

// AssignSettlement is called by the settlement processor inside its own
// transaction. The guarded update keeps two concurrent settlements from
// claiming the same row.
func (s *Service) AssignSettlement(ctx context.Context, tx *gorm.DB, claimID, settlementID snowflake.ID, actor string) (*claimdomain.UPPFClaim, error) {
	claim, err := findClaim(tx.WithContext(ctx), claimID)
	if err != nil {
		return nil, err
	}
	if claim.SettlementID != nil {
		return nil, fmt.Errorf("%w: claim %d", claimdomain.ErrAlreadySettled, claimID)
	}
	if claim.Status != claimdomain.StatusApproved {
		return nil, fmt.Errorf("%w: claim %d in %s", claimdomain.ErrClaimNotApproved, claimID, claim.Status)
	}

	now := s.clock.Now()
	res := tx.WithContext(ctx).Model(&claimdomain.UPPFClaim{}).
		Where("id = ? AND status = ? AND settlement_id IS NULL", claimID, claimdomain.StatusApproved).
		Updates(map[string]any{
			"status":        claimdomain.StatusSettled,
			"settlement_id": settlementID,
			"updated_at":    now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: claim %d", claimdomain.ErrAlreadySettled, claimID)
	}

	if err := s.appendAudit(tx, claimID, "status.changed", actor,
		string(claimdomain.StatusApproved), string(claimdomain.StatusSettled)); err != nil {
		return nil, err
	}
	if err := s.publisher.Enqueue(ctx, tx, eventdomain.EventClaimTransitioned,
		fmt.Sprintf("claim:%d:settled:%d", claimID, settlementID),
		map[string]any{
			"claim_id":      claimID.String(),
			"claim_number":  claim.ClaimNumber,
			"from":          string(claimdomain.StatusApproved),
			"to":            string(claimdomain.StatusSettled),
			"settlement_id": settlementID.String(),
		}); err != nil {
		return nil, err
	}

	metrics.Default().IncClaimTransition(string(claimdomain.StatusApproved), string(claimdomain.StatusSettled))

	claim.Status = claimdomain.StatusSettled
	claim.SettlementID = &settlementID
	claim.UpdatedAt = now
	return claim, nil
}

// holdInDraft checks the submission gates for draft->ready_to_submit:
// a matched or resolved reconciliation and a published price build-up
// for the claim's product and window. A failed gate keeps the claim in
// draft with a documentation anomaly instead of failing the call.
func (s *Service) holdInDraft(ctx context.Context, tx *gorm.DB, claim *claimdomain.UPPFClaim, actor string) (bool, error) {
	rec, err := s.recon.FindByConsignment(ctx, claim.ConsignmentID)
	if err != nil && !errors.Is(err, recdomain.ErrNotFound) {
		return false, err
	}

	detail := ""
	cleared := rec != nil && (rec.Status == recdomain.StatusMatched || rec.Status == recdomain.StatusResolved)
	if !cleared {
		detail = "no reconciliation on file"
		if rec != nil {
			detail = fmt.Sprintf("reconciliation status %s", rec.Status)
		}
	} else {
		published, err := s.pricing.HasBreakdown(ctx, string(claim.ProductType), claim.WindowID)
		if err != nil {
			return false, err
		}
		if !published {
			detail = fmt.Sprintf("no price build-up published for %s in %s", claim.ProductType, claim.WindowID)
		}
	}
	if detail == "" {
		return false, nil
	}

	anomaly := &claimdomain.ClaimAnomaly{
		ID:          s.genID.Generate(),
		ClaimID:     claim.ID,
		Type:        claimdomain.AnomalyDocumentationIssue,
		Severity:    claimdomain.SeverityMedium,
		Description: detail,
		CreatedAt:   s.clock.Now(),
	}
	if err := tx.Create(anomaly).Error; err != nil {
		return false, err
	}
	if err := s.rescore(tx, claim); err != nil {
		return false, err
	}
	if err := s.appendAudit(tx, claim.ID, "submission.held", actor, string(claimdomain.StatusDraft), detail); err != nil {
		return false, err
	}

	metrics.Default().IncAnomaly(string(claimdomain.AnomalyDocumentationIssue), string(claimdomain.SeverityMedium))
	s.log.Warn("claim held in draft",
		zap.String("claim_number", claim.ClaimNumber),
		zap.String("reason", detail),
	)
	return true, nil
}

func (s *Service) applyTransition(ctx context.Context, tx *gorm.DB, claim *claimdomain.UPPFClaim, target claimdomain.ClaimStatus, actor string) error {
	from := claim.Status
	claim.Status = target
	claim.UpdatedAt = s.clock.Now()
	if err := tx.Save(claim).Error; err != nil {
		return err
	}

	if err := s.appendAudit(tx, claim.ID, "status.changed", actor, string(from), string(target)); err != nil {
		return err
	}
	if err := s.publisher.Enqueue(ctx, tx, eventdomain.EventClaimTransitioned,
		fmt.Sprintf("claim:%d:%s:%s", claim.ID, from, target),
		map[string]any{
			"claim_id":     claim.ID.String(),
			"claim_number": claim.ClaimNumber,
			"from":         string(from),
			"to":           string(target),
		}); err != nil {
		return err
	}

	metrics.Default().IncClaimTransition(string(from), string(target))
	return nil
}

// rescore recomputes quality and risk from the unresolved anomalies.
func (s *Service) rescore(tx *gorm.DB, claim *claimdomain.UPPFClaim) error {
	var anomalies []claimdomain.ClaimAnomaly
	if err := tx.Where("claim_id = ? AND resolved = ?", claim.ID, false).Find(&anomalies).Error; err != nil {
		return err
	}

	var deduction, risk int64
	for _, a := range anomalies {
		deduction += claimdomain.QualityDeduction(a.Severity)
		risk += claimdomain.RiskWeight(a.Severity)
	}

	quality := hundred.Sub(decimal.NewFromInt(deduction))
	if quality.IsNegative() {
		quality = decimal.Zero
	}
	riskScore := decimal.NewFromInt(risk)
	if riskScore.GreaterThan(hundred) {
		riskScore = hundred
	}

	claim.QualityScore = quality
	claim.RiskScore = riskScore
	claim.UpdatedAt = s.clock.Now()
	return tx.Model(&claimdomain.UPPFClaim{}).
		Where("id = ?", claim.ID).
		Updates(map[string]any{
			"quality_score": quality,
			"risk_score":    riskScore,
			"updated_at":    claim.UpdatedAt,
		}).Error
}

func (s *Service) hasBlockingAnomalies(tx *gorm.DB, claimID snowflake.ID) (bool, error) {
	var count int64
	err := tx.Model(&claimdomain.ClaimAnomaly{}).
		Where("claim_id = ? AND resolved = ? AND severity IN ?", claimID, false,
			[]claimdomain.Severity{claimdomain.SeverityHigh, claimdomain.SeverityCritical}).
		Count(&count).Error
	return count > 0, err
}

// nextClaimNumber assigns UPPF-<window>-NNNN, sequenced per window.
func (s *Service) nextClaimNumber(tx *gorm.DB, windowID string) (string, error) {
	var count int64
	if err := tx.Model(&claimdomain.UPPFClaim{}).
		Where("window_id = ?", windowID).
		Count(&count).Error; err != nil {
		return "", err
	}
	compact := strings.ReplaceAll(windowID, "-", "")
	return fmt.Sprintf("UPPF-%s-%04d", compact, count+1), nil
}

func (s *Service) appendAudit(tx *gorm.DB, claimID snowflake.ID, action, actor, oldValue, newValue string) error {
	entry := &claimdomain.ClaimAuditEntry{
		ID:        s.genID.Generate(),
		ClaimID:   claimID,
		Action:    action,
		Actor:     actor,
		OldValue:  oldValue,
		NewValue:  newValue,
		CreatedAt: s.clock.Now(),
	}
	return tx.Create(entry).Error
}

func findClaim(tx *gorm.DB, claimID snowflake.ID) (*claimdomain.UPPFClaim, error) {
	var claim claimdomain.UPPFClaim
	if err := tx.Where("id = ?", claimID).Limit(1).Find(&claim).Error; err != nil {
		return nil, err
	}
	if claim.ID == 0 {
		return nil, claimdomain.ErrClaimNotFound
	}
	return &claim, nil
}
