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
	"github.com/petroworks/pumpline/internal/config"
	"github.com/petroworks/pumpline/internal/eventbus"
	eventdomain "github.com/petroworks/pumpline/internal/eventbus/domain"
	"github.com/petroworks/pumpline/internal/observability/metrics"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	latePenaltyPerDay  = decimal.RequireFromString("0.005")
	latePenaltyCap     = decimal.RequireFromString("0.05")
	qualityPenaltyStep = decimal.RequireFromString("0.001")
	qualityBonusRate   = decimal.RequireFromString("0.005")
	reconBonusRate     = decimal.RequireFromString("0.003")

	qualityPenaltyFloor = decimal.NewFromInt(80)
	qualityBonusBar     = decimal.NewFromInt(95)
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Pricing   *config.PricingConfigHolder
	Claims    claimdomain.Service
	Recon     recdomain.Service
	Dealers   setdomain.DealerDirectory
	Ledger    setdomain.AccountingLedger
	Publisher *eventbus.Publisher
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	pricing   *config.PricingConfigHolder
	claims    claimdomain.Service
	recon     recdomain.Service
	dealers   setdomain.DealerDirectory
	ledger    setdomain.AccountingLedger
	publisher *eventbus.Publisher
}

func New(p ServiceParam) setdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("settlement.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		pricing:   p.Pricing,
		claims:    p.Claims,
		recon:     p.Recon,
		dealers:   p.Dealers,
		ledger:    p.Ledger,
		publisher: p.Publisher,
	}
}

// Settle pays out a batch of approved claims in one transaction. Either
// every claim moves to settled under the new settlement id or none do.
func (s *Service) Settle(ctx context.Context, req setdomain.SettleRequest) (*setdomain.UPPFSettlement, error) {
	windowID := strings.TrimSpace(req.WindowID)
	deadline, err := submissionDeadline(windowID, s.pricing.Get().SubmissionDeadlineDays)
	if err != nil {
		return nil, setdomain.ErrInvalidWindow
	}
	if len(req.ClaimIDs) == 0 {
		return nil, setdomain.ErrNoClaims
	}

	settlement := &setdomain.UPPFSettlement{
		ID:       s.genID.Generate(),
		WindowID: windowID,
		Status:   setdomain.StatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settlement.Status = setdomain.StatusProcessing
		breakdowns := make([]setdomain.ClaimBreakdown, 0, len(req.ClaimIDs))
		for _, claimID := range req.ClaimIDs {
			claim, err := s.claims.AssignSettlement(ctx, tx, claimID, settlement.ID, req.Actor)
			if err != nil {
				return err
			}

			if err := s.validatePayee(ctx, claim.DealerID); err != nil {
				return err
			}

			line := s.breakdownFor(ctx, claim, deadline)
			breakdowns = append(breakdowns, line)

			settlement.ClaimCount++
			settlement.TotalClaimAmount = settlement.TotalClaimAmount.Add(line.OriginalAmount)
			settlement.TotalSettledAmount = settlement.TotalSettledAmount.Add(line.NetAmount)
			settlement.Penalties = settlement.Penalties.Add(line.Penalty)
			settlement.Bonuses = settlement.Bonuses.Add(line.Bonus)
		}

		settlement.NetAmount = settlement.TotalClaimAmount.Sub(settlement.Penalties).Add(settlement.Bonuses)
		details, err := json.Marshal(breakdowns)
		if err != nil {
			return err
		}
		settlement.Details = details

		now := s.clock.Now()
		settlement.Status = setdomain.StatusCompleted
		settlement.SettledAt = now
		settlement.CreatedAt = now
		settlement.UpdatedAt = now
		if err := tx.Create(settlement).Error; err != nil {
			return err
		}

		return s.publisher.Enqueue(ctx, tx, eventdomain.EventSettlementCompleted,
			fmt.Sprintf("settlement:%d", settlement.ID),
			map[string]any{
				"settlement_id": settlement.ID.String(),
				"window_id":     windowID,
				"claim_count":   settlement.ClaimCount,
				"net_amount":    settlement.NetAmount.String(),
				"claims":        breakdowns,
			})
	})
	if err != nil {
		metrics.Default().IncSettlement("error")
		s.recordFailure(ctx, settlement, err)
		if isSettlementSentinel(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", setdomain.ErrSettlementFailed, err)
	}

	metrics.Default().IncSettlement("ok")
	s.log.Info("window settled",
		zap.String("window_id", windowID),
		zap.Int("claim_count", settlement.ClaimCount),
		zap.String("net_amount", settlement.NetAmount.String()),
	)

	s.postToLedger(ctx, settlement)
	return settlement, nil
}

func (s *Service) Get(ctx context.Context, settlementID snowflake.ID) (*setdomain.UPPFSettlement, error) {
	var settlement setdomain.UPPFSettlement
	err := s.db.WithContext(ctx).Where("id = ?", settlementID).Limit(1).Find(&settlement).Error
	if err != nil {
		return nil, err
	}
	if settlement.ID == 0 {
		return nil, setdomain.ErrSettlementMissing
	}
	return &settlement, nil
}

func (s *Service) ListByWindow(ctx context.Context, windowID string) ([]setdomain.UPPFSettlement, error) {
	var settlements []setdomain.UPPFSettlement
	err := s.db.WithContext(ctx).
		Where("window_id = ?", windowID).
		Order("settled_at ASC").
		Find(&settlements).Error
	return settlements, err
}

// breakdownFor prices one claim's penalties and bonuses.
func (s *Service) breakdownFor(ctx context.Context, claim *claimdomain.UPPFClaim, deadline time.Time) setdomain.ClaimBreakdown {
	amount := claim.TotalClaimAmount
	penalty := decimal.Zero
	bonus := decimal.Zero

	if claim.SubmittedAt != nil && claim.SubmittedAt.After(deadline) {
		daysLate := int64(claim.SubmittedAt.Sub(deadline).Hours() / 24)
		rate := latePenaltyPerDay.Mul(decimal.NewFromInt(daysLate))
		if rate.GreaterThan(latePenaltyCap) {
			rate = latePenaltyCap
		}
		penalty = penalty.Add(amount.Mul(rate))
	}

	if claim.QualityScore.LessThan(qualityPenaltyFloor) {
		shortfall := qualityPenaltyFloor.Sub(claim.QualityScore)
		penalty = penalty.Add(amount.Mul(qualityPenaltyStep).Mul(shortfall))
	}

	if claim.QualityScore.GreaterThanOrEqual(qualityBonusBar) {
		bonus = bonus.Add(amount.Mul(qualityBonusRate))
	}

	rec, err := s.recon.FindByConsignment(ctx, claim.ConsignmentID)
	if err == nil && rec.Status == recdomain.StatusMatched {
		bonus = bonus.Add(amount.Mul(reconBonusRate))
	}

	net := amount.Sub(penalty).Add(bonus)
	return setdomain.ClaimBreakdown{
		ClaimID:        claim.ID.String(),
		ClaimNumber:    claim.ClaimNumber,
		DealerID:       claim.DealerID,
		OriginalAmount: amount,
		Penalty:        penalty,
		Bonus:          bonus,
		NetAmount:      net,
		Variance:       net.Sub(amount),
	}
}

func (s *Service) validatePayee(ctx context.Context, dealerID string) error {
	if dealerID == "" {
		return nil
	}
	profile, err := s.dealers.GetDealerCreditProfile(ctx, dealerID)
	if err != nil {
		return err
	}
	if profile != nil && profile.Blocked {
		return fmt.Errorf("%w: dealer %s", setdomain.ErrPayeeBlocked, dealerID)
	}
	return nil
}

// recordFailure keeps a failed settlement row for the audit trail. The
// claim transaction already rolled back, so only the header persists.
func (s *Service) recordFailure(ctx context.Context, settlement *setdomain.UPPFSettlement, cause error) {
	now := s.clock.Now()
	details, _ := json.Marshal(map[string]string{"error": cause.Error()})
	failed := &setdomain.UPPFSettlement{
		ID:        settlement.ID,
		WindowID:  settlement.WindowID,
		Status:    setdomain.StatusFailed,
		Details:   details,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(failed).Error; err != nil {
		s.log.Warn("failed settlement not recorded",
			zap.String("settlement_id", settlement.ID.String()),
			zap.Error(err),
		)
	}
	settlement.Status = setdomain.StatusFailed
}

// postToLedger posts the settlement to accounting. A failure is logged
// for manual reconciliation and never unwinds the settlement.
func (s *Service) postToLedger(ctx context.Context, settlement *setdomain.UPPFSettlement) {
	ref, err := s.ledger.PostJournalEntry(ctx, setdomain.JournalEntry{
		SettlementID: settlement.ID.String(),
		WindowID:     settlement.WindowID,
		Description:  fmt.Sprintf("UPPF settlement %s window %s", settlement.ID, settlement.WindowID),
		Amount:       settlement.NetAmount,
		PostedAt:     settlement.SettledAt,
	})
	if err != nil {
		s.log.Error("journal posting failed, needs manual reconciliation",
			zap.String("settlement_id", settlement.ID.String()),
			zap.Error(err),
		)
		return
	}

	settlement.JournalRef = ref
	if err := s.db.WithContext(ctx).Model(&setdomain.UPPFSettlement{}).
		Where("id = ?", settlement.ID).
		Updates(map[string]any{"journal_ref": ref, "updated_at": s.clock.Now()}).Error; err != nil {
		s.log.Error("journal ref not recorded", zap.String("settlement_id", settlement.ID.String()), zap.Error(err))
	}
}

// submissionDeadline is the end of the window month plus the configured
// grace period. Windows are named YYYY-MM.
func submissionDeadline(windowID string, graceDays int) (time.Time, error) {
	start, err := time.Parse("2006-01", windowID)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 1, graceDays), nil
}

func isSettlementSentinel(err error) bool {
	return errors.Is(err, claimdomain.ErrClaimNotApproved) ||
		errors.Is(err, claimdomain.ErrAlreadySettled) ||
		errors.Is(err, claimdomain.ErrClaimNotFound) ||
		errors.Is(err, setdomain.ErrPayeeBlocked)
}
