package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	claimservice "github.com/petroworks/pumpline/internal/claims/service"
	"github.com/petroworks/pumpline/internal/clock"
	"github.com/petroworks/pumpline/internal/config"
	eqdomain "github.com/petroworks/pumpline/internal/equalisation/domain"
	eqservice "github.com/petroworks/pumpline/internal/equalisation/service"
	"github.com/petroworks/pumpline/internal/eventbus"
	eventdomain "github.com/petroworks/pumpline/internal/eventbus/domain"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	levyservice "github.com/petroworks/pumpline/internal/levy/service"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	rateservice "github.com/petroworks/pumpline/internal/ratecomponent/service"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	recservice "github.com/petroworks/pumpline/internal/reconciliation/service"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeTransport struct {
	mu       sync.Mutex
	messages [][]byte
}

func (t *fakeTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, payload)
	return nil
}

type deliveryRegistryStub struct {
	records map[string]levydomain.DeliveryRecord
}

func (d *deliveryRegistryStub) GetDeliveryByID(ctx context.Context, consignmentID string) (*levydomain.DeliveryRecord, error) {
	if rec, ok := d.records[consignmentID]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (d *deliveryRegistryStub) GetDeliveriesInWindow(ctx context.Context, windowID string) ([]levydomain.DeliveryRecord, error) {
	out := make([]levydomain.DeliveryRecord, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, rec)
	}
	return out, nil
}

type pricingSnapshotsStub struct{}

func (pricingSnapshotsStub) HasBreakdown(ctx context.Context, productID, windowID string) (bool, error) {
	return true, nil
}

type dealerDirectoryStub struct {
	blocked map[string]bool
}

func (d *dealerDirectoryStub) GetDealerCreditProfile(ctx context.Context, dealerID string) (*setdomain.CreditProfile, error) {
	return &setdomain.CreditProfile{
		DealerID:       dealerID,
		PayableAccount: "GL-4410",
		Blocked:        d.blocked[dealerID],
	}, nil
}

type ledgerStub struct {
	fail    bool
	entries []setdomain.JournalEntry
}

func (l *ledgerStub) PostJournalEntry(ctx context.Context, entry setdomain.JournalEntry) (string, error) {
	if l.fail {
		return "", errors.New("ledger unavailable")
	}
	l.entries = append(l.entries, entry)
	return "JRN-0001", nil
}

type fixture struct {
	db         *gorm.DB
	svc        setdomain.Service
	claims     claimdomain.Service
	recon      recdomain.Service
	deliveries *deliveryRegistryStub
	dealers    *dealerDirectoryStub
	ledger     *ledgerStub
	fake       *clock.FakeClock
}

func newFixture(t *testing.T, dsn string) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&ratedomain.RateComponent{},
		&eqdomain.EqualisationPoint{},
		&recdomain.ThreeWayReconciliation{},
		&claimdomain.UPPFClaim{},
		&claimdomain.ClaimAnomaly{},
		&claimdomain.ClaimAuditEntry{},
		&setdomain.UPPFSettlement{},
		&eventdomain.OutboxEvent{},
	))

	node, err := snowflake.NewNode(2)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC))

	pricingCfg := config.StaticPricingHolder(config.PricingConfig{
		DefaultTariff:          decimal.RequireFromString("0.02"),
		BaseTolerance:          decimal.RequireFromString("0.01"),
		MaxClaimFraction:       decimal.RequireFromString("0.35"),
		SubmissionDeadlineDays: 14,
	})

	rateSvc := rateservice.New(rateservice.ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, Clock: fake})
	eqSvc := eqservice.New(eqservice.ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, Clock: fake})
	levySvc := levyservice.New(levyservice.ServiceParam{Log: zap.NewNop(), Pricing: pricingCfg, RateSvc: rateSvc})
	reconSvc := recservice.New(recservice.ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, Clock: fake, Pricing: pricingCfg})

	publisher := eventbus.NewPublisher(eventbus.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Transport: &fakeTransport{},
		Channel:   "test.events",
	})

	deliveries := &deliveryRegistryStub{records: map[string]levydomain.DeliveryRecord{}}

	_, err = eqSvc.Create(context.Background(), eqdomain.CreateRequest{
		RouteID:       "RT-TEMA-HO",
		DepotID:       "DEP-TEMA",
		StationID:     "STN-HO-03",
		KmThreshold:   decimal.RequireFromString("60"),
		EffectiveFrom: fake.Now().Add(-60 * 24 * time.Hour),
	})
	assert.NoError(t, err)

	claimSvc := claimservice.New(claimservice.ServiceParam{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Deliveries:   deliveries,
		Equalisation: eqSvc,
		Levy:         levySvc,
		Recon:        reconSvc,
		Pricing:      &pricingSnapshotsStub{},
		Publisher:    publisher,
	})

	dealers := &dealerDirectoryStub{blocked: map[string]bool{}}
	ledger := &ledgerStub{}

	svc := New(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Pricing:   pricingCfg,
		Claims:    claimSvc,
		Recon:     reconSvc,
		Dealers:   dealers,
		Ledger:    ledger,
		Publisher: publisher,
	})

	return &fixture{
		db:         db,
		svc:        svc,
		claims:     claimSvc,
		recon:      reconSvc,
		deliveries: deliveries,
		dealers:    dealers,
		ledger:     ledger,
		fake:       fake,
	}
}

// approvedClaim creates and approves a 4000 GHS claim. When matched is
// false the reconciliation ends resolved so the submission gate still
// passes without the matched-reconciliation bonus.
func (f *fixture) approvedClaim(t *testing.T, consignmentID, windowID, dealerID string, matched bool) *claimdomain.UPPFClaim {
	t.Helper()
	ctx := context.Background()

	f.deliveries.records[consignmentID] = levydomain.DeliveryRecord{
		ConsignmentID: consignmentID,
		RouteID:       "RT-TEMA-HO",
		ProductType:   levydomain.ProductPMS,
		VolumeLitres:  decimal.RequireFromString("5000"),
		KmActual:      decimal.RequireFromString("100"),
		KmPlanned:     decimal.RequireFromString("100"),
		UnitValue:     decimal.RequireFromString("12.50"),
		DeliveredAt:   f.fake.Now().Add(-72 * time.Hour),
	}

	_, err := f.recon.Reconcile(ctx, recdomain.ReconcileRequest{
		ConsignmentID:     consignmentID,
		DepotVolume:       decimal.RequireFromString("5000"),
		TransporterVolume: decimal.RequireFromString("5000"),
		StationVolume:     decimal.RequireFromString("5000"),
	})
	assert.NoError(t, err)
	if !matched {
		_, err = f.recon.Resolve(ctx, consignmentID, "closed after review")
		assert.NoError(t, err)
	}

	claim, err := f.claims.CreateClaim(ctx, claimdomain.CreateClaimRequest{
		ConsignmentID: consignmentID,
		WindowID:      windowID,
		DealerID:      dealerID,
		Actor:         "ops@petroworks",
	})
	assert.NoError(t, err)

	for _, target := range []claimdomain.ClaimStatus{
		claimdomain.StatusReadyToSubmit,
		claimdomain.StatusSubmitted,
		claimdomain.StatusUnderReview,
		claimdomain.StatusApproved,
	} {
		claim, err = f.claims.Transition(ctx, claimdomain.TransitionRequest{
			ClaimID: claim.ID,
			Target:  target,
			Actor:   "ops@petroworks",
		})
		assert.NoError(t, err)
	}
	return claim
}

func TestSettle_NetIsTotalMinusPenaltiesPlusBonuses(t *testing.T) {
	f := newFixture(t, "file:settlement_net?mode=memory&cache=shared")
	ctx := context.Background()

	a := f.approvedClaim(t, "CNS-2026-3001", "2026-03", "DLR-001", true)
	b := f.approvedClaim(t, "CNS-2026-3002", "2026-03", "DLR-002", true)

	settlement, err := f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{a.ID, b.ID},
		Actor:    "finance@petroworks",
	})
	assert.NoError(t, err)
	assert.Equal(t, setdomain.StatusCompleted, settlement.Status)
	assert.Equal(t, 2, settlement.ClaimCount)
	assert.True(t, settlement.TotalClaimAmount.Equal(decimal.RequireFromString("8000")))
	assert.True(t, settlement.Penalties.IsZero())
	// Quality 100 plus matched reconciliation: 0.8% bonus per claim.
	assert.True(t, settlement.Bonuses.Equal(decimal.RequireFromString("64")))
	assert.True(t, settlement.NetAmount.Equal(decimal.RequireFromString("8064")))
	assert.True(t, settlement.TotalSettledAmount.Equal(decimal.RequireFromString("8064")))

	for _, id := range []snowflake.ID{a.ID, b.ID} {
		settled, err := f.claims.Get(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, claimdomain.StatusSettled, settled.Status)
		assert.NotNil(t, settled.SettlementID)
		assert.Equal(t, settlement.ID, *settled.SettlementID)
	}

	var events int64
	assert.NoError(t, f.db.Model(&eventdomain.OutboxEvent{}).
		Where("event_type = ?", eventdomain.EventSettlementCompleted).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)

	assert.Len(t, f.ledger.entries, 1)
	assert.Equal(t, "JRN-0001", settlement.JournalRef)
}

func TestSettle_LateSubmissionPenalty(t *testing.T) {
	f := newFixture(t, "file:settlement_late?mode=memory&cache=shared")
	ctx := context.Background()

	// Window 2026-03 closes 2026-04-01, deadline 2026-04-15. Submitting
	// on 2026-04-23 12:00 is 8 full days late.
	f.fake.Advance(13*24*time.Hour + 3*time.Hour)
	claim := f.approvedClaim(t, "CNS-2026-3003", "2026-03", "DLR-003", false)

	settlement, err := f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{claim.ID},
	})
	assert.NoError(t, err)
	// 8 days at 0.5% on 4000.
	assert.True(t, settlement.Penalties.Equal(decimal.RequireFromString("160")))
	assert.True(t, settlement.NetAmount.Equal(decimal.RequireFromString("3860")))
}

func TestSettle_LatePenaltyCapped(t *testing.T) {
	f := newFixture(t, "file:settlement_late_cap?mode=memory&cache=shared")
	ctx := context.Background()

	// 40 days past the deadline, capped at 5%.
	f.fake.Advance(45 * 24 * time.Hour)
	claim := f.approvedClaim(t, "CNS-2026-3004", "2026-03", "DLR-004", false)

	settlement, err := f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{claim.ID},
	})
	assert.NoError(t, err)
	assert.True(t, settlement.Penalties.Equal(decimal.RequireFromString("200")))
	assert.True(t, settlement.NetAmount.Equal(decimal.RequireFromString("3820")))
}

func TestSettle_QualityPenalty(t *testing.T) {
	f := newFixture(t, "file:settlement_quality?mode=memory&cache=shared")
	ctx := context.Background()

	claim := f.approvedClaim(t, "CNS-2026-3005", "2026-03", "DLR-005", false)

	// Five unresolved medium anomalies take quality to 75, five points
	// under the penalty floor.
	for i := 0; i < 5; i++ {
		_, err := f.claims.AddAnomaly(ctx, claim.ID, claimdomain.AnomalyInput{
			Type:        claimdomain.AnomalyTimeAnomaly,
			Severity:    claimdomain.SeverityMedium,
			Description: "delivery outside depot dispatch window",
			Actor:       "fraud-screen",
		})
		assert.NoError(t, err)
	}

	settlement, err := f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{claim.ID},
	})
	assert.NoError(t, err)
	// 5 points at 0.1% on 4000.
	assert.True(t, settlement.Penalties.Equal(decimal.RequireFromString("20")))
	assert.True(t, settlement.Bonuses.IsZero())
	assert.True(t, settlement.NetAmount.Equal(decimal.RequireFromString("3980")))
}

func TestSettle_AtomicOnUnapprovedClaim(t *testing.T) {
	f := newFixture(t, "file:settlement_atomic?mode=memory&cache=shared")
	ctx := context.Background()

	approved := f.approvedClaim(t, "CNS-2026-3006", "2026-03", "DLR-006", false)

	f.deliveries.records["CNS-2026-3007"] = levydomain.DeliveryRecord{
		ConsignmentID: "CNS-2026-3007",
		RouteID:       "RT-TEMA-HO",
		ProductType:   levydomain.ProductPMS,
		VolumeLitres:  decimal.RequireFromString("5000"),
		KmActual:      decimal.RequireFromString("100"),
		KmPlanned:     decimal.RequireFromString("100"),
		UnitValue:     decimal.RequireFromString("12.50"),
		DeliveredAt:   f.fake.Now().Add(-72 * time.Hour),
	}
	draft, err := f.claims.CreateClaim(ctx, claimdomain.CreateClaimRequest{
		ConsignmentID: "CNS-2026-3007",
		WindowID:      "2026-03",
	})
	assert.NoError(t, err)

	_, err = f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{approved.ID, draft.ID},
	})
	assert.ErrorIs(t, err, claimdomain.ErrClaimNotApproved)

	// All or nothing: the approved claim is untouched.
	unchanged, err := f.claims.Get(ctx, approved.ID)
	assert.NoError(t, err)
	assert.Equal(t, claimdomain.StatusApproved, unchanged.Status)
	assert.Nil(t, unchanged.SettlementID)

	// No payout happened; the failed run keeps its header for audit.
	var completed int64
	assert.NoError(t, f.db.Model(&setdomain.UPPFSettlement{}).
		Where("status = ?", setdomain.StatusCompleted).
		Count(&completed).Error)
	assert.Zero(t, completed)

	var failed []setdomain.UPPFSettlement
	assert.NoError(t, f.db.Where("status = ?", setdomain.StatusFailed).Find(&failed).Error)
	assert.Len(t, failed, 1)
	assert.Equal(t, "2026-03", failed[0].WindowID)
	assert.Zero(t, failed[0].ClaimCount)
}

func TestSettle_RejectsSecondSettlement(t *testing.T) {
	f := newFixture(t, "file:settlement_twice?mode=memory&cache=shared")
	ctx := context.Background()

	claim := f.approvedClaim(t, "CNS-2026-3008", "2026-03", "DLR-008", false)

	_, err := f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{claim.ID},
	})
	assert.NoError(t, err)

	_, err = f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{claim.ID},
	})
	assert.ErrorIs(t, err, claimdomain.ErrAlreadySettled)
}

func TestSettle_BlockedPayee(t *testing.T) {
	f := newFixture(t, "file:settlement_blocked?mode=memory&cache=shared")
	ctx := context.Background()

	claim := f.approvedClaim(t, "CNS-2026-3009", "2026-03", "DLR-BAD", false)
	f.dealers.blocked["DLR-BAD"] = true

	_, err := f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{claim.ID},
	})
	assert.ErrorIs(t, err, setdomain.ErrPayeeBlocked)

	unchanged, err := f.claims.Get(ctx, claim.ID)
	assert.NoError(t, err)
	assert.Equal(t, claimdomain.StatusApproved, unchanged.Status)
}

func TestSettle_LedgerFailureDoesNotUnwind(t *testing.T) {
	f := newFixture(t, "file:settlement_ledger?mode=memory&cache=shared")
	ctx := context.Background()

	claim := f.approvedClaim(t, "CNS-2026-3010", "2026-03", "DLR-010", false)
	f.ledger.fail = true

	settlement, err := f.svc.Settle(ctx, setdomain.SettleRequest{
		WindowID: "2026-03",
		ClaimIDs: []snowflake.ID{claim.ID},
	})
	assert.NoError(t, err)
	assert.Empty(t, settlement.JournalRef)

	settled, err := f.claims.Get(ctx, claim.ID)
	assert.NoError(t, err)
	assert.Equal(t, claimdomain.StatusSettled, settled.Status)
}

func TestSettle_InputValidation(t *testing.T) {
	f := newFixture(t, "file:settlement_input?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := f.svc.Settle(ctx, setdomain.SettleRequest{WindowID: "March 2026", ClaimIDs: []snowflake.ID{1}})
	assert.ErrorIs(t, err, setdomain.ErrInvalidWindow)

	_, err = f.svc.Settle(ctx, setdomain.SettleRequest{WindowID: "2026-03"})
	assert.ErrorIs(t, err, setdomain.ErrNoClaims)
}
