package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/petroworks/pumpline/internal/clock"
	"github.com/petroworks/pumpline/internal/config"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, dsn string) (recdomain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&recdomain.ThreeWayReconciliation{}))

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC))
	pricingCfg := config.StaticPricingHolder(config.PricingConfig{
		BaseTolerance: decimal.RequireFromString("0.01"),
	})
	svc := New(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, Clock: fake, Pricing: pricingCfg})
	return svc, fake
}

func TestReconcile_WithinWidenedTolerance(t *testing.T) {
	svc, _ := newTestService(t, "file:reconciliation_matched?mode=memory&cache=shared")

	rec, err := svc.Reconcile(context.Background(), recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0101",
		DepotVolume:       decimal.RequireFromString("10000"),
		TransporterVolume: decimal.RequireFromString("9950"),
		StationVolume:     decimal.RequireFromString("9900"),
		RouteComplexity:   decimal.RequireFromString("1.2"),
		ProductVolatility: decimal.RequireFromString("1.0"),
	})
	assert.NoError(t, err)
	assert.Equal(t, recdomain.StatusMatched, rec.Status)
	assert.True(t, rec.ToleranceApplied.Equal(decimal.RequireFromString("0.012")))
	assert.True(t, rec.VarianceDepotTransporter.Equal(decimal.RequireFromString("0.005")))
	assert.True(t, rec.VarianceDepotStation.Equal(decimal.RequireFromString("0.01")))
}

func TestReconcile_VarianceBeyondTolerance(t *testing.T) {
	svc, _ := newTestService(t, "file:reconciliation_variance?mode=memory&cache=shared")

	rec, err := svc.Reconcile(context.Background(), recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0102",
		DepotVolume:       decimal.RequireFromString("10000"),
		TransporterVolume: decimal.RequireFromString("9950"),
		StationVolume:     decimal.RequireFromString("9700"),
		RouteComplexity:   decimal.RequireFromString("1.2"),
	})
	assert.NoError(t, err)
	assert.Equal(t, recdomain.StatusVarianceDetected, rec.Status)
	assert.True(t, rec.VarianceDepotStation.Equal(decimal.RequireFromString("0.03")))
	assert.True(t, rec.MaxVariance().Equal(decimal.RequireFromString("0.03")))
	assert.True(t, rec.RiskScore.IsPositive())
}

func TestReconcile_IdempotentAndSupersedable(t *testing.T) {
	svc, _ := newTestService(t, "file:reconciliation_idempotent?mode=memory&cache=shared")
	ctx := context.Background()

	req := recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0103",
		DepotVolume:       decimal.RequireFromString("18000"),
		TransporterVolume: decimal.RequireFromString("18000"),
		StationVolume:     decimal.RequireFromString("17995"),
	}

	first, err := svc.Reconcile(ctx, req)
	assert.NoError(t, err)

	again, err := svc.Reconcile(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Status, again.Status)
	assert.True(t, first.MaxVariance().Equal(again.MaxVariance()))

	// New station figure replaces the stored row, no second row appears.
	req.StationVolume = decimal.RequireFromString("17000")
	superseded, err := svc.Reconcile(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, superseded.ID)
	assert.Equal(t, recdomain.StatusVarianceDetected, superseded.Status)

	found, err := svc.FindByConsignment(ctx, "CNS-2026-0103")
	assert.NoError(t, err)
	assert.Equal(t, recdomain.StatusVarianceDetected, found.Status)
}

func TestDisputeAndResolve_Lifecycle(t *testing.T) {
	svc, _ := newTestService(t, "file:reconciliation_lifecycle?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0104",
		DepotVolume:       decimal.RequireFromString("10000"),
		TransporterVolume: decimal.RequireFromString("9500"),
		StationVolume:     decimal.RequireFromString("9400"),
	})
	assert.NoError(t, err)

	disputed, err := svc.Dispute(ctx, "CNS-2026-0104", "transporter contests depot meter reading")
	assert.NoError(t, err)
	assert.Equal(t, recdomain.StatusDisputed, disputed.Status)

	resolved, err := svc.Resolve(ctx, "CNS-2026-0104", "depot meter recalibrated, shortfall confirmed")
	assert.NoError(t, err)
	assert.Equal(t, recdomain.StatusResolved, resolved.Status)

	_, err = svc.Dispute(ctx, "CNS-2026-0104", "too late")
	assert.ErrorIs(t, err, recdomain.ErrReconciliationFinal)

	_, err = svc.Reconcile(ctx, recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0104",
		DepotVolume:       decimal.RequireFromString("10000"),
		TransporterVolume: decimal.RequireFromString("10000"),
		StationVolume:     decimal.RequireFromString("10000"),
	})
	assert.ErrorIs(t, err, recdomain.ErrReconciliationFinal)
}

func TestAddNote_AppendsAfterResolve(t *testing.T) {
	svc, _ := newTestService(t, "file:reconciliation_addnote?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0108",
		DepotVolume:       decimal.RequireFromString("10000"),
		TransporterVolume: decimal.RequireFromString("9500"),
		StationVolume:     decimal.RequireFromString("9400"),
	})
	assert.NoError(t, err)

	_, err = svc.Dispute(ctx, "CNS-2026-0108", "transporter contests depot meter reading")
	assert.NoError(t, err)

	_, err = svc.Resolve(ctx, "CNS-2026-0108", "depot meter recalibrated")
	assert.NoError(t, err)

	noted, err := svc.AddNote(ctx, "CNS-2026-0108", "insurer copied on the resolution")
	assert.NoError(t, err)
	assert.Equal(t, recdomain.StatusResolved, noted.Status)
	assert.Contains(t, noted.Note, "depot meter recalibrated")
	assert.Contains(t, noted.Note, "insurer copied on the resolution")

	_, err = svc.Dispute(ctx, "CNS-2026-0108", "too late")
	assert.ErrorIs(t, err, recdomain.ErrReconciliationFinal)

	_, err = svc.AddNote(ctx, "CNS-2026-0108", "")
	assert.ErrorIs(t, err, recdomain.ErrInvalidNote)

	_, err = svc.AddNote(ctx, "CNS-9999-0000", "nothing here")
	assert.ErrorIs(t, err, recdomain.ErrNotFound)
}

func TestDispute_RequiresDetectedVariance(t *testing.T) {
	svc, _ := newTestService(t, "file:reconciliation_dispute_guard?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0105",
		DepotVolume:       decimal.RequireFromString("10000"),
		TransporterVolume: decimal.RequireFromString("10000"),
		StationVolume:     decimal.RequireFromString("9990"),
	})
	assert.NoError(t, err)

	_, err = svc.Dispute(ctx, "CNS-2026-0105", "nothing to contest")
	assert.ErrorIs(t, err, recdomain.ErrInvalidStatusChange)
}

func TestReconcile_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, "file:reconciliation_badinput?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, recdomain.ReconcileRequest{
		DepotVolume:       decimal.RequireFromString("10000"),
		TransporterVolume: decimal.RequireFromString("10000"),
		StationVolume:     decimal.RequireFromString("10000"),
	})
	assert.ErrorIs(t, err, recdomain.ErrInvalidConsignment)

	_, err = svc.Reconcile(ctx, recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0106",
		DepotVolume:       decimal.Zero,
		TransporterVolume: decimal.RequireFromString("10000"),
		StationVolume:     decimal.RequireFromString("10000"),
	})
	assert.ErrorIs(t, err, recdomain.ErrInvalidVolume)

	_, err = svc.Reconcile(ctx, recdomain.ReconcileRequest{
		ConsignmentID:     "CNS-2026-0107",
		DepotVolume:       decimal.RequireFromString("10000"),
		TransporterVolume: decimal.RequireFromString("10000"),
		StationVolume:     decimal.RequireFromString("10000"),
		RouteComplexity:   decimal.RequireFromString("0.8"),
	})
	assert.ErrorIs(t, err, recdomain.ErrInvalidFactor)
}
