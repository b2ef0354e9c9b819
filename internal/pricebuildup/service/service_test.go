package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/petroworks/pumpline/internal/clock"
	"github.com/petroworks/pumpline/internal/config"
	"github.com/petroworks/pumpline/internal/eventbus"
	eventdomain "github.com/petroworks/pumpline/internal/eventbus/domain"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	rateservice "github.com/petroworks/pumpline/internal/ratecomponent/service"
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

type stationDirectoryStub struct {
	stations []pbdomain.Station
}

func (s *stationDirectoryStub) GetActiveStations(ctx context.Context) ([]pbdomain.Station, error) {
	return s.stations, nil
}

func (s *stationDirectoryStub) GetStationByID(ctx context.Context, id string) (*pbdomain.Station, error) {
	for i := range s.stations {
		if s.stations[i].ID == id {
			return &s.stations[i], nil
		}
	}
	return nil, nil
}

type fixture struct {
	db      *gorm.DB
	svc     pbdomain.Service
	rateSvc ratedomain.Service
	fake    *clock.FakeClock
}

func newFixture(t *testing.T, dsn string, pricing config.PricingConfig) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&ratedomain.RateComponent{},
		&pbdomain.PriceBreakdown{},
		&eventdomain.OutboxEvent{},
	))

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 16, 6, 0, 0, 0, time.UTC))

	rateSvc := rateservice.New(rateservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
	})

	publisher := eventbus.NewPublisher(eventbus.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Transport: &fakeTransport{},
		Channel:   "test.events",
	})

	svc := New(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Pricing:   config.StaticPricingHolder(pricing),
		RateSvc:   rateSvc,
		Stations:  &stationDirectoryStub{stations: []pbdomain.Station{{ID: "STN-1", Active: true}}},
		Publisher: publisher,
	})

	return &fixture{db: db, svc: svc, rateSvc: rateSvc, fake: fake}
}

func defaultPricing() config.PricingConfig {
	return config.PricingConfig{
		PriceFloor:       decimal.RequireFromString("1.00"),
		PriceCeiling:     decimal.RequireFromString("100.00"),
		DefaultTariff:    decimal.RequireFromString("0.0012"),
		BaseTolerance:    decimal.RequireFromString("0.01"),
		MaxClaimFraction: decimal.RequireFromString("0.35"),
	}
}

func (f *fixture) seedComponent(t *testing.T, code string, category ratedomain.Category, unit ratedomain.Unit, value string) {
	t.Helper()
	_, err := f.rateSvc.Create(context.Background(), ratedomain.CreateRequest{
		Code:          code,
		Name:          code,
		Category:      category,
		Unit:          unit,
		Value:         decimal.RequireFromString(value),
		EffectiveFrom: f.fake.Now().Add(-24 * time.Hour),
	})
	assert.NoError(t, err)
}

func TestComputePrice_TotalIsSumOfCategories(t *testing.T) {
	f := newFixture(t, "file:pricebuildup_total?mode=memory&cache=shared", defaultPricing())
	ctx := context.Background()

	// Base 10.00, one levy of 0.50, one 5% regulatory margin on base.
	f.seedComponent(t, "EXREF", ratedomain.CategoryBase, ratedomain.UnitAmountPerLitre, "10.00")
	f.seedComponent(t, "ROAD", ratedomain.CategoryLevy, ratedomain.UnitAmountPerLitre, "0.50")
	f.seedComponent(t, "PSRL", ratedomain.CategoryRegulatoryMargin, ratedomain.UnitPercentageOfBase, "5")

	breakdown, err := f.svc.ComputePrice(ctx, pbdomain.ComputeRequest{
		StationID: "STN-1",
		ProductID: "PMS",
		WindowID:  "2026-W12",
	})
	assert.NoError(t, err)
	assert.True(t, breakdown.TotalPrice.Equal(decimal.RequireFromString("11.00")), "got %s", breakdown.TotalPrice)
	assert.True(t, breakdown.BaseRate.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, breakdown.TaxesAndLevies.Equal(decimal.RequireFromString("0.50")))
	assert.True(t, breakdown.RegulatoryMargins.Equal(decimal.RequireFromString("0.50")))
	assert.False(t, breakdown.OutOfRange)

	sum := breakdown.BaseRate.
		Add(breakdown.TaxesAndLevies).
		Add(breakdown.RegulatoryMargins).
		Add(breakdown.OMCMargin).
		Add(breakdown.DealerMargin)
	assert.True(t, breakdown.TotalPrice.Equal(sum))

	// The snapshot event rides the same transaction as the snapshot.
	var count int64
	assert.NoError(t, f.db.Model(&eventdomain.OutboxEvent{}).
		Where("event_type = ?", eventdomain.EventPriceCalculated).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestComputePrice_MissingBaseRate(t *testing.T) {
	f := newFixture(t, "file:pricebuildup_nobase?mode=memory&cache=shared", defaultPricing())

	f.seedComponent(t, "ROAD", ratedomain.CategoryLevy, ratedomain.UnitAmountPerLitre, "0.50")

	_, err := f.svc.ComputePrice(context.Background(), pbdomain.ComputeRequest{
		StationID: "STN-1",
		ProductID: "PMS",
		WindowID:  "2026-W12",
	})
	assert.ErrorIs(t, err, pbdomain.ErrMissingBaseRate)
}

func TestComputePrice_OutOfRangeFlaggedAndRetained(t *testing.T) {
	pricing := defaultPricing()
	pricing.PriceCeiling = decimal.RequireFromString("5.00")
	f := newFixture(t, "file:pricebuildup_range?mode=memory&cache=shared", pricing)

	f.seedComponent(t, "EXREF", ratedomain.CategoryBase, ratedomain.UnitAmountPerLitre, "10.00")

	breakdown, err := f.svc.ComputePrice(context.Background(), pbdomain.ComputeRequest{
		StationID: "STN-1",
		ProductID: "PMS",
		WindowID:  "2026-W12",
	})
	assert.NoError(t, err)
	assert.True(t, breakdown.OutOfRange)

	// Validate reports it but the snapshot stays on record.
	_, err = f.svc.Validate(context.Background(), breakdown.ID)
	assert.ErrorIs(t, err, pbdomain.ErrPriceOutOfRange)

	stored, err := f.svc.Latest(context.Background(), "STN-1", "PMS", "2026-W12")
	assert.NoError(t, err)
	assert.Equal(t, breakdown.ID, stored.ID)
}

func TestValidate_DetectsTamperedTotal(t *testing.T) {
	f := newFixture(t, "file:pricebuildup_tamper?mode=memory&cache=shared", defaultPricing())

	f.seedComponent(t, "EXREF", ratedomain.CategoryBase, ratedomain.UnitAmountPerLitre, "10.00")

	breakdown, err := f.svc.ComputePrice(context.Background(), pbdomain.ComputeRequest{
		StationID: "STN-1",
		ProductID: "PMS",
		WindowID:  "2026-W12",
	})
	assert.NoError(t, err)

	assert.NoError(t, f.db.Model(&pbdomain.PriceBreakdown{}).
		Where("id = ?", breakdown.ID).
		Update("total_price", decimal.RequireFromString("12.34")).Error)

	_, err = f.svc.Validate(context.Background(), breakdown.ID)
	assert.ErrorIs(t, err, pbdomain.ErrBreakdownMismatch)
}

func TestBulkCompute_PartialFailureTolerant(t *testing.T) {
	f := newFixture(t, "file:pricebuildup_bulk?mode=memory&cache=shared", defaultPricing())

	f.seedComponent(t, "EXREF", ratedomain.CategoryBase, ratedomain.UnitAmountPerLitre, "10.00")

	result, err := f.svc.BulkCompute(context.Background(), pbdomain.BulkComputeRequest{
		WindowID:   "2026-W12",
		StationIDs: []string{"STN-1", ""},
		ProductIDs: []string{"PMS", "AGO"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Errors, 2)
}

func TestBulkCompute_CancellationKeepsCompletedSnapshots(t *testing.T) {
	f := newFixture(t, "file:pricebuildup_cancel?mode=memory&cache=shared", defaultPricing())

	f.seedComponent(t, "EXREF", ratedomain.CategoryBase, ratedomain.UnitAmountPerLitre, "10.00")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.svc.BulkCompute(ctx, pbdomain.BulkComputeRequest{
		WindowID:   "2026-W12",
		StationIDs: []string{"STN-1"},
		ProductIDs: []string{"PMS"},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, result)
	assert.Equal(t, 0, result.Succeeded)
}

func TestComputePrice_SnapshotsAreAppendOnly(t *testing.T) {
	f := newFixture(t, "file:pricebuildup_append?mode=memory&cache=shared", defaultPricing())
	ctx := context.Background()

	f.seedComponent(t, "EXREF", ratedomain.CategoryBase, ratedomain.UnitAmountPerLitre, "10.00")

	first, err := f.svc.ComputePrice(ctx, pbdomain.ComputeRequest{
		StationID: "STN-1", ProductID: "PMS", WindowID: "2026-W12",
	})
	assert.NoError(t, err)

	f.fake.Advance(time.Hour)
	second, err := f.svc.ComputePrice(ctx, pbdomain.ComputeRequest{
		StationID: "STN-1", ProductID: "PMS", WindowID: "2026-W12",
	})
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	var count int64
	assert.NoError(t, f.db.Model(&pbdomain.PriceBreakdown{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	latest, err := f.svc.Latest(ctx, "STN-1", "PMS", "2026-W12")
	assert.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}
