package reference

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/petroworks/pumpline/internal/clock"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	"github.com/petroworks/pumpline/internal/reference/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestRepository(t *testing.T, dsn string) (*Repository, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&domain.Station{}, &domain.Dealer{}, &domain.Delivery{}))

	fake := clock.NewFakeClock(time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC))
	return NewRepository(db, fake), fake
}

func TestRecordDelivery_DerivesWindowAndUpserts(t *testing.T) {
	repo, _ := newTestRepository(t, "file:reference_delivery?mode=memory&cache=shared")
	ctx := context.Background()

	req := domain.RecordDeliveryRequest{
		ConsignmentID: "CNS-2026-4001",
		RouteID:       "RT-TEMA-TAM",
		ProductType:   levydomain.ProductAGO,
		VolumeLitres:  decimal.RequireFromString("34000"),
		KmActual:      decimal.RequireFromString("612"),
		KmPlanned:     decimal.RequireFromString("600"),
		UnitValue:     decimal.RequireFromString("13.20"),
		DeliveredAt:   time.Date(2026, 4, 8, 16, 30, 0, 0, time.UTC),
	}

	delivery, err := repo.RecordDelivery(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, "2026-04", delivery.WindowID)

	// Correction replaces the prior fact for the same consignment.
	req.VolumeLitres = decimal.RequireFromString("33950")
	_, err = repo.RecordDelivery(ctx, req)
	assert.NoError(t, err)

	record, err := repo.GetDeliveryByID(ctx, "CNS-2026-4001")
	assert.NoError(t, err)
	assert.NotNil(t, record)
	assert.True(t, record.VolumeLitres.Equal(decimal.RequireFromString("33950")))

	inWindow, err := repo.GetDeliveriesInWindow(ctx, "2026-04")
	assert.NoError(t, err)
	assert.Len(t, inWindow, 1)

	missing, err := repo.GetDeliveryByID(ctx, "CNS-0000-0000")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecordDelivery_RejectsBadInput(t *testing.T) {
	repo, _ := newTestRepository(t, "file:reference_delivery_bad?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := repo.RecordDelivery(ctx, domain.RecordDeliveryRequest{
		RouteID:      "RT-TEMA-TAM",
		ProductType:  levydomain.ProductPMS,
		VolumeLitres: decimal.RequireFromString("100"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDelivery)

	_, err = repo.RecordDelivery(ctx, domain.RecordDeliveryRequest{
		ConsignmentID: "CNS-2026-4002",
		RouteID:       "RT-TEMA-TAM",
		ProductType:   levydomain.ProductType("JET-A1"),
		VolumeLitres:  decimal.RequireFromString("100"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDelivery)

	_, err = repo.RecordDelivery(ctx, domain.RecordDeliveryRequest{
		ConsignmentID: "CNS-2026-4003",
		RouteID:       "RT-TEMA-TAM",
		ProductType:   levydomain.ProductPMS,
		VolumeLitres:  decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDelivery)
}

func TestStationDirectory_ActiveOnly(t *testing.T) {
	repo, _ := newTestRepository(t, "file:reference_stations?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := repo.UpsertStation(ctx, domain.Station{ID: "ST-001", Name: "Accra North", DealerID: "DLR-01", Region: "Greater Accra", Active: true})
	assert.NoError(t, err)
	_, err = repo.UpsertStation(ctx, domain.Station{ID: "ST-002", Name: "Tamale Central", DealerID: "DLR-02", Region: "Northern", Active: false})
	assert.NoError(t, err)

	active, err := repo.GetActiveStations(ctx)
	assert.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, "ST-001", active[0].ID)

	station, err := repo.GetStationByID(ctx, "ST-002")
	assert.NoError(t, err)
	assert.NotNil(t, station)
	assert.False(t, station.Active)

	missing, err := repo.GetStationByID(ctx, "ST-404")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDealerDirectory_CreditProfile(t *testing.T) {
	repo, _ := newTestRepository(t, "file:reference_dealers?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := repo.UpsertDealer(ctx, domain.Dealer{ID: "DLR-01", Name: "Northern Fuels Ltd", PayableAccount: "ACC-7001"})
	assert.NoError(t, err)
	_, err = repo.UpsertDealer(ctx, domain.Dealer{ID: "DLR-02", Name: "Volta Energy", PayableAccount: "ACC-7002", Blocked: true})
	assert.NoError(t, err)

	profile, err := repo.GetDealerCreditProfile(ctx, "DLR-02")
	assert.NoError(t, err)
	assert.NotNil(t, profile)
	assert.True(t, profile.Blocked)
	assert.Equal(t, "ACC-7002", profile.PayableAccount)

	missing, err := repo.GetDealerCreditProfile(ctx, "DLR-404")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
