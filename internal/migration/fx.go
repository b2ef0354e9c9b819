package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	"github.com/petroworks/pumpline/internal/config"
	eqdomain "github.com/petroworks/pumpline/internal/equalisation/domain"
	eventdomain "github.com/petroworks/pumpline/internal/eventbus/domain"
	ledgerdomain "github.com/petroworks/pumpline/internal/ledger/domain"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	refdomain "github.com/petroworks/pumpline/internal/reference/domain"
	"github.com/petroworks/pumpline/internal/seed"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if err := ensureSchema(conn, cfg); err != nil {
			return err
		}
		return seed.EnsureBaselineRates(conn)
	}),
)

// Versioned SQL migrations target postgres. Embedded sqlite
// deployments get their schema from the gorm models instead.
func ensureSchema(conn *gorm.DB, cfg config.Config) error {
	if cfg.DBType != "postgres" {
		return conn.AutoMigrate(
			&ratedomain.RateComponent{},
			&eqdomain.EqualisationPoint{},
			&pbdomain.PriceBreakdown{},
			&recdomain.ThreeWayReconciliation{},
			&claimdomain.UPPFClaim{},
			&claimdomain.ClaimAnomaly{},
			&claimdomain.ClaimAuditEntry{},
			&setdomain.UPPFSettlement{},
			&refdomain.Station{},
			&refdomain.Dealer{},
			&refdomain.Delivery{},
			&ledgerdomain.JournalHeader{},
			&ledgerdomain.JournalLine{},
			&eventdomain.OutboxEvent{},
		)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
