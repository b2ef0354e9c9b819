package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/petroworks/pumpline/internal/claims"
	"github.com/petroworks/pumpline/internal/clock"
	"github.com/petroworks/pumpline/internal/config"
	"github.com/petroworks/pumpline/internal/equalisation"
	"github.com/petroworks/pumpline/internal/eventbus"
	"github.com/petroworks/pumpline/internal/ledger"
	"github.com/petroworks/pumpline/internal/levy"
	"github.com/petroworks/pumpline/internal/migration"
	"github.com/petroworks/pumpline/internal/observability"
	"github.com/petroworks/pumpline/internal/pricebuildup"
	"github.com/petroworks/pumpline/internal/ratecomponent"
	"github.com/petroworks/pumpline/internal/ratelimit"
	"github.com/petroworks/pumpline/internal/reconciliation"
	"github.com/petroworks/pumpline/internal/reference"
	"github.com/petroworks/pumpline/internal/scheduler"
	"github.com/petroworks/pumpline/internal/server"
	"github.com/petroworks/pumpline/internal/settlement"
	"github.com/petroworks/pumpline/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		eventbus.Module,

		// Reference data and ledger
		reference.Module,
		ledger.Module,

		// Pricing engine
		ratecomponent.Module,
		equalisation.Module,
		pricebuildup.Module,

		// Claim engine
		levy.Module,
		reconciliation.Module,
		claims.Module,
		settlement.Module,

		// Entry points
		ratelimit.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
