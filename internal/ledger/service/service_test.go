package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	ledgerdomain "github.com/petroworks/pumpline/internal/ledger/domain"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestPostJournalEntry_BalancedPair(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:ledger_post?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&ledgerdomain.JournalHeader{}, &ledgerdomain.JournalLine{}))

	node, err := snowflake.NewNode(7)
	assert.NoError(t, err)

	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node})

	ref, err := svc.PostJournalEntry(context.Background(), setdomain.JournalEntry{
		SettlementID: "1234567890",
		WindowID:     "2026-04",
		Description:  "UPPF settlement 2026-04",
		Amount:       decimal.RequireFromString("8064"),
		PostedAt:     time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
	assert.Contains(t, ref, "JRN-")

	var header ledgerdomain.JournalHeader
	assert.NoError(t, db.Where("reference = ?", ref).First(&header).Error)
	assert.Equal(t, "2026-04", header.WindowID)

	var lines []ledgerdomain.JournalLine
	assert.NoError(t, db.Where("journal_id = ?", header.ID).Order("account ASC").Find(&lines).Error)
	assert.Len(t, lines, 2)

	byDirection := map[ledgerdomain.EntryDirection]decimal.Decimal{}
	for _, line := range lines {
		byDirection[line.Direction] = line.Amount
	}
	assert.True(t, byDirection[ledgerdomain.EntryDirectionDebit].Equal(byDirection[ledgerdomain.EntryDirectionCredit]))
	assert.True(t, byDirection[ledgerdomain.EntryDirectionDebit].Equal(decimal.RequireFromString("8064")))
}
