package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/petroworks/pumpline/internal/ledger/domain"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

// Service posts settled claim windows to the general ledger. Each
// settlement becomes one journal with a balanced debit/credit pair.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) setdomain.AccountingLedger {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) PostJournalEntry(ctx context.Context, entry setdomain.JournalEntry) (string, error) {
	id := s.genID.Generate()
	header := ledgerdomain.JournalHeader{
		ID:           id,
		Reference:    fmt.Sprintf("JRN-%s", id.String()),
		SettlementID: entry.SettlementID,
		WindowID:     entry.WindowID,
		Description:  entry.Description,
		PostedAt:     entry.PostedAt,
	}

	lines := []ledgerdomain.JournalLine{
		{
			ID:        s.genID.Generate(),
			JournalID: header.ID,
			Account:   ledgerdomain.AccountCodeUPPFReceivable,
			Direction: ledgerdomain.EntryDirectionDebit,
			Amount:    entry.Amount,
		},
		{
			ID:        s.genID.Generate(),
			JournalID: header.ID,
			Account:   ledgerdomain.AccountCodeClaimsIncome,
			Direction: ledgerdomain.EntryDirectionCredit,
			Amount:    entry.Amount,
		},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&header).Error; err != nil {
			return err
		}
		return tx.Create(&lines).Error
	})
	if err != nil {
		return "", fmt.Errorf("post journal entry: %w", err)
	}

	s.log.Info("journal posted",
		zap.String("reference", header.Reference),
		zap.String("settlement_id", entry.SettlementID),
		zap.String("window_id", entry.WindowID),
	)
	return header.Reference, nil
}
