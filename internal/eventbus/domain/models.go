package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event types emitted by the pricing and claims engine.
const (
	EventPriceCalculated     = "price.calculated"
	EventPriceBulkCompleted  = "price.bulk.completed"
	EventClaimTransitioned   = "claim.transitioned"
	EventSettlementCompleted = "settlement.completed"
)

// OutboxEvent captures domain events in the same transaction as the
// state change they describe. A background drain publishes them.
type OutboxEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	EventType   string            `gorm:"type:text;not null;index"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	DedupeKey   *string           `gorm:"type:text;uniqueIndex:ux_outbox_dedupe"`
	Published   bool              `gorm:"not null;default:false;index"`
	PublishedAt *time.Time        `gorm:""`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OutboxEvent) TableName() string { return "outbox_events" }
