package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/petroworks/pumpline/internal/clock"
	eventdomain "github.com/petroworks/pumpline/internal/eventbus/domain"
	"github.com/petroworks/pumpline/internal/observability/metrics"
	"github.com/petroworks/pumpline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transport delivers a serialized event to subscribers.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Transport Transport
	Channel   string `name:"event_channel"`
}

// Publisher writes events to the outbox and drains them to the transport.
type Publisher struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	transport Transport
	channel   string
}

func NewPublisher(p Params) *Publisher {
	return &Publisher{
		db:        p.DB,
		log:       p.Log.Named("eventbus.publisher"),
		genID:     p.GenID,
		clock:     p.Clock,
		transport: p.Transport,
		channel:   p.Channel,
	}
}

// Enqueue records an event inside the caller's transaction. Events are
// only visible to subscribers once the surrounding transaction commits.
// A duplicate dedupe key is treated as already enqueued.
func (p *Publisher) Enqueue(ctx context.Context, tx *gorm.DB, eventType, dedupeKey string, payload map[string]any) error {
	if tx == nil {
		tx = p.db
	}

	event := &eventdomain.OutboxEvent{
		ID:        p.genID.Generate(),
		EventType: eventType,
		Payload:   datatypes.JSONMap(payload),
		CreatedAt: p.clock.Now(),
	}
	if dedupeKey != "" {
		event.DedupeKey = &dedupeKey
	}

	if err := tx.WithContext(ctx).Create(event).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	return nil
}

// PublishPending drains up to batchSize unpublished events in creation
// order. Delivery failures leave the event unpublished for the next run.
func (p *Publisher) PublishPending(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	var pending []eventdomain.OutboxEvent
	err := p.db.WithContext(ctx).
		Where("published = ?", false).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&pending).Error
	if err != nil {
		return 0, err
	}

	published := 0
	for i := range pending {
		event := pending[i]
		if err := ctx.Err(); err != nil {
			return published, err
		}

		body, err := json.Marshal(map[string]any{
			"id":         event.ID.String(),
			"event_type": event.EventType,
			"payload":    map[string]any(event.Payload),
			"created_at": event.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			p.log.Error("marshal outbox event", zap.String("event_id", event.ID.String()), zap.Error(err))
			continue
		}

		if err := p.transport.Publish(ctx, p.channel, body); err != nil {
			p.log.Warn("publish outbox event",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			continue
		}

		now := p.clock.Now()
		err = p.db.WithContext(ctx).Model(&eventdomain.OutboxEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]any{"published": true, "published_at": now}).Error
		if err != nil {
			return published, err
		}
		published++
	}

	metrics.Default().AddOutboxPublished(published)
	return published, nil
}
