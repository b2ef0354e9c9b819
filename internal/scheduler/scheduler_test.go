package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	"github.com/petroworks/pumpline/internal/clock"
	"github.com/petroworks/pumpline/internal/eventbus"
	eventdomain "github.com/petroworks/pumpline/internal/eventbus/domain"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
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

type registryStub struct {
	records []levydomain.DeliveryRecord
}

func (r *registryStub) GetDeliveryByID(ctx context.Context, consignmentID string) (*levydomain.DeliveryRecord, error) {
	for i := range r.records {
		if r.records[i].ConsignmentID == consignmentID {
			return &r.records[i], nil
		}
	}
	return nil, nil
}

func (r *registryStub) GetDeliveriesInWindow(ctx context.Context, windowID string) ([]levydomain.DeliveryRecord, error) {
	return r.records, nil
}

type claimServiceStub struct {
	claimdomain.Service
	existing map[string]bool
	created  []string
}

func (s *claimServiceStub) FindByConsignment(ctx context.Context, consignmentID string) (*claimdomain.UPPFClaim, error) {
	if s.existing[consignmentID] {
		return &claimdomain.UPPFClaim{ID: 1, ConsignmentID: consignmentID}, nil
	}
	return nil, claimdomain.ErrClaimNotFound
}

func (s *claimServiceStub) CreateClaim(ctx context.Context, req claimdomain.CreateClaimRequest) (*claimdomain.UPPFClaim, error) {
	s.created = append(s.created, req.ConsignmentID)
	s.existing[req.ConsignmentID] = true
	return &claimdomain.UPPFClaim{ID: 2, ConsignmentID: req.ConsignmentID, WindowID: req.WindowID}, nil
}

func newTestScheduler(t *testing.T, dsn string, registry *registryStub, claims *claimServiceStub) (*Scheduler, *gorm.DB, *eventbus.Publisher, *fakeTransport) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&eventdomain.OutboxEvent{}))

	node, err := snowflake.NewNode(3)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 5, 6, 7, 0, 0, 0, time.UTC))

	transport := &fakeTransport{}
	publisher := eventbus.NewPublisher(eventbus.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Transport: transport,
		Channel:   "test.events",
	})

	sched, err := New(Params{
		Log:       zap.NewNop(),
		Clock:     fake,
		ClaimSvc:  claims,
		Registry:  registry,
		Publisher: publisher,
	})
	assert.NoError(t, err)
	return sched, db, publisher, transport
}

func delivery(consignmentID string) levydomain.DeliveryRecord {
	return levydomain.DeliveryRecord{
		ConsignmentID: consignmentID,
		RouteID:       "RT-1",
		ProductType:   levydomain.ProductAGO,
		VolumeLitres:  decimal.RequireFromString("8000"),
		KmActual:      decimal.RequireFromString("90"),
		KmPlanned:     decimal.RequireFromString("90"),
		UnitValue:     decimal.RequireFromString("13.00"),
		DeliveredAt:   time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
	}
}

func TestAutoGenerateClaimsJob_SkipsClaimedConsignments(t *testing.T) {
	registry := &registryStub{records: []levydomain.DeliveryRecord{
		delivery("CNS-5001"),
		delivery("CNS-5002"),
		delivery("CNS-5003"),
	}}
	claims := &claimServiceStub{existing: map[string]bool{"CNS-5002": true}}
	sched, _, _, _ := newTestScheduler(t, "file:scheduler_autogen?mode=memory&cache=shared", registry, claims)

	assert.NoError(t, sched.AutoGenerateClaimsJob(context.Background()))
	assert.ElementsMatch(t, []string{"CNS-5001", "CNS-5003"}, claims.created)

	// Second run finds everything claimed.
	claims.created = nil
	assert.NoError(t, sched.AutoGenerateClaimsJob(context.Background()))
	assert.Empty(t, claims.created)
}

func TestOutboxDrainJob_PublishesPending(t *testing.T) {
	registry := &registryStub{}
	claims := &claimServiceStub{existing: map[string]bool{}}
	sched, db, publisher, transport := newTestScheduler(t, "file:scheduler_drain?mode=memory&cache=shared", registry, claims)
	ctx := context.Background()

	assert.NoError(t, publisher.Enqueue(ctx, nil, eventdomain.EventPriceCalculated, "k1", map[string]any{"n": 1}))
	assert.NoError(t, publisher.Enqueue(ctx, nil, eventdomain.EventPriceCalculated, "k2", map[string]any{"n": 2}))

	assert.NoError(t, sched.OutboxDrainJob(ctx))
	assert.Len(t, transport.messages, 2)

	var unpublished int64
	assert.NoError(t, db.Model(&eventdomain.OutboxEvent{}).Where("published = ?", false).Count(&unpublished).Error)
	assert.Zero(t, unpublished)
}

func TestRunOnce_CombinesJobs(t *testing.T) {
	registry := &registryStub{records: []levydomain.DeliveryRecord{delivery("CNS-5010")}}
	claims := &claimServiceStub{existing: map[string]bool{}}
	sched, _, _, _ := newTestScheduler(t, "file:scheduler_runonce?mode=memory&cache=shared", registry, claims)

	assert.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, []string{"CNS-5010"}, claims.created)
}

// A scheduler built without an explicit Config must still draft claims.
func TestRunOnce_ZeroConfigRunsClaimGeneration(t *testing.T) {
	registry := &registryStub{records: []levydomain.DeliveryRecord{delivery("CNS-5020")}}
	claims := &claimServiceStub{existing: map[string]bool{}}
	sched, _, _, _ := newTestScheduler(t, "file:scheduler_zerocfg?mode=memory&cache=shared", registry, claims)

	assert.False(t, sched.cfg.DisableAutoGenerate)
	assert.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, []string{"CNS-5020"}, claims.created)
}

func TestRunOnce_DisableAutoGenerateSkipsClaimJob(t *testing.T) {
	registry := &registryStub{records: []levydomain.DeliveryRecord{delivery("CNS-5021")}}
	claims := &claimServiceStub{existing: map[string]bool{}}
	sched, _, _, _ := newTestScheduler(t, "file:scheduler_disabled?mode=memory&cache=shared", registry, claims)
	sched.cfg.DisableAutoGenerate = true

	assert.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, claims.created)
}
