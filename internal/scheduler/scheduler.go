package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	"github.com/petroworks/pumpline/internal/clock"
	"github.com/petroworks/pumpline/internal/eventbus"
	"github.com/petroworks/pumpline/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	ClaimSvc  claimdomain.Service
	Registry  claimdomain.DeliveryRegistry
	Publisher *eventbus.Publisher
	Config    Config `optional:"true"`
}

// Scheduler runs the background jobs: drafting claims for deliveries
// nobody claimed yet and draining the event outbox.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	claimSvc  claimdomain.Service
	registry  claimdomain.DeliveryRegistry
	publisher *eventbus.Publisher
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.ClaimSvc == nil || p.Registry == nil || p.Publisher == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler"),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		claimSvc:  p.ClaimSvc,
		registry:  p.Registry,
		publisher: p.Publisher,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	m := metrics.Default()
	m.IncJobRun(name)

	err := fn(ctx)
	m.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	m.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out", zap.String("job", name), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	if !s.cfg.DisableAutoGenerate {
		err = errors.Join(err, s.runJob(parent, "auto_generate_claims", s.AutoGenerateClaimsJob))
	}
	err = errors.Join(err, s.runJob(parent, "outbox_drain", s.OutboxDrainJob))
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// AutoGenerateClaimsJob drafts a claim for every delivery in the
// current window that has none. Already-claimed consignments are
// skipped, everything else is attempted.
func (s *Scheduler) AutoGenerateClaimsJob(ctx context.Context) error {
	windowID := s.clock.Now().Format("2006-01")
	deliveries, err := s.registry.GetDeliveriesInWindow(ctx, windowID)
	if err != nil {
		return err
	}

	var jobErr error
	created := 0
	for _, delivery := range deliveries {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		if created >= s.cfg.ClaimBatch {
			break
		}

		_, err := s.claimSvc.FindByConsignment(ctx, delivery.ConsignmentID)
		if err == nil {
			continue
		}
		if !errors.Is(err, claimdomain.ErrClaimNotFound) {
			jobErr = errors.Join(jobErr, err)
			continue
		}

		_, err = s.claimSvc.CreateClaim(ctx, claimdomain.CreateClaimRequest{
			ConsignmentID: delivery.ConsignmentID,
			WindowID:      windowID,
			DealerID:      s.cfg.DefaultDealer,
			Actor:         "scheduler",
		})
		if err != nil {
			if errors.Is(err, claimdomain.ErrDuplicateClaim) {
				continue
			}
			jobErr = errors.Join(jobErr, err)
			continue
		}
		created++
	}

	if created > 0 {
		s.log.Info("claims auto generated",
			zap.String("window_id", windowID),
			zap.Int("created", created),
		)
	}
	return jobErr
}

// OutboxDrainJob pushes unpublished events to the transport.
func (s *Scheduler) OutboxDrainJob(ctx context.Context) error {
	_, err := s.publisher.PublishPending(ctx, s.cfg.OutboxBatch)
	return err
}
