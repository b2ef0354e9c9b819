package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petroworks/pumpline/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyDeliveryIngest      = "delivery:ingest:global"
	keyDeliveryIngestRoute = "delivery:ingest:route:%s"
	keyDeliveryIngestLock  = "delivery:ingest:lock:%s"
)

// DeliveryIngestLimiter throttles delivery fact submissions. Depot
// telemetry feeds can flood the API after an outage; the limiter keeps
// ingestion within a sustained rate while a short lock serializes
// re-submissions of the same consignment.
type DeliveryIngestLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	globalRate  float64
	globalBurst int
	routeRate   float64
	routeBurst  int
	lockTTL     time.Duration
}

func NewDeliveryIngestLimiter(cfg config.Config) (*DeliveryIngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.IngestRate <= 0 || limitCfg.IngestBurst <= 0 {
		return nil, errors.New("delivery ingest rate limit must be positive")
	}
	if limitCfg.RouteRate <= 0 || limitCfg.RouteBurst <= 0 {
		return nil, errors.New("delivery route rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &DeliveryIngestLimiter{
		enabled:     true,
		bucket:      NewTokenBucket(client),
		locker:      NewLocker(client),
		globalRate:  limitCfg.IngestRate,
		globalBurst: limitCfg.IngestBurst,
		routeRate:   limitCfg.RouteRate,
		routeBurst:  limitCfg.RouteBurst,
		lockTTL:     time.Duration(limitCfg.LockTTLSeconds) * time.Second,
	}, nil
}

func (l *DeliveryIngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *DeliveryIngestLimiter) AllowIngest(ctx context.Context) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	res, err := l.bucket.Allow(ctx, keyDeliveryIngest, l.globalRate, l.globalBurst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func (l *DeliveryIngestLimiter) AllowRoute(ctx context.Context, routeID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	key := fmt.Sprintf(keyDeliveryIngestRoute, strings.TrimSpace(routeID))
	res, err := l.bucket.Allow(ctx, key, l.routeRate, l.routeBurst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func (l *DeliveryIngestLimiter) TryLockConsignment(ctx context.Context, consignmentID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(keyDeliveryIngestLock, strings.TrimSpace(consignmentID))
	return l.locker.TryLock(ctx, key, l.lockTTL)
}

func (l *DeliveryIngestLimiter) ReleaseConsignment(ctx context.Context, consignmentID, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(keyDeliveryIngestLock, strings.TrimSpace(consignmentID))
	return l.locker.Release(ctx, key, token)
}
