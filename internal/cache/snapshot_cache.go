package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tmduggan/gordon/internal/progression"
	"github.com/tmduggan/gordon/internal/telemetry/tracing"
)

var ErrCacheMiss = progression.ErrSnapshotNotCached

// SnapshotCache keeps the latest computed snapshot per user in redis.
type SnapshotCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewSnapshotCache(redisClient *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func Key(userID string) string {
	return fmt.Sprintf("progression::%s", userID)
}

func (c *SnapshotCache) Get(ctx context.Context, userID string) (_ *progression.Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cache.snapshot.get")
	defer func() {
		if errors.Is(err, ErrCacheMiss) {
			span.SetAttributes(attribute.Bool("hit", false))
			tracing.EndSpanWithErrCheck(span, nil)
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	cached, err := c.redisClient.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	snapshot := &progression.Snapshot{}
	if err := json.Unmarshal(cached, snapshot); err != nil {
		log.Errorf("failed to unmarshal cached snapshot for [%s]: %s", userID, err)
		return nil, ErrCacheMiss
	}
	span.SetAttributes(attribute.Bool("hit", true))
	return snapshot, nil
}

func (c *SnapshotCache) Set(ctx context.Context, snapshot progression.Snapshot) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cache.snapshot.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", snapshot.Profile.UserID))

	snapshotBytes, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.redisClient.Set(ctx, Key(snapshot.Profile.UserID), snapshotBytes, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *SnapshotCache) Invalidate(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cache.snapshot.invalidate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	if err := c.redisClient.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
