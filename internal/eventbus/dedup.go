package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// defaultPendingTTL bounds how long a claim survives a worker that died
// before finishing the event.
const defaultPendingTTL = time.Minute

// Deduplicator remembers which event ids were already handled so a
// redelivered envelope does not produce a second notification.
type Deduplicator interface {
	// Claim reports false when eventID is being handled or was handled.
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	// Confirm marks a claimed event as handled.
	Confirm(ctx context.Context, eventID uuid.UUID) error
	// Release forgets eventID so a later redelivery is handled again.
	Release(ctx context.Context, eventID uuid.UUID) error
}

// RedisDeduplicator claims an event with a short pending TTL and keeps it for
// the full TTL once confirmed, so a crash mid-dispatch only blocks
// redelivery until the pending claim lapses.
type RedisDeduplicator struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewRedisDeduplicator keeps confirmed claims for ttl. A nil client claims
// everything.
func NewRedisDeduplicator(client *redis.Client, ttl time.Duration) *RedisDeduplicator {
	pending := defaultPendingTTL
	if ttl < pending {
		pending = ttl
	}
	return &RedisDeduplicator{client: client, ttl: ttl, pendingTTL: pending}
}

func (d *RedisDeduplicator) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if d.client == nil {
		return true, nil
	}

	wasSet, err := d.client.SetNX(ctx, claimKey(eventID), "pending", d.pendingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim event in redis: %w", err)
	}
	return wasSet, nil
}

func (d *RedisDeduplicator) Confirm(ctx context.Context, eventID uuid.UUID) error {
	if d.client == nil {
		return nil
	}
	return d.client.Set(ctx, claimKey(eventID), "handled", d.ttl).Err()
}

func (d *RedisDeduplicator) Release(ctx context.Context, eventID uuid.UUID) error {
	if d.client == nil {
		return nil
	}
	return d.client.Del(ctx, claimKey(eventID)).Err()
}

func claimKey(eventID uuid.UUID) string {
	return fmt.Sprintf("push_event:%s", eventID.String())
}
