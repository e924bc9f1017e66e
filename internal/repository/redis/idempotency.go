package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore dedupes redelivered webhook events. The processor
// may deliver the same event several times and reconciliation is
// idempotent anyway, but skipping known events saves a round trip to
// the processor. Entries expire after the configured ttl so the set
// does not grow without bound.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims an event id. It returns true when this caller is
// the first to see the id within the ttl window.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, key, "LOCK", s.ttl).Result()
}

// Release drops a claim so a redelivery can be processed, used when
// handling the event failed after the claim.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
