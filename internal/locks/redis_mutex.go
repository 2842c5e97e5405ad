package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be acquired within the
// configured retry budget. Callers should treat it as retryable.
var ErrNotAcquired = errors.New("lock not acquired")

// Lua script for atomic compare-and-delete release. A holder whose TTL
// expired must not delete a lock that has since been taken by another owner.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Mutex provides named, TTL-bound, ownership-checked advisory locks on Redis.
// The lock reduces contention on hot rows; it is not the correctness
// guarantee. That rests on the conditional capacity update in the store.
type Mutex struct {
	redis *redis.Client
}

// NewMutex creates a Mutex on the given Redis client.
func NewMutex(redisClient *redis.Client) *Mutex {
	return &Mutex{redis: redisClient}
}

// TryAcquire attempts an atomic set-if-not-present with expiry. It returns
// true when this caller now holds the lock under ownerToken.
func (m *Mutex) TryAcquire(ctx context.Context, key, ownerToken string, ttl time.Duration) (bool, error) {
	if m.redis == nil {
		return false, fmt.Errorf("redis client not available")
	}

	ok, err := m.redis.SetNX(ctx, key, ownerToken, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes the lock only if it is still held under ownerToken.
// It returns true when the lock was released by this call.
func (m *Mutex) Release(ctx context.Context, key, ownerToken string) (bool, error) {
	if m.redis == nil {
		return false, fmt.Errorf("redis client not available")
	}

	// Run tries EVALSHA first and falls back to EVAL when the script is
	// not cached yet.
	result, err := releaseScript.Run(ctx, m.redis, []string{key}, ownerToken).Result()
	if err != nil {
		return false, fmt.Errorf("failed to release lock %s: %w", key, err)
	}

	deleted, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result releasing lock %s", key)
	}
	return deleted == 1, nil
}

// AcquireWithRetry attempts TryAcquire up to attempts times, sleeping backoff
// between attempts. It never blocks indefinitely: when the budget is spent it
// returns ErrNotAcquired.
func (m *Mutex) AcquireWithRetry(ctx context.Context, key, ownerToken string, ttl time.Duration, attempts int, backoff time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		ok, err := m.TryAcquire(ctx, key, ownerToken, ttl)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return ErrNotAcquired
}

// PreloadScripts loads the release script into the Redis script cache so the
// first Release does not pay the Eval fallback.
func (m *Mutex) PreloadScripts(ctx context.Context) error {
	if m.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	if err := releaseScript.Load(ctx, m.redis).Err(); err != nil {
		return fmt.Errorf("failed to load release script: %w", err)
	}
	return nil
}

// BookingLockKey returns the lock key guarding admissions for an event.
func BookingLockKey(eventID string) string {
	return "booking_lock:" + eventID
}

// CancelLockKey returns the lock key guarding cancellation of a booking.
func CancelLockKey(bookingID string) string {
	return "cancel_lock:" + bookingID
}
