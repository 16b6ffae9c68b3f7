package stubapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
)

// ErrLedgerUnavailable wraps storage failures of a Ledger.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// Ledger tracks verify failures per key and consumed reset token ids.
type Ledger interface {
	// RecordFailure increments the failure counter for key and returns the new
	// count. The window starts at the first failure.
	RecordFailure(ctx context.Context, key string) (int64, error)
	Failures(ctx context.Context, key string) (int64, error)
	ClearFailures(ctx context.Context, key string) error
	// ConsumeToken marks jti used for ttl. It reports false when jti was
	// already consumed.
	ConsumeToken(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryLedger keeps counters in process. A gocron job purges expired entries.
type MemoryLedger struct {
	mu        sync.Mutex
	window    time.Duration
	failures  map[string]memoryEntry
	consumed  map[string]time.Time
	now       func() time.Time
	scheduler gocron.Scheduler
}

// NewMemoryLedger starts a purge job running every purgeEvery.
func NewMemoryLedger(window, purgeEvery time.Duration) (*MemoryLedger, error) {
	if window <= 0 {
		return nil, errors.New("stubapi: failure window must be positive")
	}
	if purgeEvery <= 0 {
		purgeEvery = time.Minute
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	l := &MemoryLedger{
		window:    window,
		failures:  make(map[string]memoryEntry),
		consumed:  make(map[string]time.Time),
		now:       time.Now,
		scheduler: scheduler,
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(purgeEvery),
		gocron.NewTask(l.Purge),
		gocron.WithName("stubapi-ledger-purge"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	scheduler.Start()

	return l, nil
}

func (l *MemoryLedger) RecordFailure(_ context.Context, key string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.failures[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = memoryEntry{expiresAt: now.Add(l.window)}
	}
	entry.count++
	l.failures[key] = entry
	return entry.count, nil
}

func (l *MemoryLedger) Failures(_ context.Context, key string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.failures[key]
	if !ok || !l.now().Before(entry.expiresAt) {
		return 0, nil
	}
	return entry.count, nil
}

func (l *MemoryLedger) ClearFailures(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.failures, key)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLedger) ConsumeToken(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.consumed[jti]; ok && now.Before(until) {
		return false, nil
	}
	l.consumed[jti] = now.Add(ttl)
	return true, nil
}

// Purge drops expired failure windows and consumed token ids.
func (l *MemoryLedger) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.failures {
		if !now.Before(entry.expiresAt) {
			delete(l.failures, key)
		}
	}
	for jti, until := range l.consumed {
		if !now.Before(until) {
			delete(l.consumed, jti)
		}
	}
}

// Size returns the number of live entries (failure keys plus token ids).
func (l *MemoryLedger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failures) + len(l.consumed)
}

// Close stops the purge job.
func (l *MemoryLedger) Close() error {
	return l.scheduler.Shutdown()
}

// RedisLedger keeps counters in Redis so several stub processes share them.
type RedisLedger struct {
	redis  redis.UniversalClient
	prefix string
	window time.Duration
}

func NewRedisLedger(client redis.UniversalClient, prefix string, window time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = "recovery"
	}
	return &RedisLedger{redis: client, prefix: prefix, window: window}
}

func (l *RedisLedger) failureKey(key string) string { return l.prefix + ":fail:" + key }
func (l *RedisLedger) tokenKey(jti string) string   { return l.prefix + ":used:" + jti }

func (l *RedisLedger) RecordFailure(ctx context.Context, key string) (int64, error) {
	k := l.failureKey(key)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	// Fixed window: TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
	}
	return count, nil
}

func (l *RedisLedger) Failures(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Get(ctx, l.failureKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return count, nil
}

func (l *RedisLedger) ClearFailures(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.failureKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return nil
}

func (l *RedisLedger) ConsumeToken(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := l.redis.SetNX(ctx, l.tokenKey(jti), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return ok, nil
}
