package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const importLockKey = "portal:import:lock"

// RedisImportLock is the Redis-backed global import mutex. A single key
// guards all import types; TTL protects against a crashed holder keeping
// the lock forever.
type RedisImportLock struct {
	locker *redislock.Client
	logger *zap.Logger
	ttl    time.Duration

	mu   sync.Mutex
	held *redislock.Lock
}

// NewRedisImportLock creates a new RedisImportLock
func NewRedisImportLock(client *redis.Client, logger *zap.Logger, ttl time.Duration) *RedisImportLock {
	return &RedisImportLock{
		locker: redislock.New(client),
		logger: logger,
		ttl:    ttl,
	}
}

// TryAcquire attempts to take the lock without waiting. It returns false when
// another holder owns it, and an error only for Redis trouble.
func (l *RedisImportLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held != nil {
		return false, nil
	}

	lock, err := l.locker.Obtain(ctx, importLockKey, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to obtain import lock: %w", err)
	}

	l.held = lock
	l.logger.Debug("Import lock obtained", zap.Duration("ttl", l.ttl))
	return true, nil
}

// Release frees the lock. Releasing a lock that already expired is not an
// error worth failing the caller over; it is logged and swallowed.
func (l *RedisImportLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held == nil {
		return nil
	}
	err := l.held.Release(ctx)
	l.held = nil
	if errors.Is(err, redislock.ErrLockNotHeld) {
		l.logger.Warn("Import lock already expired before release")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release import lock: %w", err)
	}
	l.logger.Debug("Import lock released")
	return nil
}
