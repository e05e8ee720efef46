package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("slot lock not acquired")
)

// Locker guards the booking critical section per slot key.
type Locker interface {
	WithSlotLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error
}

// SlotKey builds the lock key for one bookable slot of a doctor at a hospital.
func SlotKey(doctorID, hospitalID, date, clock string) string {
	return fmt.Sprintf("%s:%s:%s:%s", doctorID, hospitalID, date, clock)
}

type redisSlotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotLocker creates a locker that uses a per slot Redis key
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisSlotLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisSlotLocker) WithSlotLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error {
	key := "lock:slot:" + slotKey
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}

// localSlotLocker is the in-process counterpart used when Redis is not configured.
// Held keys expire after ttl so a stuck holder cannot block a slot forever.
// Like the Redis unlock script, release only drops a hold the caller still owns.
type localSlotLocker struct {
	mu   sync.Mutex
	held map[string]localHold
	ttl  time.Duration
	now  func() time.Time
}

type localHold struct {
	token string
	until time.Time
}

func NewLocalSlotLocker(ttl time.Duration) Locker {
	return &localSlotLocker{
		held: make(map[string]localHold),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (l *localSlotLocker) WithSlotLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error {
	token, ok := l.acquire(slotKey)
	if !ok {
		return ErrLockNotAcquired
	}
	defer l.release(slotKey, token)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *localSlotLocker) acquire(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.held[key]; ok && now.Before(h.until) {
		return "", false
	}
	token := uuid.NewString()
	l.held[key] = localHold{token: token, until: now.Add(l.ttl)}
	return token, true
}

func (l *localSlotLocker) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.held[key]; ok && h.token == token {
		delete(l.held, key)
	}
}
