package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LockManager serializes mutations per booking: SET NX with a TTL so a
// crashed holder cannot wedge a booking forever. A lost acquisition is
// reported to the caller, never waited on.
type LockManager struct {
	client  *redis.Client
	lockTTL time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

func NewLockManager(cfg Config) (*LockManager, error) {
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 30 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &LockManager{client: rdb, lockTTL: cfg.LockTTL}, nil
}

// releaseScript deletes the lock only while this acquisition still owns
// it, so a holder that outlived the TTL cannot drop a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// AcquireBookingLock returns a non-empty ownership token when this
// caller now holds the booking's mutation lock, and ok=false when
// another holder does.
func (m *LockManager) AcquireBookingLock(ctx context.Context, bookingID int64) (string, bool, error) {
	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, bookingLockKey(bookingID), token, m.lockTTL).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseBookingLock drops the lock if token still owns it. Releasing
// after expiry is a no-op, even when a successor holds the key.
func (m *LockManager) ReleaseBookingLock(ctx context.Context, bookingID int64, token string) error {
	return releaseScript.Run(ctx, m.client, []string{bookingLockKey(bookingID)}, token).Err()
}

func (m *LockManager) Close() error {
	return m.client.Close()
}

func bookingLockKey(bookingID int64) string {
	return fmt.Sprintf("lock:booking:%d", bookingID)
}
