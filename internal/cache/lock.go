package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const settlementKeyPrefix = "settlement:"

// release only deletes the key when it still holds our token, so a lock that
// expired and was taken by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SettlementLock keeps two requests carrying the same payment id from
// settling concurrently across server instances.
type SettlementLock interface {
	// Acquire returns a release func when the lock was taken, or ok=false
	// when another holder has it.
	Acquire(ctx context.Context, paymentID uuid.UUID) (release func(context.Context) error, ok bool, err error)
}

type redisSettlementLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSettlementLock(rdb *redis.Client, ttl time.Duration) SettlementLock {
	return &redisSettlementLock{rdb: rdb, ttl: ttl}
}

func (l *redisSettlementLock) Acquire(ctx context.Context, paymentID uuid.UUID) (func(context.Context) error, bool, error) {
	key := settlementKey(paymentID)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}

func settlementKey(paymentID uuid.UUID) string {
	return settlementKeyPrefix + paymentID.String()
}
