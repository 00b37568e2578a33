package commitlock

import (
	"context"
	"time"

	"marketplace-payments/internal/logger"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "payments:commit-lock:"

// shortenTTL lowers the key's TTL to ARGV[1] ms, never raising it. Same effect
// as PEXPIRE ... LT, which older servers lack.
var shortenTTL = redis.NewScript(`
local ttl = redis.call("PTTL", KEYS[1])
if ttl > tonumber(ARGV[1]) then
	return redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return 0
`)

// Redis shares the lock across instances. Expiry is left to key TTLs, so it
// needs no sweeping.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect builds a client from a redis:// URL or a bare host:port.
func Connect(redisURL string) (*redis.Client, error) {
	if opt, err := redis.ParseURL(redisURL); err == nil {
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

func (r *Redis) Acquire(ctx context.Context, token string) (bool, error) {
	return r.client.SetNX(ctx, redisKeyPrefix+token, time.Now().UTC().Format(time.RFC3339Nano), r.ttl).Result()
}

func (r *Redis) ReleaseAfter(token string, grace time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := redisKeyPrefix + token
	var err error
	if grace <= 0 {
		err = r.client.Del(ctx, key).Err()
	} else {
		err = shortenTTL.Run(ctx, r.client, []string{key}, grace.Milliseconds()).Err()
	}
	if err != nil && err != redis.Nil {
		logger.Warn("commit lock release for %s failed, key will expire by TTL: %v", token, err)
	}
}
