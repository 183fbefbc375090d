package httpx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window limiter shared by every replica through Redis.
type RedisRateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

// The script returns the hit count and the window's remaining milliseconds. A key left
// without an expiry is given one so a window can never stick.
var redisFixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

func NewRedisRateLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := redisFixedWindowScript.Run(ctx, rl.rdb, []string{rl.prefix + ":" + key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return Decision{}, err
	}
	count, ttl, err := parseWindowResult(res)
	if err != nil {
		return Decision{}, err
	}
	if count > int64(rl.limit) {
		return Decision{RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true}, nil
}

func parseWindowResult(res any) (count int64, ttl time.Duration, err error) {
	vals, ok := res.([]any)
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis script result %T", res)
	}
	count, ok = vals[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis count %T", vals[0])
	}
	ms, ok := vals[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis ttl %T", vals[1])
	}
	return count, time.Duration(ms) * time.Millisecond, nil
}

// RedisReadyCheck pings Redis for /readyz.
func RedisReadyCheck(rdb redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
