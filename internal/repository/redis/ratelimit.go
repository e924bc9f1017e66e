package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sliding-window counter over a sorted set, applied per client IP to
// the public booking and newsletter endpoints. Each request becomes a
// uniquely-named member scored by arrival time; members older than the
// window are pruned before counting.
// KEYS[1] = counter key
// ARGV[1] = now_ms
// ARGV[2] = window_ms
// ARGV[3] = limit
// ARGV[4] = request member
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
redis.call('ZADD', key, 'NX', now, ARGV[4])
local count = redis.call('ZCARD', key)
redis.call('PEXPIRE', key, window)

if count > limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local oldestScore = tonumber(oldest[2]) or (now - window)
  local retry_ms = window - (now - oldestScore)
  if retry_ms < 0 then retry_ms = 0 end
  return {0, count, retry_ms}
end

return {1, count, 0}
`

// Decision is the outcome of one rate-limit check. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	Current    int64
	RetryAfter time.Duration
}

type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script
}

func NewSlidingWindowLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindowScript),
	}
}

// Allow records one request for the given scope (typically
// "endpoint:ip") and reports whether it fits the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, scope string) (Decision, error) {
	key := fmt.Sprintf("%s:%s", l.prefix, scope)
	nowMs := time.Now().UnixMilli()
	member := requestMember(12)

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{key},
		nowMs, l.window.Milliseconds(), l.limit, member,
	).Result()
	if err != nil {
		return Decision{}, err
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return Decision{}, fmt.Errorf("unexpected script result: %v", res)
	}

	return Decision{
		Allowed:    scriptInt(arr[0]) == 1,
		Current:    scriptInt(arr[1]),
		RetryAfter: time.Duration(scriptInt(arr[2])) * time.Millisecond,
	}, nil
}

func scriptInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		var x int64
		fmt.Sscan(t, &x)
		return x
	default:
		return 0
	}
}

func requestMember(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
