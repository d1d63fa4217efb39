package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QuotaDecision is the outcome of one training quota check
type QuotaDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// trainQuotaScript keeps one sorted set of run start times per client.
// Returns {1, remaining} when admitted, {0, oldest_ms} when full.
var trainQuotaScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)

	local count = redis.call('ZCARD', key)
	if count >= limit then
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		return {0, tonumber(oldest[2])}
	end

	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window_ms)
	return {1, limit - count - 1}
`)

// TrainQuota caps DQN training runs per client over a sliding window,
// shared across API replicas
// ⭐ SSOT: 학습 실행 한도는 여기서만
type TrainQuota struct {
	client *Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewTrainQuota allows limit runs per client within window
func NewTrainQuota(client *Client, prefix string, limit int, window time.Duration) *TrainQuota {
	return &TrainQuota{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (q *TrainQuota) key(clientID string) string {
	return fmt.Sprintf("%s:train_quota:%s", q.prefix, clientID)
}

// Acquire records a training run for clientID if the client has quota left.
// A disabled client admits every run.
func (q *TrainQuota) Acquire(ctx context.Context, clientID string) (QuotaDecision, error) {
	if !q.client.Enabled() {
		return QuotaDecision{Allowed: true, Remaining: q.limit}, nil
	}

	now := q.now().UnixMilli()
	windowMs := q.window.Milliseconds()
	// 같은 밀리초에 시작한 실행도 구분되도록 고유 멤버 사용
	member := uuid.NewString()

	result, err := trainQuotaScript.Run(ctx, q.client.Redis(), []string{q.key(clientID)},
		now, windowMs, q.limit, member,
	).Int64Slice()
	if err != nil {
		return QuotaDecision{}, fmt.Errorf("train quota script failed: %w", err)
	}

	if result[0] == 1 {
		return QuotaDecision{Allowed: true, Remaining: int(result[1])}, nil
	}
	retry := time.Duration(result[1]+windowMs-now) * time.Millisecond
	return QuotaDecision{RetryAfter: max(retry, time.Millisecond)}, nil
}
