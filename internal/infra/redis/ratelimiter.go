package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultSMSPerSec          int64 = 20
	defaultSMSPerNumberPerDay int64 = 3
	backoffStep                     = 10 * time.Millisecond
	backoffMax                      = 50 * time.Millisecond
	windowSeconds                   = 1
	dayWindowSeconds                = 48 * 60 * 60
)

// smsAllowScript admits a send only when both windows have headroom and
// consumes the daily slot only on admission, so a send rejected by the
// per-second window does not burn the number's daily budget.
// KEYS[1] = daily key, KEYS[2] = second key.
// ARGV: daily limit, daily ttl, per-second limit, second ttl.
// Returns 0 = daily cap hit, 1 = admitted, 2 = throttled this second.
var smsAllowScript = goredis.NewScript(`
local day = tonumber(redis.call("GET", KEYS[1]) or "0")
if day >= tonumber(ARGV[1]) then
  return 0
end
local sec = redis.call("INCR", KEYS[2])
if sec == 1 then
  redis.call("EXPIRE", KEYS[2], ARGV[4])
end
if sec > tonumber(ARGV[3]) then
  return 2
end
local newday = redis.call("INCR", KEYS[1])
if newday == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

var _ ratelimit.SMSLimiter = (*RedisSMSLimiter)(nil)

// RedisSMSLimiter admits an outbound text only when both the global
// per-second ceiling and the number's daily cap have headroom. Distributed:
// every sender process shares the same windows.
type RedisSMSLimiter struct {
	client          *goredis.Client
	perSec          int64
	perNumberPerDay int64
	now             func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error
	script          *goredis.Script
}

func NewRedisSMSLimiter(client *goredis.Client, perSec, perNumberPerDay int) (*RedisSMSLimiter, error) {
	return newRedisSMSLimiter(
		client,
		int64(perSec),
		int64(perNumberPerDay),
		time.Now,
		sleepWithContext,
	)
}

func newRedisSMSLimiter(
	client *goredis.Client,
	perSec int64,
	perNumberPerDay int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisSMSLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if perSec <= 0 {
		perSec = defaultSMSPerSec
	}
	if perNumberPerDay <= 0 {
		perNumberPerDay = defaultSMSPerNumberPerDay
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &RedisSMSLimiter{
		client:          client,
		perSec:          perSec,
		perNumberPerDay: perNumberPerDay,
		now:             nowFn,
		sleep:           sleepFn,
		script:          smsAllowScript,
	}, nil
}

func (r *RedisSMSLimiter) Allow(ctx context.Context, phone string) (bool, error) {
	admitted, _, err := r.allow(ctx, phone)
	return admitted, err
}

func (r *RedisSMSLimiter) allow(ctx context.Context, phone string) (admitted, retriable bool, err error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, false, fmt.Errorf("sms limiter is not initialized")
	}
	if !domain.IsCanonicalPhone(phone) {
		return false, false, fmt.Errorf("%w: phone %q is not canonical", domain.ErrValidation, phone)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	now := r.now().UTC()
	dayKey := fmt.Sprintf("sms:daily:%s:%s", phone, now.Format(domain.DayKey))
	secKey := fmt.Sprintf("sms:rate:%d", now.Unix())

	result, err := r.script.Run(ctx, r.client,
		[]string{dayKey, secKey},
		r.perNumberPerDay, dayWindowSeconds, r.perSec, windowSeconds,
	).Int()
	if err != nil {
		return false, false, fmt.Errorf("failed to evaluate sms rate limit: %w", err)
	}

	switch result {
	case 1:
		return true, false, nil
	case 2:
		// Throttled this second only; the next window may admit.
		return false, true, nil
	default:
		return false, false, nil
	}
}

// Wait blocks until Allow admits the send or the context ends. A number at
// its daily cap returns immediately as not admitted: waiting cannot help it.
func (r *RedisSMSLimiter) Wait(ctx context.Context, phone string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		admitted, retriable, err := r.allow(ctx, phone)
		if err != nil {
			return err
		}
		if admitted {
			return nil
		}
		if !retriable {
			return fmt.Errorf("daily sms cap reached for %s", phone)
		}

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff += backoffStep
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
