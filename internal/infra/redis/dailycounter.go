package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/ledger"
	goredis "github.com/redis/go-redis/v9"
)

// counterTTL keeps day keys through the following day so late completions
// and clock skew never read a vanished counter mid-day.
const counterTTL = 48 * time.Hour

var incrWithExpireScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

var _ ledger.DailyCounter = (*DailyCounter)(nil)

// DailyCounter is the shared per-phone daily attempt counter. Backed by
// redis so every origination path, not just this process, counts toward the
// same daily ceiling.
type DailyCounter struct {
	client *goredis.Client
	script *goredis.Script
}

func NewDailyCounter(client *goredis.Client) (*DailyCounter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &DailyCounter{
		client: client,
		script: incrWithExpireScript,
	}, nil
}

func dailyKey(phone, day string) string {
	return fmt.Sprintf("dial:daily:%s:%s", phone, day)
}

func (c *DailyCounter) Incr(ctx context.Context, phone, day string) (int, error) {
	if !domain.IsCanonicalPhone(phone) {
		return 0, fmt.Errorf("%w: phone %q is not canonical", domain.ErrValidation, phone)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	count, err := c.script.Run(ctx, c.client, []string{dailyKey(phone, day)}, int(counterTTL.Seconds())).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to increment daily counter: %w", err)
	}
	return count, nil
}

func (c *DailyCounter) Count(ctx context.Context, phone, day string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	count, err := c.client.Get(ctx, dailyKey(phone, day)).Int()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily counter: %w", err)
	}
	return count, nil
}
