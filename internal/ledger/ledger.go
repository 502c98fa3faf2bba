// Package ledger tracks today's dial attempts per phone number. It is the
// sole authority for "is this number engaged" and "how many attempts today".
package ledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"go.uber.org/zap"
)

const shardCount = 32

// DailyCounter is the shared per-phone daily attempt counter. Backing it
// with an external store lets every origination path count toward the same
// daily ceiling, not just attempts this process dispatched.
type DailyCounter interface {
	Incr(ctx context.Context, phone, day string) (int, error)
	Count(ctx context.Context, phone, day string) (int, error)
}

type attemptWindow struct {
	callID    string
	start     time.Time
	settledAt *time.Time
}

type shard struct {
	mu      sync.Mutex
	byPhone map[string][]*attemptWindow
}

// Ledger keeps per-phone attempt windows with per-shard locking so scans of
// unrelated numbers never serialize behind a busy one.
type Ledger struct {
	shards  [shardCount]*shard
	counter DailyCounter
	margin  time.Duration
	loc     *time.Location
	logger  *zap.Logger
}

func New(counter DailyCounter, margin time.Duration, loc *time.Location, logger *zap.Logger) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Ledger{
		counter: counter,
		margin:  margin,
		loc:     loc,
		logger:  logger,
	}
	for i := range l.shards {
		l.shards[i] = &shard{byPhone: make(map[string][]*attemptWindow)}
	}
	return l
}

func (l *Ledger) shardFor(phone string) *shard {
	h := fnv.New32a()
	h.Write([]byte(phone))
	return l.shards[h.Sum32()%shardCount]
}

// RecordStart opens an attempt window for phone. Malformed numbers are
// rejected rather than silently accepted.
func (l *Ledger) RecordStart(ctx context.Context, phone, callID string, t time.Time) error {
	if !domain.IsCanonicalPhone(phone) {
		return fmt.Errorf("%w: phone %q is not canonical", domain.ErrValidation, phone)
	}
	if callID == "" {
		return fmt.Errorf("%w: call id is required", domain.ErrValidation)
	}

	s := l.shardFor(phone)
	s.mu.Lock()
	s.byPhone[phone] = append(s.byPhone[phone], &attemptWindow{callID: callID, start: t})
	s.mu.Unlock()

	if l.counter != nil {
		day := t.In(l.loc).Format(domain.DayKey)
		if _, err := l.counter.Incr(ctx, phone, day); err != nil {
			l.logger.Warn("daily counter increment failed, in-memory count still holds",
				zap.String("phone", phone),
				zap.Error(err),
			)
		}
	}

	return nil
}

// RecordSettle closes the attempt window for callID. Unknown call ids are
// tolerated: completions race against process restarts.
func (l *Ledger) RecordSettle(phone, callID string, t time.Time) {
	s := l.shardFor(phone)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.byPhone[phone] {
		if w.callID == callID && w.settledAt == nil {
			settled := t
			w.settledAt = &settled
			return
		}
	}

	l.logger.Info("settle for unknown attempt, ignoring",
		zap.String("phone", phone),
		zap.String("callId", callID),
	)
}

// SettleByPhone closes the oldest open window for phone, used when a
// completion arrives whose call id was already swept from the registry.
func (l *Ledger) SettleByPhone(phone string, t time.Time) bool {
	s := l.shardFor(phone)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.byPhone[phone] {
		if w.settledAt == nil {
			settled := t
			w.settledAt = &settled
			return true
		}
	}
	return false
}

// IsEngaged reports whether phone has an attempt whose window still contains
// now. An attempt stays engaged from dispatch until its settle time plus the
// post-transfer margin: a transfer clears the completion notification while
// the customer is still on the line, so the margin must outlive it.
func (l *Ledger) IsEngaged(phone string, now time.Time) bool {
	s := l.shardFor(phone)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.byPhone[phone] {
		if now.Before(w.start) {
			continue
		}
		if w.settledAt == nil {
			return true
		}
		if now.Before(w.settledAt.Add(l.margin)) {
			return true
		}
	}
	return false
}

// CountToday returns the attempts whose start falls on now's local calendar
// day. The shared counter is authoritative; on counter failure the in-memory
// windows serve as the lower bound.
func (l *Ledger) CountToday(ctx context.Context, phone string, now time.Time) int {
	day := now.In(l.loc).Format(domain.DayKey)

	memory := l.countInMemory(phone, day)

	if l.counter != nil {
		count, err := l.counter.Count(ctx, phone, day)
		if err != nil {
			l.logger.Warn("daily counter read failed, using in-memory count",
				zap.String("phone", phone),
				zap.Error(err),
			)
		} else if count > memory {
			return count
		}
	}

	return memory
}

func (l *Ledger) countInMemory(phone, day string) int {
	s := l.shardFor(phone)
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, w := range s.byPhone[phone] {
		if w.start.In(l.loc).Format(domain.DayKey) == day {
			count++
		}
	}
	return count
}

// PruneBefore drops settled windows from days before now's local day,
// bounding memory across day rollovers. Open windows are kept regardless.
func (l *Ledger) PruneBefore(now time.Time) {
	today := now.In(l.loc).Format(domain.DayKey)

	for _, s := range l.shards {
		s.mu.Lock()
		for phone, windows := range s.byPhone {
			kept := windows[:0]
			for _, w := range windows {
				if w.settledAt == nil || w.start.In(l.loc).Format(domain.DayKey) == today {
					kept = append(kept, w)
				}
			}
			if len(kept) == 0 {
				delete(s.byPhone, phone)
			} else {
				s.byPhone[phone] = kept
			}
		}
		s.mu.Unlock()
	}
}
