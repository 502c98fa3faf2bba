package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"go.uber.org/zap"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int)}
}

func (f *fakeCounter) Incr(ctx context.Context, phone, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[phone+"|"+day]++
	return f.counts[phone+"|"+day], nil
}

func (f *fakeCounter) Count(ctx context.Context, phone, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[phone+"|"+day], nil
}

const testPhone = "+15551234567"

func TestRecordStartRejectsMalformedPhone(t *testing.T) {
	t.Parallel()

	l := New(nil, time.Minute, time.UTC, zap.NewNop())

	err := l.RecordStart(context.Background(), "555-1234", "c1", time.Now())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("RecordStart() error = %v, want ErrValidation", err)
	}

	err = l.RecordStart(context.Background(), testPhone, "", time.Now())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("RecordStart() with empty call id error = %v, want ErrValidation", err)
	}
}

func TestIsEngagedOpenWindow(t *testing.T) {
	t.Parallel()

	l := New(nil, 90*time.Second, time.UTC, zap.NewNop())
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := l.RecordStart(context.Background(), testPhone, "c1", start); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}

	if !l.IsEngaged(testPhone, start.Add(10*time.Minute)) {
		t.Fatal("unsettled attempt should keep the number engaged")
	}
	if l.IsEngaged("+15559998888", start.Add(time.Minute)) {
		t.Fatal("unrelated number should not be engaged")
	}
}

func TestIsEngagedPostTransferMargin(t *testing.T) {
	t.Parallel()

	margin := 90 * time.Second
	l := New(nil, margin, time.UTC, zap.NewNop())
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	settle := start.Add(30 * time.Second)

	if err := l.RecordStart(context.Background(), testPhone, "c1", start); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}
	l.RecordSettle(testPhone, "c1", settle)

	// A transfer clears the notification while the customer is still on the
	// line: the margin must keep the number engaged past the settle time.
	if !l.IsEngaged(testPhone, settle.Add(margin-time.Second)) {
		t.Fatal("number should stay engaged within the post-transfer margin")
	}
	if l.IsEngaged(testPhone, settle.Add(margin)) {
		t.Fatal("number should be free once the margin elapses")
	}
}

func TestRecordSettleUnknownCallIDTolerated(t *testing.T) {
	t.Parallel()

	l := New(nil, time.Minute, time.UTC, zap.NewNop())
	// Must not panic or fail; completion races against restarts are expected.
	l.RecordSettle(testPhone, "never-dispatched", time.Now())
}

func TestSettleByPhoneClosesOldestOpenWindow(t *testing.T) {
	t.Parallel()

	l := New(nil, time.Minute, time.UTC, zap.NewNop())
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := l.RecordStart(context.Background(), testPhone, "c1", start); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}

	if !l.SettleByPhone(testPhone, start.Add(time.Minute)) {
		t.Fatal("SettleByPhone() should settle the open window")
	}
	if l.SettleByPhone(testPhone, start.Add(2*time.Minute)) {
		t.Fatal("SettleByPhone() should report no remaining open window")
	}
	if l.IsEngaged(testPhone, start.Add(10*time.Minute)) {
		t.Fatal("number should be free after settle plus margin")
	}
}

func TestCountTodayUsesSharedCounter(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	l := New(counter, time.Minute, time.UTC, zap.NewNop())
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	// Another origination path dialed this number twice today.
	if _, err := counter.Incr(context.Background(), testPhone, "2026-03-02"); err != nil {
		t.Fatalf("Incr() error = %v", err)
	}
	if _, err := counter.Incr(context.Background(), testPhone, "2026-03-02"); err != nil {
		t.Fatalf("Incr() error = %v", err)
	}

	if err := l.RecordStart(context.Background(), testPhone, "c1", now); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}

	if got := l.CountToday(context.Background(), testPhone, now); got != 3 {
		t.Fatalf("CountToday() = %d, want 3 (shared counter covers all paths)", got)
	}
}

func TestCountTodayFallsBackToMemoryOnCounterError(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	l := New(counter, time.Minute, time.UTC, zap.NewNop())
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := l.RecordStart(context.Background(), testPhone, "c1", now); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}
	counter.err = errors.New("redis down")

	if got := l.CountToday(context.Background(), testPhone, now); got != 1 {
		t.Fatalf("CountToday() = %d, want 1 from in-memory windows", got)
	}
}

func TestCountTodayExcludesPriorDays(t *testing.T) {
	t.Parallel()

	l := New(nil, time.Minute, time.UTC, zap.NewNop())
	yesterday := time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC)
	today := time.Date(2026, 3, 2, 0, 10, 0, 0, time.UTC)

	if err := l.RecordStart(context.Background(), testPhone, "c1", yesterday); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}
	l.RecordSettle(testPhone, "c1", yesterday.Add(time.Minute))
	if err := l.RecordStart(context.Background(), testPhone, "c2", today); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}

	if got := l.CountToday(context.Background(), testPhone, today); got != 1 {
		t.Fatalf("CountToday() = %d, want 1 after day rollover", got)
	}
}

func TestPruneBeforeKeepsOpenWindows(t *testing.T) {
	t.Parallel()

	l := New(nil, time.Minute, time.UTC, zap.NewNop())
	yesterday := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if err := l.RecordStart(context.Background(), testPhone, "c1", yesterday); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}
	if err := l.RecordStart(context.Background(), "+15559998888", "c2", yesterday); err != nil {
		t.Fatalf("RecordStart() error = %v", err)
	}
	l.RecordSettle("+15559998888", "c2", yesterday.Add(time.Minute))

	l.PruneBefore(today)

	// The open window from yesterday must survive pruning.
	if !l.IsEngaged(testPhone, today) {
		t.Fatal("open window should survive pruning")
	}
	if l.IsEngaged("+15559998888", today) {
		t.Fatal("settled prior-day window should be pruned")
	}
}

func TestLedgerConcurrentAccess(t *testing.T) {
	t.Parallel()

	l := New(newFakeCounter(), time.Minute, time.UTC, zap.NewNop())
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	phones := []string{"+15551230001", "+15551230002", "+15551230003", "+15551230004"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			phone := phones[i%len(phones)]
			callID := string(rune('a' + i))
			if err := l.RecordStart(context.Background(), phone, callID, now); err != nil {
				t.Errorf("RecordStart() error = %v", err)
				return
			}
			l.IsEngaged(phone, now)
			l.RecordSettle(phone, callID, now.Add(time.Second))
			l.CountToday(context.Background(), phone, now)
		}()
	}
	wg.Wait()

	for _, phone := range phones {
		if got := l.CountToday(context.Background(), phone, now); got != 2 {
			t.Fatalf("CountToday(%s) = %d, want 2", phone, got)
		}
	}
}
