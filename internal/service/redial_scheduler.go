package service

import (
	"context"
	"fmt"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/ledger"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/observability"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/pacing"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/provider"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/registry"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultScanInterval      = 5 * time.Minute
	defaultScanLimit         = 500
	defaultBlockedRetryDelta = time.Minute
	defaultDispatchTimeout   = 10 * time.Second
	defaultMaxTotalAttempts  = 7
	defaultMaxCallsPerDay    = 4
)

// SchedulerConfig carries the dial-cadence policy for a RedialScheduler.
type SchedulerConfig struct {
	MaxTotalAttempts   int
	MaxCallsPerDay     int
	BackoffTable       []time.Duration
	BackoffFloor       time.Duration
	BusinessHoursStart int
	BusinessHoursEnd   int
	Location           *time.Location
	ScanInterval       time.Duration
	ScanLimit          int
	BlockedRetryDelta  time.Duration
	CallbackURL        string
	DispatchTimeout    time.Duration
}

// CycleStats summarizes one pass over the dispatchable records.
type CycleStats struct {
	Scanned            int
	Dispatched         int
	DroppedMaxAttempts int
	DroppedDailyCap    int
	SkippedNotDue      int
	SkippedSafety      int
	SkippedPacing      int
	Errored            int
}

// RedialScheduler periodically scans dispatchable prospect records and hands
// the due, safe, and paced ones to the voice provider.
type RedialScheduler struct {
	prospects repository.ProspectRepository
	attempts  *ledger.Ledger
	governor  *pacing.Governor
	pending   *registry.Registry
	dialer    provider.VoiceDialer
	locks     *PhoneLocks
	logger    *zap.Logger
	metrics   *observability.Metrics
	cfg       SchedulerConfig
	now       func() time.Time
}

func NewRedialScheduler(
	prospects repository.ProspectRepository,
	attempts *ledger.Ledger,
	governor *pacing.Governor,
	pending *registry.Registry,
	dialer provider.VoiceDialer,
	locks *PhoneLocks,
	cfg SchedulerConfig,
	logger *zap.Logger,
) (*RedialScheduler, error) {
	if prospects == nil {
		return nil, fmt.Errorf("prospect repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt ledger is required")
	}
	if governor == nil {
		return nil, fmt.Errorf("rate governor is required")
	}
	if pending == nil {
		return nil, fmt.Errorf("pending registry is required")
	}
	if dialer == nil {
		return nil, fmt.Errorf("voice dialer is required")
	}
	if locks == nil {
		locks = NewPhoneLocks()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTotalAttempts <= 0 {
		cfg.MaxTotalAttempts = defaultMaxTotalAttempts
	}
	if cfg.MaxCallsPerDay <= 0 {
		cfg.MaxCallsPerDay = defaultMaxCallsPerDay
	}
	if len(cfg.BackoffTable) == 0 {
		return nil, fmt.Errorf("backoff table is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = defaultScanLimit
	}
	if cfg.BlockedRetryDelta <= 0 {
		cfg.BlockedRetryDelta = defaultBlockedRetryDelta
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}

	return &RedialScheduler{
		prospects: prospects,
		attempts:  attempts,
		governor:  governor,
		pending:   pending,
		dialer:    dialer,
		locks:     locks,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

func (s *RedialScheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs scheduling cycles until context cancellation.
func (s *RedialScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("initial scheduling cycle failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scheduling cycle failed", zap.Error(err))
			}
		}
	}
}

// RunCycle performs one scan-and-dispatch pass and reports what it did.
func (s *RedialScheduler) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	cycleStart := s.now()

	if !s.withinBusinessHours(cycleStart) {
		s.logger.Debug("outside business hours, cycle skipped",
			zap.Int("hour", cycleStart.In(s.cfg.Location).Hour()),
		)
		if s.metrics != nil {
			s.metrics.IncCycleSkip("business_hours")
		}
		return stats, nil
	}

	s.attempts.PruneBefore(cycleStart)
	s.governor.Prune(cycleStart)

	today := cycleStart.In(s.cfg.Location).Format(domain.DayKey)
	if reset, err := s.prospects.ResetDailyCounts(ctx, today); err != nil {
		s.logger.Warn("daily counter reset failed", zap.Error(err))
	} else if reset > 0 {
		s.logger.Info("daily counters rolled over", zap.Int64("records", reset))
	}

	// Only records created inside today's processing window are scanned;
	// older records are not auto-repicked.
	records, err := s.prospects.ListDispatchable(ctx, s.windowStart(cycleStart), s.cfg.ScanLimit)
	if err != nil {
		return stats, fmt.Errorf("failed to list dispatchable records: %w", err)
	}
	stats.Scanned = len(records)

	for i := range records {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		s.processRecord(ctx, &records[i], &stats)
	}

	if s.metrics != nil {
		s.metrics.ObserveCycleDuration(s.now().Sub(cycleStart))
		s.metrics.SetPendingInflight(s.pending.Len())
	}

	s.logger.Info("scheduling cycle finished",
		zap.Int("scanned", stats.Scanned),
		zap.Int("dispatched", stats.Dispatched),
		zap.Int("droppedMaxAttempts", stats.DroppedMaxAttempts),
		zap.Int("droppedDailyCap", stats.DroppedDailyCap),
		zap.Int("skippedNotDue", stats.SkippedNotDue),
		zap.Int("skippedSafety", stats.SkippedSafety),
		zap.Int("skippedPacing", stats.SkippedPacing),
		zap.Int("errored", stats.Errored),
	)

	return stats, nil
}

func (s *RedialScheduler) processRecord(ctx context.Context, record *domain.ProspectRecord, stats *CycleStats) {
	unlock := s.locks.Lock(record.Phone)
	defer unlock()

	now := s.now()
	record.RollDay(now, s.cfg.Location)

	if record.TotalAttempts >= s.cfg.MaxTotalAttempts {
		record.Status = domain.StatusMaxAttemptsReached
		s.persist(ctx, record, stats)
		stats.DroppedMaxAttempts++
		if s.metrics != nil {
			s.metrics.IncProspectDropped("max_attempts")
		}
		s.logger.Info("prospect exhausted total attempt budget",
			zap.String("prospectId", record.ProspectID),
			zap.Int("totalAttempts", record.TotalAttempts),
		)
		return
	}

	// The shared counter sees dials from every origination path, the local
	// counter survives counter outages. Cap on whichever is higher.
	attemptsToday := s.attempts.CountToday(ctx, record.Phone, now)
	if record.AttemptsToday > attemptsToday {
		attemptsToday = record.AttemptsToday
	}
	if attemptsToday >= s.cfg.MaxCallsPerDay {
		record.Status = domain.StatusDailyCapReached
		s.persist(ctx, record, stats)
		stats.DroppedDailyCap++
		if s.metrics != nil {
			s.metrics.IncProspectDropped("daily_cap")
		}
		return
	}

	if record.NextEligibleAt != nil && now.Before(*record.NextEligibleAt) {
		stats.SkippedNotDue++
		if s.metrics != nil {
			s.metrics.IncCycleSkip("not_due")
		}
		return
	}

	if s.attempts.IsEngaged(record.Phone, now) || s.governor.TooSoonForNumber(record.Phone, now) {
		next := now.Add(s.cfg.BlockedRetryDelta)
		record.NextEligibleAt = &next
		s.persist(ctx, record, stats)
		stats.SkippedSafety++
		if s.metrics != nil {
			s.metrics.IncCycleSkip("safety")
		}
		return
	}

	if !s.governor.TryAcquire(now) {
		next := now.Add(s.cfg.BlockedRetryDelta)
		record.NextEligibleAt = &next
		s.persist(ctx, record, stats)
		stats.SkippedPacing++
		if s.metrics != nil {
			s.metrics.IncCycleSkip("governor")
		}
		return
	}

	s.dispatch(ctx, record, now, stats)
}

func (s *RedialScheduler) dispatch(ctx context.Context, record *domain.ProspectRecord, now time.Time, stats *CycleStats) {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()

	dispatchStart := s.now()
	resp, err := s.dialer.Dispatch(dialCtx, provider.DialRequest{
		Phone:       record.Phone,
		ProspectID:  record.ProspectID,
		ListID:      record.ListID,
		FirstName:   record.FirstName,
		LastName:    record.LastName,
		CallbackURL: s.cfg.CallbackURL,
	})
	if s.metrics != nil {
		s.metrics.ObserveDispatchDuration(s.now().Sub(dispatchStart))
	}

	if err != nil {
		stats.Errored++
		next := now.Add(s.cfg.BlockedRetryDelta)
		record.NextEligibleAt = &next
		s.persist(ctx, record, stats)
		s.logger.Error("voice dispatch failed",
			zap.String("prospectId", record.ProspectID),
			zap.Bool("transient", provider.IsTransient(err)),
			zap.Error(err),
		)
		return
	}

	s.pending.Register(resp.CallID, record.ProspectID, record.Phone, now)
	if err := s.attempts.RecordStart(ctx, record.Phone, resp.CallID, now); err != nil {
		s.logger.Warn("failed to open engagement window",
			zap.String("callId", resp.CallID),
			zap.Error(err),
		)
	}
	s.governor.NoteDispatch(record.Phone, now)

	record.MarkDispatched(resp.CallID, now, s.cfg.Location, s.nextDelay(record.TotalAttempts+1))
	s.persist(ctx, record, stats)

	stats.Dispatched++
	if s.metrics != nil {
		s.metrics.IncDialDispatched(record.ListID)
	}
	s.logger.Info("dial dispatched",
		zap.String("prospectId", record.ProspectID),
		zap.String("callId", resp.CallID),
		zap.Int("attempt", record.TotalAttempts),
	)
}

// nextDelay computes the wait before the attempt after attemptCount, using
// the backoff table indexed by completed attempts and clamped to the floor.
func (s *RedialScheduler) nextDelay(attemptCount int) time.Duration {
	if attemptCount < 1 {
		attemptCount = 1
	}
	idx := attemptCount - 1
	if idx >= len(s.cfg.BackoffTable) {
		idx = len(s.cfg.BackoffTable) - 1
	}

	delay := s.cfg.BackoffTable[idx]
	if delay < s.cfg.BackoffFloor {
		delay = s.cfg.BackoffFloor
	}
	return delay
}

// windowStart is local midnight of the day containing now.
func (s *RedialScheduler) windowStart(now time.Time) time.Time {
	local := now.In(s.cfg.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
}

func (s *RedialScheduler) withinBusinessHours(now time.Time) bool {
	start := s.cfg.BusinessHoursStart
	end := s.cfg.BusinessHoursEnd
	if end <= start {
		return true
	}
	hour := now.In(s.cfg.Location).Hour()
	return hour >= start && hour < end
}

func (s *RedialScheduler) persist(ctx context.Context, record *domain.ProspectRecord, stats *CycleStats) {
	record.UpdatedAt = s.now()
	if err := s.prospects.Update(ctx, record); err != nil {
		stats.Errored++
		s.logger.Error("failed to persist prospect record",
			zap.String("prospectId", record.ProspectID),
			zap.Error(err),
		)
	}
}
