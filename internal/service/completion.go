package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/ledger"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/observability"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/provider"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/registry"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/repository"
	"go.uber.org/zap"
)

// CompletionEvent is the provider callback payload after a call settles.
// Phone is optional and only used to free the line when the call id is no
// longer tracked.
type CompletionEvent struct {
	CallID  string
	Phone   string
	Outcome domain.OutcomeCode
	At      time.Time
}

// CompletionService settles finished calls: it closes the engagement
// window, applies the outcome to the prospect record, and mirrors the
// disposition to the lead-management system.
type CompletionService struct {
	prospects repository.ProspectRepository
	attempts  *ledger.Ledger
	pending   *registry.Registry
	crm       provider.CRMClient
	locks     *PhoneLocks
	followup  *FollowupService
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewCompletionService(
	prospects repository.ProspectRepository,
	attempts *ledger.Ledger,
	pending *registry.Registry,
	crm provider.CRMClient,
	locks *PhoneLocks,
	logger *zap.Logger,
) (*CompletionService, error) {
	if prospects == nil {
		return nil, fmt.Errorf("prospect repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt ledger is required")
	}
	if pending == nil {
		return nil, fmt.Errorf("pending registry is required")
	}
	if crm == nil {
		return nil, fmt.Errorf("crm client is required")
	}
	if locks == nil {
		locks = NewPhoneLocks()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CompletionService{
		prospects: prospects,
		attempts:  attempts,
		pending:   pending,
		crm:       crm,
		locks:     locks,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *CompletionService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SetFollowup enables follow-up texting after unreached attempts.
func (s *CompletionService) SetFollowup(followup *FollowupService) {
	if s == nil {
		return
	}
	s.followup = followup
}

// HandleCompletion resolves the pending attempt for the event's call id and
// applies its outcome. Events for untracked call ids are tolerated: the
// attempt may already have been swept as stale.
func (s *CompletionService) HandleCompletion(ctx context.Context, event CompletionEvent) error {
	if event.CallID == "" {
		return fmt.Errorf("%w: callId is required", domain.ErrValidation)
	}
	if !event.Outcome.IsValid() {
		return fmt.Errorf("%w: unknown outcome %q", domain.ErrValidation, event.Outcome)
	}

	at := event.At
	if at.IsZero() {
		at = s.now()
	}

	entry, ok := s.pending.Resolve(event.CallID)
	if !ok {
		s.logger.Warn("completion for untracked call",
			zap.String("callId", event.CallID),
			zap.String("outcome", event.Outcome.String()),
		)
		if event.Phone != "" {
			// The provider may post the number in any format; the ledger keys
			// on the canonical form.
			phone := event.Phone
			if canonical, err := domain.NormalizePhone(event.Phone); err == nil {
				phone = canonical
			}
			if settled := s.attempts.SettleByPhone(phone, at); settled {
				s.logger.Info("settled engagement window by phone for untracked call",
					zap.String("callId", event.CallID),
				)
			}
		}
		return nil
	}

	unlock := s.locks.Lock(entry.Phone)
	defer unlock()

	s.attempts.RecordSettle(entry.Phone, event.CallID, at)
	if s.metrics != nil {
		s.metrics.IncDialOutcome(event.Outcome.String(), string(event.Outcome.Class()))
		s.metrics.SetPendingInflight(s.pending.Len())
	}

	record, err := s.prospects.GetByKey(ctx, entry.ProspectID, entry.Phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("completion for missing prospect record",
				zap.String("prospectId", entry.ProspectID),
				zap.String("callId", event.CallID),
			)
			return nil
		}
		return fmt.Errorf("failed to load prospect record: %w", err)
	}

	record.ApplyOutcome(event.Outcome, event.CallID, at)
	record.UpdatedAt = s.now()
	if err := s.prospects.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to persist outcome: %w", err)
	}

	if s.metrics != nil && record.Status == domain.StatusQuarantined {
		s.metrics.IncProspectDropped("hard_failure")
	}

	if s.followup != nil {
		s.followup.MaybeSend(ctx, entry.Phone, event.Outcome)
	}

	crmStatus := domain.CRMStatusForOutcome(event.Outcome)
	if err := s.crm.LogOutcome(ctx, entry.ProspectID, crmStatus); err != nil {
		// The record already holds the outcome; CRM mirroring is best effort.
		s.logger.Warn("failed to mirror outcome to crm",
			zap.String("prospectId", entry.ProspectID),
			zap.String("crmStatus", string(crmStatus)),
			zap.Error(err),
		)
	}

	s.logger.Info("call settled",
		zap.String("prospectId", entry.ProspectID),
		zap.String("callId", event.CallID),
		zap.String("outcome", event.Outcome.String()),
		zap.String("status", record.Status.String()),
	)

	return nil
}

// HandleSwept frees the engagement window for a pending attempt that never
// produced a callback. The record keeps the eligibility the dispatch set.
func (s *CompletionService) HandleSwept(entry registry.Entry) {
	at := s.now()
	s.attempts.RecordSettle(entry.Phone, entry.CallID, at)
	if s.metrics != nil {
		s.metrics.SetPendingInflight(s.pending.Len())
	}
	s.logger.Warn("stale pending attempt settled without outcome",
		zap.String("prospectId", entry.ProspectID),
		zap.String("callId", entry.CallID),
		zap.Time("dispatchedAt", entry.DispatchedAt),
	)
}
