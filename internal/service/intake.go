package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/observability"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/queue"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/repository"
	"go.uber.org/zap"
)

// IntakeService consumes prospect announcements from the broker, normalizes
// their phone numbers, and seeds pending records. Messages that cannot be
// normalized are quarantined instead of retried.
type IntakeService struct {
	prospects  repository.ProspectRepository
	quarantine repository.QuarantineRepository
	consumer   queue.Consumer
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewIntakeService(
	prospects repository.ProspectRepository,
	quarantine repository.QuarantineRepository,
	consumer queue.Consumer,
	logger *zap.Logger,
) (*IntakeService, error) {
	if prospects == nil {
		return nil, fmt.Errorf("prospect repository is required")
	}
	if quarantine == nil {
		return nil, fmt.Errorf("quarantine repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IntakeService{
		prospects:  prospects,
		quarantine: quarantine,
		consumer:   consumer,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *IntakeService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Submit validates and stores a prospect announced over the API. Unlike the
// broker path, malformed input is reported to the caller instead of being
// quarantined.
func (s *IntakeService) Submit(ctx context.Context, msg queue.ProspectMessage) (*domain.ProspectRecord, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	canonical, err := domain.NormalizePhone(msg.Phone)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &domain.ProspectRecord{
		ProspectID: msg.ProspectID,
		Phone:      canonical,
		ListID:     msg.ListID,
		FirstName:  msg.FirstName,
		LastName:   msg.LastName,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.prospects.Create(ctx, record); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncIntake("accepted")
	}
	s.logger.Info("prospect accepted for redial",
		zap.String("prospectId", record.ProspectID),
		zap.String("listId", record.ListID),
	)
	return record, nil
}

// Start consumes the intake queue until context cancellation.
func (s *IntakeService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.consumer.Consume(ctx, queue.IntakeQueueName, s.processMessage)
}

func (s *IntakeService) processMessage(ctx context.Context, msg queue.ProspectMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	logger := observability.WithContextLogger(s.logger, ctx)

	canonical, err := domain.NormalizePhone(msg.Phone)
	if err != nil {
		if qerr := s.quarantineMessage(ctx, msg, err); qerr != nil {
			return fmt.Errorf("failed to quarantine malformed prospect: %w", qerr)
		}
		if s.metrics != nil {
			s.metrics.IncIntake("quarantined")
		}
		logger.Warn("prospect quarantined on intake",
			zap.String("prospectId", msg.ProspectID),
			zap.String("listId", msg.ListID),
			zap.Error(err),
		)
		return nil
	}

	now := s.now()
	record := &domain.ProspectRecord{
		ProspectID: msg.ProspectID,
		Phone:      canonical,
		ListID:     msg.ListID,
		FirstName:  msg.FirstName,
		LastName:   msg.LastName,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := record.Validate(); err != nil {
		if qerr := s.quarantineMessage(ctx, msg, err); qerr != nil {
			return fmt.Errorf("failed to quarantine invalid prospect: %w", qerr)
		}
		if s.metrics != nil {
			s.metrics.IncIntake("quarantined")
		}
		logger.Warn("prospect rejected by validation",
			zap.String("prospectId", msg.ProspectID),
			zap.Error(err),
		)
		return nil
	}

	if err := s.prospects.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			if s.metrics != nil {
				s.metrics.IncIntake("duplicate")
			}
			logger.Info("prospect already tracked, intake ignored",
				zap.String("prospectId", msg.ProspectID),
			)
			return nil
		}
		return fmt.Errorf("failed to create prospect record: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncIntake("accepted")
	}
	logger.Info("prospect accepted for redial",
		zap.String("prospectId", msg.ProspectID),
		zap.String("listId", msg.ListID),
	)
	return nil
}

func (s *IntakeService) quarantineMessage(ctx context.Context, msg queue.ProspectMessage, cause error) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		payload = nil
	}

	return s.quarantine.Create(ctx, &repository.QuarantinedProspect{
		ProspectID: msg.ProspectID,
		RawPhone:   msg.Phone,
		ListID:     msg.ListID,
		Reason:     cause.Error(),
		Payload:    payload,
		CreatedAt:  s.now(),
	})
}
