package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/observability"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/provider"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/ratelimit"
	"go.uber.org/zap"
)

// FollowupService texts a short notice after attempts that rang out without
// reaching the prospect. Everything here is best effort: a pacing rejection
// or gateway failure skips the text, never the outcome handling.
type FollowupService struct {
	sms     provider.SMSSender
	limiter ratelimit.SMSLimiter
	text    string
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewFollowupService(
	sms provider.SMSSender,
	limiter ratelimit.SMSLimiter,
	text string,
	logger *zap.Logger,
) (*FollowupService, error) {
	if sms == nil {
		return nil, fmt.Errorf("sms sender is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("sms limiter is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("follow-up text is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FollowupService{
		sms:     sms,
		limiter: limiter,
		text:    text,
		logger:  logger,
	}, nil
}

func (s *FollowupService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// MaybeSend texts phone when the outcome means nobody picked up.
func (s *FollowupService) MaybeSend(ctx context.Context, phone string, outcome domain.OutcomeCode) {
	switch outcome {
	case domain.OutcomeVoicemail, domain.OutcomeNoAnswer:
	default:
		return
	}

	admitted, err := s.limiter.Allow(ctx, phone)
	if err != nil {
		s.logger.Warn("sms limiter check failed, follow-up skipped",
			zap.String("phone", phone),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.IncFollowupText("limiter_error")
		}
		return
	}
	if !admitted {
		s.logger.Debug("follow-up text suppressed by pacing",
			zap.String("phone", phone),
		)
		if s.metrics != nil {
			s.metrics.IncFollowupText("suppressed")
		}
		return
	}

	if err := s.sms.SendText(ctx, phone, s.text); err != nil {
		s.logger.Warn("follow-up text failed",
			zap.String("phone", phone),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.IncFollowupText("failed")
		}
		return
	}

	if s.metrics != nil {
		s.metrics.IncFollowupText("sent")
	}
	s.logger.Info("follow-up text sent", zap.String("phone", phone))
}
