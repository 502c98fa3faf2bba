package provider

import (
	"context"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
)

// DialRequest carries everything the voice provider needs to place a call.
type DialRequest struct {
	Phone          string
	ProspectID     string
	ListID         string
	FirstName      string
	LastName       string
	CallbackURL    string
	MaxDurationSec int
}

// DialResponse is the provider's acknowledgment of a dispatched call. The
// call itself completes later via the callback.
type DialResponse struct {
	CallID     string
	StatusCode int
}

// VoiceDialer is the outbound call dispatch port.
type VoiceDialer interface {
	Dispatch(ctx context.Context, req DialRequest) (*DialResponse, error)
}

// CRMClient logs attempt outcomes against the lead-management system.
type CRMClient interface {
	LogOutcome(ctx context.Context, prospectID string, status domain.CRMStatus) error
}

// SMSSender delivers follow-up texts after unreached attempts.
type SMSSender interface {
	SendText(ctx context.Context, phone, body string) error
}
