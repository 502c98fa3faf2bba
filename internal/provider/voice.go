package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
)

const defaultVoiceTimeout = 10 * time.Second

type dialRequestBody struct {
	PhoneNumber    string `json:"phoneNumber"`
	ProspectID     string `json:"prospectId"`
	ListID         string `json:"listId"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	CallbackURL    string `json:"callbackUrl"`
	MaxDurationSec int    `json:"maxDurationSec,omitempty"`
}

type dialResponseBody struct {
	CallID string `json:"callId"`
}

// VoiceClient dispatches calls to the voice provider's dial API. The
// provider owns the call's lifetime; only the dispatch itself is bounded.
type VoiceClient struct {
	client   *resty.Client
	endpoint string
}

func NewVoiceClient(endpoint, apiKey string, timeout time.Duration) (*VoiceClient, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultVoiceTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	if strings.TrimSpace(apiKey) != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return NewVoiceClientWithClient(endpoint, client)
}

func NewVoiceClientWithClient(endpoint string, client *resty.Client) (*VoiceClient, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("voice endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid voice endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultVoiceTimeout)
	}
	client.SetRetryCount(0)

	return &VoiceClient{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (c *VoiceClient) Dispatch(ctx context.Context, req DialRequest) (*DialResponse, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("voice client is not initialized")
	}
	if !domain.IsCanonicalPhone(req.Phone) {
		return nil, fmt.Errorf("%w: phone %q is not canonical", domain.ErrValidation, req.Phone)
	}
	if strings.TrimSpace(req.CallbackURL) == "" {
		return nil, fmt.Errorf("%w: callback url is required", domain.ErrValidation)
	}

	body := dialRequestBody{
		PhoneNumber:    req.Phone,
		ProspectID:     req.ProspectID,
		ListID:         req.ListID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		CallbackURL:    req.CallbackURL,
		MaxDurationSec: req.MaxDurationSec,
	}

	var parsed dialResponseBody
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		Post(c.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Provider:  "voice",
			Message:   "dial request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Provider:  "voice",
			Message:   "empty dial response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		callID := strings.TrimSpace(parsed.CallID)
		if callID == "" {
			callID = dispatchIDFromHeaders(response)
		}
		if callID == "" {
			return nil, &ProviderError{
				Provider:  "voice",
				Message:   "dial response missing call id",
				Transient: true,
			}
		}
		return &DialResponse{CallID: callID, StatusCode: statusCode}, nil
	}

	return nil, &ProviderError{
		Provider:   "voice",
		StatusCode: statusCode,
		Message:    statusErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func statusErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func dispatchIDFromHeaders(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Call-ID", "X-Call-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
