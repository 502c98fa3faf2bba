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

const defaultCRMTimeout = 10 * time.Second

type crmStatusBody struct {
	Status string `json:"status"`
}

// CRMRestClient logs outcomes to the lead-management system.
type CRMRestClient struct {
	client  *resty.Client
	baseURL string
}

func NewCRMRestClient(baseURL string, timeout time.Duration) (*CRMRestClient, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultCRMTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewCRMRestClientWithClient(baseURL, client)
}

func NewCRMRestClientWithClient(baseURL string, client *resty.Client) (*CRMRestClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("crm base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid crm base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultCRMTimeout)
	}
	client.SetRetryCount(0)

	return &CRMRestClient{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (c *CRMRestClient) LogOutcome(ctx context.Context, prospectID string, status domain.CRMStatus) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("crm client is not initialized")
	}
	if strings.TrimSpace(prospectID) == "" {
		return fmt.Errorf("%w: prospect id is required", domain.ErrValidation)
	}

	endpoint := fmt.Sprintf("%s/%s/status", c.baseURL, url.PathEscape(prospectID))

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(crmStatusBody{Status: status.String()}).
		Post(endpoint)
	if err != nil {
		return &ProviderError{
			Provider:  "crm",
			Message:   "status update failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &ProviderError{
			Provider:  "crm",
			Message:   "empty status update response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &ProviderError{
		Provider:   "crm",
		StatusCode: statusCode,
		Message:    statusErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}
