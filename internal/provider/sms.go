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

const defaultSMSTimeout = 10 * time.Second

type smsRequestBody struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SMSRestClient sends follow-up texts through an HTTP messaging gateway.
type SMSRestClient struct {
	client   *resty.Client
	endpoint string
}

func NewSMSRestClient(endpoint string, timeout time.Duration) (*SMSRestClient, error) {
	if timeout <= 0 {
		timeout = defaultSMSTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewSMSRestClientWithClient(endpoint, client)
}

func NewSMSRestClientWithClient(endpoint string, client *resty.Client) (*SMSRestClient, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("sms endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid sms endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSMSTimeout)
	}
	client.SetRetryCount(0)

	return &SMSRestClient{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (c *SMSRestClient) SendText(ctx context.Context, phone, body string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("sms client is not initialized")
	}
	if !domain.IsCanonicalPhone(phone) {
		return fmt.Errorf("%w: phone %q is not canonical", domain.ErrValidation, phone)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: sms body is required", domain.ErrValidation)
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(smsRequestBody{To: phone, Body: body}).
		Post(c.endpoint)
	if err != nil {
		return &ProviderError{
			Provider:  "sms",
			Message:   "sms request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &ProviderError{
		Provider:   "sms",
		StatusCode: statusCode,
		Message:    statusErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}
