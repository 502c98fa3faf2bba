package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
)

func TestVoiceClientDispatchSuccess(t *testing.T) {
	t.Parallel()

	var gotBody dialRequestBody

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q, want bearer test-key", auth)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"callId":"call-abc-1"}`))
	}))
	defer server.Close()

	c, err := NewVoiceClient(server.URL, "test-key", 5*time.Second)
	if err != nil {
		t.Fatalf("NewVoiceClient() error = %v", err)
	}

	resp, err := c.Dispatch(context.Background(), DialRequest{
		Phone:       "+15551234567",
		ProspectID:  "p-1",
		ListID:      "list-7",
		FirstName:   "Ada",
		CallbackURL: "https://orchestrator.example.com/v1/calls/callback",
	})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}

	if resp.CallID != "call-abc-1" {
		t.Fatalf("CallID = %q, want call-abc-1", resp.CallID)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if gotBody.PhoneNumber != "+15551234567" {
		t.Fatalf("request.phoneNumber = %q, want +15551234567", gotBody.PhoneNumber)
	}
	if gotBody.CallbackURL == "" {
		t.Fatal("request.callbackUrl should be set")
	}
}

func TestVoiceClientDispatchRejectsMalformedPhone(t *testing.T) {
	t.Parallel()

	c, err := NewVoiceClient("https://voice.example.com/v1/calls", "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewVoiceClient() error = %v", err)
	}

	_, err = c.Dispatch(context.Background(), DialRequest{
		Phone:       "555-1234",
		CallbackURL: "https://orchestrator.example.com/cb",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Dispatch() error = %v, want ErrValidation", err)
	}
}

func TestVoiceClientDispatchStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "server error is transient", statusCode: http.StatusBadGateway, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "unauthorized is permanent", statusCode: http.StatusUnauthorized, wantTransient: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			c, err := NewVoiceClient(server.URL, "", 5*time.Second)
			if err != nil {
				t.Fatalf("NewVoiceClient() error = %v", err)
			}

			_, err = c.Dispatch(context.Background(), DialRequest{
				Phone:       "+15551234567",
				CallbackURL: "https://orchestrator.example.com/cb",
			})
			if err == nil {
				t.Fatal("Dispatch() should fail for non-2xx status")
			}

			var providerErr *ProviderError
			if !errors.As(err, &providerErr) {
				t.Fatalf("error type = %T, want *ProviderError", err)
			}
			if providerErr.Transient != tc.wantTransient {
				t.Fatalf("Transient = %v, want %v", providerErr.Transient, tc.wantTransient)
			}
			if IsTransient(err) != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", IsTransient(err), tc.wantTransient)
			}
		})
	}
}

func TestVoiceClientDispatchMissingCallID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, err := NewVoiceClient(server.URL, "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewVoiceClient() error = %v", err)
	}

	_, err = c.Dispatch(context.Background(), DialRequest{
		Phone:       "+15551234567",
		CallbackURL: "https://orchestrator.example.com/cb",
	})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error = %v, want *ProviderError for missing call id", err)
	}
	if !providerErr.Transient {
		t.Fatal("missing call id should classify as transient")
	}
}

func TestVoiceClientDispatchCallIDFromHeader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Call-ID", "call-from-header")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, err := NewVoiceClient(server.URL, "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewVoiceClient() error = %v", err)
	}

	resp, err := c.Dispatch(context.Background(), DialRequest{
		Phone:       "+15551234567",
		CallbackURL: "https://orchestrator.example.com/cb",
	})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	if resp.CallID != "call-from-header" {
		t.Fatalf("CallID = %q, want call-from-header", resp.CallID)
	}
}

func TestNewVoiceClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewVoiceClient("", "", 0); err == nil {
		t.Fatal("empty endpoint should be rejected")
	}
	if _, err := NewVoiceClient("not a url", "", 0); err == nil {
		t.Fatal("invalid endpoint should be rejected")
	}
	if _, err := NewVoiceClientWithClient("https://voice.example.com", nil); err == nil {
		t.Fatal("nil client should be rejected")
	}
}
