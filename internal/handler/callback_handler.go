package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/service"
)

type CompletionHandler interface {
	HandleCompletion(ctx context.Context, event service.CompletionEvent) error
}

type CallbackHandler struct {
	completions CompletionHandler
}

func NewCallbackHandler(completions CompletionHandler) (*CallbackHandler, error) {
	if completions == nil {
		return nil, fmt.Errorf("completion service is required")
	}
	return &CallbackHandler{completions: completions}, nil
}

func RegisterCallbackRoutes(router fiber.Router, completions CompletionHandler) error {
	h, err := NewCallbackHandler(completions)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/calls/callback", h.CallCompleted)

	return nil
}

type callCallbackRequest struct {
	CallID  string `json:"callId"`
	Phone   string `json:"phone"`
	Outcome string `json:"outcome"`
	At      string `json:"at"`
}

// CallCompleted ingests the voice provider's end-of-call webhook.
func (h *CallbackHandler) CallCompleted(c *fiber.Ctx) error {
	var req callCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	outcome, err := domain.ParseOutcomeFromString(req.Outcome)
	if err != nil {
		return toHTTPError(err)
	}

	at := time.Time{}
	if trimmed := strings.TrimSpace(req.At); trimmed != "" {
		parsed, err := time.Parse(time.RFC3339, trimmed)
		if err != nil {
			return toHTTPError(fmt.Errorf("%w: at must be RFC3339", domain.ErrValidation))
		}
		at = parsed
	}

	event := service.CompletionEvent{
		CallID:  strings.TrimSpace(req.CallID),
		Phone:   strings.TrimSpace(req.Phone),
		Outcome: outcome,
		At:      at,
	}
	if err := h.completions.HandleCompletion(c.Context(), event); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"callId": event.CallID,
		"status": "settled",
	})
}
