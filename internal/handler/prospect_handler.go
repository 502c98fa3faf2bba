package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/queue"
)

type ProspectIntake interface {
	Submit(ctx context.Context, msg queue.ProspectMessage) (*domain.ProspectRecord, error)
}

type ProspectReader interface {
	GetByKey(ctx context.Context, prospectID, phone string) (*domain.ProspectRecord, error)
}

type ProspectHandler struct {
	intake ProspectIntake
	reader ProspectReader
}

func NewProspectHandler(intake ProspectIntake, reader ProspectReader) (*ProspectHandler, error) {
	if intake == nil {
		return nil, fmt.Errorf("intake service is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("prospect reader is required")
	}
	return &ProspectHandler{intake: intake, reader: reader}, nil
}

func RegisterProspectRoutes(router fiber.Router, intake ProspectIntake, reader ProspectReader) error {
	h, err := NewProspectHandler(intake, reader)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/prospects", h.CreateProspect)
	v1.Get("/prospects/:id", h.GetProspect)

	return nil
}

type createProspectRequest struct {
	ProspectID string `json:"prospectId"`
	Phone      string `json:"phone"`
	ListID     string `json:"listId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

type prospectResponse struct {
	ProspectID     string                `json:"prospectId"`
	Phone          string                `json:"phone"`
	ListID         string                `json:"listId"`
	FirstName      string                `json:"firstName,omitempty"`
	LastName       string                `json:"lastName,omitempty"`
	TotalAttempts  int                   `json:"totalAttempts"`
	AttemptsToday  int                   `json:"attemptsToday"`
	LastOutcome    string                `json:"lastOutcome,omitempty"`
	LastCallID     string                `json:"lastCallId,omitempty"`
	Status         string                `json:"status"`
	Outcomes       []domain.OutcomeEvent `json:"outcomes,omitempty"`
	LastAttemptAt  *time.Time            `json:"lastAttemptAt,omitempty"`
	NextEligibleAt *time.Time            `json:"nextEligibleAt,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func (h *ProspectHandler) CreateProspect(c *fiber.Ctx) error {
	var req createProspectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.intake.Submit(c.Context(), queue.ProspectMessage{
		ProspectID:    strings.TrimSpace(req.ProspectID),
		Phone:         strings.TrimSpace(req.Phone),
		ListID:        strings.TrimSpace(req.ListID),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		CorrelationID: requestCorrelationID(c),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toProspectResponse(record))
}

func (h *ProspectHandler) GetProspect(c *fiber.Ctx) error {
	prospectID := strings.TrimSpace(c.Params("id"))
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		return toHTTPError(fmt.Errorf("%w: phone query parameter is required", domain.ErrValidation))
	}

	canonical, err := domain.NormalizePhone(phone)
	if err != nil {
		return toHTTPError(err)
	}

	record, err := h.reader.GetByKey(c.Context(), prospectID, canonical)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toProspectResponse(record))
}

func toProspectResponse(record *domain.ProspectRecord) prospectResponse {
	if record == nil {
		return prospectResponse{}
	}

	return prospectResponse{
		ProspectID:     record.ProspectID,
		Phone:          record.Phone,
		ListID:         record.ListID,
		FirstName:      record.FirstName,
		LastName:       record.LastName,
		TotalAttempts:  record.TotalAttempts,
		AttemptsToday:  record.AttemptsToday,
		LastOutcome:    record.LastOutcome.String(),
		LastCallID:     record.LastCallID,
		Status:         record.Status.String(),
		Outcomes:       record.Outcomes,
		LastAttemptAt:  record.LastAttemptAt,
		NextEligibleAt: record.NextEligibleAt,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
