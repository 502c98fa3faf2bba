package queue

import (
	"fmt"
	"strings"
)

// ProspectMessage is the broker payload announcing a prospect whose prior
// attempt did not reach a successful disposition. The phone arrives raw;
// normalization and quarantine decisions happen at intake.
type ProspectMessage struct {
	ProspectID    string `json:"prospectId"`
	Phone         string `json:"phone"`
	ListID        string `json:"listId"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func (m ProspectMessage) Validate() error {
	if strings.TrimSpace(m.ProspectID) == "" {
		return fmt.Errorf("prospectId is required")
	}
	if strings.TrimSpace(m.Phone) == "" {
		return fmt.Errorf("phone is required")
	}
	if strings.TrimSpace(m.ListID) == "" {
		return fmt.Errorf("listId is required")
	}
	return nil
}
