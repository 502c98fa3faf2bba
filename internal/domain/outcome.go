package domain

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeCode is the normalized result of one dial attempt.
type OutcomeCode string

const (
	OutcomeTransferred   OutcomeCode = "TRANSFERRED"
	OutcomeBooked        OutcomeCode = "BOOKED"
	OutcomeDoNotCall     OutcomeCode = "DO_NOT_CALL"
	OutcomeVoicemail     OutcomeCode = "VOICEMAIL"
	OutcomeNoAnswer      OutcomeCode = "NO_ANSWER"
	OutcomeBusy          OutcomeCode = "BUSY"
	OutcomeHangup        OutcomeCode = "HANGUP"
	OutcomeInvalidNumber OutcomeCode = "INVALID_NUMBER"
	OutcomeRejected      OutcomeCode = "REJECTED"
)

func (o OutcomeCode) String() string { return string(o) }

func (o OutcomeCode) IsValid() bool {
	switch o {
	case OutcomeTransferred, OutcomeBooked, OutcomeDoNotCall,
		OutcomeVoicemail, OutcomeNoAnswer, OutcomeBusy, OutcomeHangup,
		OutcomeInvalidNumber, OutcomeRejected:
		return true
	}
	return false
}

func ParseOutcomeFromString(s string) (OutcomeCode, error) {
	o := OutcomeCode(strings.ToUpper(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: invalid outcome %q", ErrValidation, s)
	}
	return o, nil
}

// OutcomeClass groups outcomes by their effect on scheduling.
type OutcomeClass string

const (
	// ClassQualifying permanently removes the prospect from scheduling.
	ClassQualifying OutcomeClass = "QUALIFYING"
	// ClassRetriable leaves the prospect eligible for another attempt.
	ClassRetriable OutcomeClass = "RETRIABLE"
	// ClassHardFailure marks the destination as undialable.
	ClassHardFailure OutcomeClass = "HARD_FAILURE"
)

// Class classifies the outcome. Unknown codes classify as retriable so an
// unexpected provider value never terminates a prospect by accident.
func (o OutcomeCode) Class() OutcomeClass {
	switch o {
	case OutcomeTransferred, OutcomeBooked, OutcomeDoNotCall:
		return ClassQualifying
	case OutcomeInvalidNumber, OutcomeRejected:
		return ClassHardFailure
	default:
		return ClassRetriable
	}
}

// CRMStatus is the bounded status set the lead-management system accepts.
type CRMStatus string

const (
	CRMStatusContacted     CRMStatus = "contacted"
	CRMStatusBooked        CRMStatus = "booked"
	CRMStatusDoNotContact  CRMStatus = "do_not_contact"
	CRMStatusNotReached    CRMStatus = "not_reached"
	CRMStatusInvalidNumber CRMStatus = "invalid_number"
	CRMStatusFollowUp      CRMStatus = "follow_up"
)

func (s CRMStatus) String() string { return string(s) }

// CRMStatusForOutcome maps an outcome onto the CRM status set. Unmapped
// outcomes fall back to follow_up rather than failing the update.
func CRMStatusForOutcome(o OutcomeCode) CRMStatus {
	switch o {
	case OutcomeTransferred:
		return CRMStatusContacted
	case OutcomeBooked:
		return CRMStatusBooked
	case OutcomeDoNotCall:
		return CRMStatusDoNotContact
	case OutcomeVoicemail, OutcomeNoAnswer, OutcomeBusy, OutcomeHangup:
		return CRMStatusNotReached
	case OutcomeInvalidNumber, OutcomeRejected:
		return CRMStatusInvalidNumber
	default:
		return CRMStatusFollowUp
	}
}

// OutcomeEvent is one entry in a record's append-only outcome history.
type OutcomeEvent struct {
	Code   OutcomeCode `json:"code"`
	CallID string      `json:"callId"`
	At     time.Time   `json:"at"`
}
