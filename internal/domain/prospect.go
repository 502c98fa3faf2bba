package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the scheduling lifecycle state of a prospect record.
type Status string

const (
	StatusNew                Status = "NEW"
	StatusPending            Status = "PENDING"
	StatusRescheduled        Status = "RESCHEDULED"
	StatusCompleted          Status = "COMPLETED"
	StatusDailyCapReached    Status = "DAILY_CAP_REACHED"
	StatusMaxAttemptsReached Status = "MAX_ATTEMPTS_REACHED"
	StatusQuarantined        Status = "QUARANTINED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusPending, StatusRescheduled, StatusCompleted,
		StatusDailyCapReached, StatusMaxAttemptsReached, StatusQuarantined:
		return true
	}
	return false
}

// IsTerminal reports whether the status permanently removes the record from
// scheduling. DAILY_CAP_REACHED is day-scoped, not terminal.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusMaxAttemptsReached, StatusQuarantined:
		return true
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// DayKey is the local calendar day format used for daily counter resets.
const DayKey = "2006-01-02"

// ProspectRecord tracks redial state for one (prospect id, phone) pair.
type ProspectRecord struct {
	ProspectID     string
	Phone          string
	ListID         string
	FirstName      string
	LastName       string
	TotalAttempts  int
	AttemptsToday  int
	LastAttemptDay string
	LastAttemptAt  *time.Time
	NextEligibleAt *time.Time
	Outcomes       []OutcomeEvent
	LastOutcome    OutcomeCode
	LastCallID     string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *ProspectRecord) Validate() error {
	if strings.TrimSpace(r.ProspectID) == "" {
		return fmt.Errorf("%w: prospect id is required", ErrValidation)
	}
	if strings.TrimSpace(r.ListID) == "" {
		return fmt.Errorf("%w: list id is required", ErrValidation)
	}
	if !IsCanonicalPhone(r.Phone) {
		return fmt.Errorf("%w: phone %q is not canonical", ErrValidation, r.Phone)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.Status)
	}
	return nil
}

// RollDay zeroes the daily attempt counter when now falls on a later local
// calendar day than the last recorded attempt. Total attempts never reset.
func (r *ProspectRecord) RollDay(now time.Time, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	today := now.In(loc).Format(DayKey)
	if r.LastAttemptDay != today {
		r.AttemptsToday = 0
	}
}

// MarkDispatched records a dispatched attempt and schedules the next
// eligibility from the post-dispatch attempt count.
func (r *ProspectRecord) MarkDispatched(callID string, now time.Time, loc *time.Location, nextDelay time.Duration) {
	if loc == nil {
		loc = time.Local
	}

	r.RollDay(now, loc)
	r.TotalAttempts++
	r.AttemptsToday++
	r.LastAttemptDay = now.In(loc).Format(DayKey)
	attemptAt := now
	r.LastAttemptAt = &attemptAt
	next := now.Add(nextDelay)
	r.NextEligibleAt = &next
	r.LastCallID = callID
	r.Status = StatusRescheduled
}

// ApplyOutcome appends the outcome to history and moves the lifecycle
// according to its classification.
func (r *ProspectRecord) ApplyOutcome(code OutcomeCode, callID string, at time.Time) {
	r.Outcomes = append(r.Outcomes, OutcomeEvent{Code: code, CallID: callID, At: at})
	r.LastOutcome = code

	switch code.Class() {
	case ClassQualifying:
		r.Status = StatusCompleted
	case ClassHardFailure:
		r.Status = StatusQuarantined
	default:
		if !r.Status.IsTerminal() {
			r.Status = StatusRescheduled
		}
	}
}
