package domain

import (
	"errors"
	"testing"
)

func TestParseOutcomeFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseOutcomeFromString(" voicemail ")
	if err != nil {
		t.Fatalf("ParseOutcomeFromString() unexpected error = %v", err)
	}
	if got != OutcomeVoicemail {
		t.Fatalf("ParseOutcomeFromString() = %s, want %s", got, OutcomeVoicemail)
	}

	_, err = ParseOutcomeFromString("carrier_pigeon")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseOutcomeFromString() error = %v, want ErrValidation", err)
	}
}

func TestOutcomeClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code OutcomeCode
		want OutcomeClass
	}{
		{OutcomeTransferred, ClassQualifying},
		{OutcomeBooked, ClassQualifying},
		{OutcomeDoNotCall, ClassQualifying},
		{OutcomeVoicemail, ClassRetriable},
		{OutcomeNoAnswer, ClassRetriable},
		{OutcomeBusy, ClassRetriable},
		{OutcomeHangup, ClassRetriable},
		{OutcomeInvalidNumber, ClassHardFailure},
		{OutcomeRejected, ClassHardFailure},
		{OutcomeCode("SOMETHING_NEW"), ClassRetriable},
	}

	for _, tt := range tests {
		if got := tt.code.Class(); got != tt.want {
			t.Fatalf("Class(%s) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestCRMStatusForOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code OutcomeCode
		want CRMStatus
	}{
		{OutcomeTransferred, CRMStatusContacted},
		{OutcomeBooked, CRMStatusBooked},
		{OutcomeDoNotCall, CRMStatusDoNotContact},
		{OutcomeVoicemail, CRMStatusNotReached},
		{OutcomeBusy, CRMStatusNotReached},
		{OutcomeInvalidNumber, CRMStatusInvalidNumber},
		{OutcomeCode("SOMETHING_NEW"), CRMStatusFollowUp},
	}

	for _, tt := range tests {
		if got := CRMStatusForOutcome(tt.code); got != tt.want {
			t.Fatalf("CRMStatusForOutcome(%s) = %s, want %s", tt.code, got, tt.want)
		}
	}
}
