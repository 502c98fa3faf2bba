package domain

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "canonical passthrough", input: "+15551234567", want: "+15551234567"},
		{name: "ten digit assumes US", input: "5551234567", want: "+15551234567"},
		{name: "formatted national", input: "(555) 123-4567", want: "+15551234567"},
		{name: "dotted with country code", input: "1.555.123.4567", want: "+15551234567"},
		{name: "international", input: "+44 20 7946 0958", want: "+442079460958"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "too short", input: "123456", wantErr: true},
		{name: "too long", input: "+1234567890123456", wantErr: true},
		{name: "letters", input: "555-CALL-NOW", wantErr: true},
		{name: "plus not leading", input: "555+1234567", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("NormalizePhone(%q) error = %v, want ErrValidation", tt.input, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("NormalizePhone(%q) unexpected error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsCanonicalPhone(t *testing.T) {
	t.Parallel()

	if !IsCanonicalPhone("+15551234567") {
		t.Fatal("+15551234567 should be canonical")
	}
	if IsCanonicalPhone("5551234567") {
		t.Fatal("bare national number should not be canonical")
	}
	if IsCanonicalPhone("") {
		t.Fatal("empty string should not be canonical")
	}
}
