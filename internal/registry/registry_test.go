package registry

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegisterAndResolve(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	r.Register("c1", "p1", "+15551234567", now)

	entry, ok := r.Resolve("c1")
	if !ok {
		t.Fatal("Resolve() should find the registered attempt")
	}
	if entry.ProspectID != "p1" || entry.Phone != "+15551234567" {
		t.Fatalf("entry = %+v, want p1/+15551234567", entry)
	}
	if !entry.DispatchedAt.Equal(now) {
		t.Fatalf("DispatchedAt = %v, want %v", entry.DispatchedAt, now)
	}

	// Resolve removes: duplicate completions find nothing, benignly.
	if _, ok := r.Resolve("c1"); ok {
		t.Fatal("second Resolve() should not find the entry")
	}
}

func TestResolveUnknownIsBenign(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	if _, ok := r.Resolve("never-registered"); ok {
		t.Fatal("Resolve() of unknown id should return ok=false")
	}
}

func TestSweepStale(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	r.Register("old", "p1", "+15551230001", now)
	r.Register("fresh", "p2", "+15551230002", now.Add(20*time.Minute))

	swept := r.SweepStale(now.Add(30*time.Minute), 30*time.Minute)

	if len(swept) != 1 || swept[0].CallID != "old" {
		t.Fatalf("swept = %+v, want the 30-minute-old entry only", swept)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if _, ok := r.Resolve("fresh"); !ok {
		t.Fatal("fresh entry should survive the sweep")
	}
	if _, ok := r.Resolve("old"); ok {
		t.Fatal("swept entry should be gone")
	}
}

func TestSweepStaleEmpty(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	if swept := r.SweepStale(time.Now(), time.Minute); len(swept) != 0 {
		t.Fatalf("swept = %+v, want empty", swept)
	}
}
