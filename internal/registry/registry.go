// Package registry holds in-flight attempt metadata between dispatch and the
// asynchronous completion that settles it. Process-lifetime only.
package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is the in-flight metadata for one dispatched attempt.
type Entry struct {
	CallID       string
	ProspectID   string
	Phone        string
	DispatchedAt time.Time
}

// Registry correlates dispatched attempts with their completions.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]Entry),
		logger:  logger,
	}
}

func (r *Registry) Register(callID, prospectID, phone string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[callID] = Entry{
		CallID:       callID,
		ProspectID:   prospectID,
		Phone:        phone,
		DispatchedAt: now,
	}
}

// Resolve returns and removes the entry for callID. A missing entry is
// benign: exactly-once delivery of completions is not guaranteed upstream.
func (r *Registry) Resolve(callID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[callID]
	if ok {
		delete(r.entries, callID)
	}
	return entry, ok
}

// Len reports the number of outstanding attempts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SweepStale removes entries older than maxAge and returns them so the
// caller can close their ledger windows. Keeps the registry bounded when
// completions are lost.
func (r *Registry) SweepStale(now time.Time, maxAge time.Duration) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []Entry
	for callID, entry := range r.entries {
		if now.Sub(entry.DispatchedAt) >= maxAge {
			swept = append(swept, entry)
			delete(r.entries, callID)
		}
	}

	for _, entry := range swept {
		r.logger.Warn("swept stale pending attempt",
			zap.String("callId", entry.CallID),
			zap.String("prospectId", entry.ProspectID),
			zap.String("phone", entry.Phone),
			zap.Time("dispatchedAt", entry.DispatchedAt),
		)
	}

	return swept
}

// Run sweeps on interval until ctx cancellation, handing swept entries to
// onSwept for ledger reconciliation.
func (r *Registry) Run(ctx context.Context, interval, maxAge time.Duration, onSwept func(Entry)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, entry := range r.SweepStale(now, maxAge) {
				if onSwept != nil {
					onSwept(entry)
				}
			}
		}
	}
}
