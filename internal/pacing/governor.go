// Package pacing enforces the global dial rate ceiling and minimum spacing
// between attempts to the same number. State is process-local: losing it on
// restart briefly under-enforces spacing, which is acceptable.
package pacing

import (
	"sync"
	"time"
)

const defaultCeilingPerSec = 10

// Governor is an advisory gate consulted before each dispatch. A rejection
// defers the record to the next cycle, it is never an error.
type Governor struct {
	mu sync.Mutex

	ceiling    int
	admissions []time.Time

	minSpacing time.Duration
	lastByNum  map[string]time.Time
}

func NewGovernor(ceilingPerSec int, minSpacing time.Duration) *Governor {
	if ceilingPerSec <= 0 {
		ceilingPerSec = defaultCeilingPerSec
	}
	if minSpacing < 0 {
		minSpacing = 0
	}

	return &Governor{
		ceiling:    ceilingPerSec,
		admissions: make([]time.Time, 0, ceilingPerSec),
		minSpacing: minSpacing,
		lastByNum:  make(map[string]time.Time),
	}
}

// TryAcquire admits a dispatch when fewer than the ceiling were admitted in
// the trailing one-second window.
func (g *Governor) TryAcquire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-time.Second)
	kept := g.admissions[:0]
	for _, t := range g.admissions {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.admissions = kept

	if len(g.admissions) >= g.ceiling {
		return false
	}

	g.admissions = append(g.admissions, now)
	return true
}

// TooSoonForNumber reports whether phone received an attempt within the
// minimum spacing. Independent of the ledger's engagement check: a fast
// settle (instant voicemail) frees the line but back-to-back dialing is
// still abusive to the recipient.
func (g *Governor) TooSoonForNumber(phone string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.lastByNum[phone]
	if !ok {
		return false
	}
	return now.Sub(last) < g.minSpacing
}

// NoteDispatch records a dispatch to phone for spacing enforcement.
func (g *Governor) NoteDispatch(phone string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastByNum[phone] = now
}

// Prune drops spacing entries older than the spacing window to bound the map.
func (g *Governor) Prune(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for phone, last := range g.lastByNum {
		if now.Sub(last) >= g.minSpacing {
			delete(g.lastByNum, phone)
		}
	}
}
