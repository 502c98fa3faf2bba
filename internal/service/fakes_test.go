package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/provider"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/repository"
)

func recordKey(prospectID, phone string) string {
	return prospectID + "|" + phone
}

type fakeProspectRepo struct {
	mu        sync.Mutex
	records   map[string]*domain.ProspectRecord
	createErr error
	updateErr error
	listErr   error
}

func newFakeProspectRepo() *fakeProspectRepo {
	return &fakeProspectRepo{records: map[string]*domain.ProspectRecord{}}
}

func (f *fakeProspectRepo) Create(_ context.Context, record *domain.ProspectRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	key := recordKey(record.ProspectID, record.Phone)
	if _, exists := f.records[key]; exists {
		return domain.ErrConflict
	}
	clone := *record
	f.records[key] = &clone
	return nil
}

func (f *fakeProspectRepo) GetByKey(_ context.Context, prospectID, phone string) (*domain.ProspectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[recordKey(prospectID, phone)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeProspectRepo) Update(_ context.Context, record *domain.ProspectRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}
	key := recordKey(record.ProspectID, record.Phone)
	if _, ok := f.records[key]; !ok {
		return domain.ErrNotFound
	}
	clone := *record
	f.records[key] = &clone
	return nil
}

func (f *fakeProspectRepo) ListDispatchable(_ context.Context, createdFrom time.Time, limit int) ([]domain.ProspectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []domain.ProspectRecord
	for _, record := range f.records {
		if record.CreatedAt.Before(createdFrom) {
			continue
		}
		switch record.Status {
		case domain.StatusPending, domain.StatusRescheduled, domain.StatusDailyCapReached:
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		left, right := out[i].NextEligibleAt, out[j].NextEligibleAt
		switch {
		case left == nil && right != nil:
			return true
		case left != nil && right == nil:
			return false
		case left != nil && right != nil && !left.Equal(*right):
			return left.Before(*right)
		}
		return out[i].ProspectID < out[j].ProspectID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProspectRepo) ListByMonth(_ context.Context, _ time.Time, _, _ int) ([]domain.ProspectRecord, error) {
	return nil, nil
}

func (f *fakeProspectRepo) ResetDailyCounts(_ context.Context, today string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var reset int64
	for _, record := range f.records {
		if record.AttemptsToday > 0 && record.LastAttemptDay != today {
			record.AttemptsToday = 0
			reset++
		}
	}
	return reset, nil
}

func (f *fakeProspectRepo) get(prospectID, phone string) *domain.ProspectRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[recordKey(prospectID, phone)]
	if !ok {
		return nil
	}
	clone := *record
	return &clone
}

func (f *fakeProspectRepo) put(record domain.ProspectRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[recordKey(record.ProspectID, record.Phone)] = &record
}

type fakeQuarantineRepo struct {
	mu        sync.Mutex
	rows      []repository.QuarantinedProspect
	createErr error
}

func (f *fakeQuarantineRepo) Create(_ context.Context, q *repository.QuarantinedProspect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.rows = append(f.rows, *q)
	return nil
}

func (f *fakeQuarantineRepo) List(_ context.Context, _ int) ([]repository.QuarantinedProspect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.QuarantinedProspect(nil), f.rows...), nil
}

type dialCall struct {
	req provider.DialRequest
	at  time.Time
}

type fakeDialer struct {
	mu    sync.Mutex
	calls []dialCall
	err   error
	now   func() time.Time
	seq   int
}

func (f *fakeDialer) Dispatch(_ context.Context, req provider.DialRequest) (*provider.DialResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var at time.Time
	if f.now != nil {
		at = f.now()
	}
	f.calls = append(f.calls, dialCall{req: req, at: at})
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	return &provider.DialResponse{CallID: fmt.Sprintf("call-%d", f.seq), StatusCode: 200}, nil
}

func (f *fakeDialer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDialer) lastCallID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("call-%d", f.seq)
}

type crmLogEntry struct {
	prospectID string
	status     domain.CRMStatus
}

type fakeCRM struct {
	mu      sync.Mutex
	entries []crmLogEntry
	err     error
}

func (f *fakeCRM) LogOutcome(_ context.Context, prospectID string, status domain.CRMStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, crmLogEntry{prospectID: prospectID, status: status})
	return nil
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int{}}
}

func (f *fakeCounter) Incr(_ context.Context, phone, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[phone+"|"+day]++
	return f.counts[phone+"|"+day], nil
}

func (f *fakeCounter) Count(_ context.Context, phone, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[phone+"|"+day], nil
}

func (f *fakeCounter) set(phone, day string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[phone+"|"+day] = count
}
