package service

import (
	"hash/fnv"
	"sync"
)

const phoneLockStripes = 64

// PhoneLocks serializes record mutations per phone line so the scheduler
// and completion paths never interleave a read-modify-write on the same
// prospect row.
type PhoneLocks struct {
	stripes [phoneLockStripes]sync.Mutex
}

func NewPhoneLocks() *PhoneLocks {
	return &PhoneLocks{}
}

// Lock acquires the stripe covering phone and returns its unlock function.
func (p *PhoneLocks) Lock(phone string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	mu := &p.stripes[h.Sum32()%phoneLockStripes]
	mu.Lock()
	return mu.Unlock
}
