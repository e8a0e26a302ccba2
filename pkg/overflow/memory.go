package overflow

import (
	"sync"
	"time"
)

// MemoryBackend implements Backend in-process. Grounded on
// pkg/limits/storage.MemoryBackend's RWMutex-guarded map shape, generalized
// to jobs with a per-key FIFO queue instead of a flat key->state map.
type MemoryBackend struct {
	mu      sync.Mutex
	jobs    map[string]*Job   // id -> job
	byKey   map[string][]string // key -> ordered job ids (FIFO)
}

// NewMemoryBackend creates an empty in-memory overflow backend. Intended
// for tests and single-node deployments where queue durability across
// restarts is not required.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		jobs:  make(map[string]*Job),
		byKey: make(map[string][]string),
	}
}

func (m *MemoryBackend) Save(job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *job
	m.jobs[job.ID] = &cp
	m.byKey[job.Key] = append(m.byKey[job.Key], job.ID)
	return nil
}

func (m *MemoryBackend) Claim(now time.Time, leaseOwner string, visibilityTimeout time.Duration, n int) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	claimed := make([]*Job, 0, n)
	for _, ids := range m.byKey {
		for _, id := range ids {
			if len(claimed) >= n {
				return claimed, nil
			}
			job, ok := m.jobs[id]
			if !ok {
				continue
			}
			if job.ScheduledAt.After(now) {
				continue
			}
			if job.LeasedUntil.After(now) {
				continue
			}
			job.LeasedUntil = now.Add(visibilityTimeout)
			job.LeaseOwner = leaseOwner
			cp := *job
			claimed = append(claimed, &cp)
		}
	}
	return claimed, nil
}

func (m *MemoryBackend) Ack(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	delete(m.jobs, id)
	ids := m.byKey[job.Key]
	for i, existing := range ids {
		if existing == id {
			m.byKey[job.Key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryBackend) Reschedule(id string, attempt int, nextRunAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	job.Attempt = attempt
	job.ScheduledAt = nextRunAt
	job.LeasedUntil = time.Time{}
	job.LeaseOwner = ""
	return nil
}

func (m *MemoryBackend) Cleanup(olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, job := range m.jobs {
		if job.Attempt >= job.MaxAttempts && job.CreatedAt.Before(olderThan) {
			delete(m.jobs, id)
			ids := m.byKey[job.Key]
			for i, existing := range ids {
				if existing == id {
					m.byKey[job.Key] = append(ids[:i], ids[i+1:]...)
					break
				}
			}
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryBackend) Close() error { return nil }

// Size reports the current job count, mirroring the donor's
// MemoryBackend.Size accessor used in tests.
func (m *MemoryBackend) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}
