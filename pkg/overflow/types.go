// Package overflow implements the at-least-once durable queue that absorbs
// admission-deferred requests: enqueue/drain with per-key FIFO ordering,
// lease-based visibility timeouts, and bounded retry with backoff before
// giving up.
//
// Grounded on the donor's pkg/limits/storage backend interface shape
// (Save/Load/Delete/List/Cleanup/Close), generalized from limit-state
// persistence to job persistence, and on pkg/evidence/storage/sqlite_schema.go
// for the WAL-mode sqlite indexing pattern (the evidence product itself is
// dropped — see DESIGN.md — but its storage schema precedent survives here).
package overflow

import "time"

// Job is the persisted handoff record for a deferred request.
// Message bodies in EnvelopeJSON are redacted beyond a configurable byte
// budget before persistence; this is storage hygiene only and must never
// alter in-memory processing upstream of persistence.
type Job struct {
	ID              string
	Key             string // partitioning attribute: FIFO is only guaranteed within a Key
	EnvelopeJSON    []byte
	Attempt         int
	MaxAttempts     int
	ScheduledAt     time.Time
	LeasedUntil     time.Time
	LeaseOwner      string
	WebhookURL      string
	CreatedAt       time.Time
}

// Backend is the durable store a Queue persists jobs to. Implementations
// must make Save/Claim/Ack atomic enough that two drainers never believe
// they both hold the lease for the same job.
type Backend interface {
	Save(job *Job) error
	// Claim leases up to n ready jobs (ScheduledAt <= now, not currently
	// leased) for visibilityTimeout, partitioned so a single Key's jobs
	// are returned in FIFO order relative to each other.
	Claim(now time.Time, leaseOwner string, visibilityTimeout time.Duration, n int) ([]*Job, error)
	// Ack removes a completed job.
	Ack(id string) error
	// Reschedule updates attempt count and next-run time after a failed
	// attempt, releasing the lease.
	Reschedule(id string, attempt int, nextRunAt time.Time) error
	// Cleanup removes jobs that gave up (attempt >= MaxAttempts) older
	// than olderThan, returning the count removed.
	Cleanup(olderThan time.Time) (int, error)
	Close() error
}

// Backoff computes the delay before the next attempt, grounded on the same
// exponential shape the resilience layer's retry policy uses.
func Backoff(attempt int, base time.Duration, factor float64) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * factor)
	}
	return d
}
