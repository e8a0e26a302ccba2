package overflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplayer struct {
	mu       sync.Mutex
	attempts int32
	fail     func(attempt int32) error
}

func (f *fakeReplayer) Replay(ctx context.Context, envelopeJSON []byte) error {
	n := atomic.AddInt32(&f.attempts, 1)
	if f.fail != nil {
		return f.fail(n)
	}
	return nil
}

func TestDrainer_SucceedsAndAcks(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Now()
	require.NoError(t, b.Save(&Job{ID: "1", Key: "k", MaxAttempts: 3, ScheduledAt: now.Add(-time.Second), CreatedAt: now}))

	replayer := &fakeReplayer{}
	cfg := DefaultDrainerConfig()
	cfg.PollInterval = 10 * time.Millisecond
	d := NewDrainer(b, replayer, cfg, nil)

	d.drainOnce(context.Background())
	// process() runs the replay synchronously inside the spawned goroutine;
	// drainOnce waits on the WaitGroup before returning, so the ack is
	// visible immediately.
	assert.Equal(t, 0, b.Size())
}

func TestDrainer_RescheduleOnFailureBelowMaxAttempts(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Now()
	require.NoError(t, b.Save(&Job{ID: "1", Key: "k", MaxAttempts: 3, ScheduledAt: now.Add(-time.Second), CreatedAt: now}))

	replayer := &fakeReplayer{fail: func(int32) error { return errors.New("upstream unavailable") }}
	cfg := DefaultDrainerConfig()
	cfg.RetryBase = time.Millisecond
	d := NewDrainer(b, replayer, cfg, nil)

	d.drainOnce(context.Background())

	assert.Equal(t, 1, b.Size(), "job must remain queued for retry, not dropped")
	job := b.jobs["1"]
	assert.Equal(t, 1, job.Attempt)
}

func TestDrainer_GivesUpAfterMaxAttempts(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Now()
	require.NoError(t, b.Save(&Job{ID: "1", Key: "k", Attempt: 2, MaxAttempts: 3, ScheduledAt: now.Add(-time.Second), CreatedAt: now}))

	replayer := &fakeReplayer{fail: func(int32) error { return errors.New("still failing") }}
	d := NewDrainer(b, replayer, DefaultDrainerConfig(), nil)

	d.drainOnce(context.Background())

	assert.Equal(t, 0, b.Size(), "job must be dropped once attempts are exhausted")
}
