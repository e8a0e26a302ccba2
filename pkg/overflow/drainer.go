package overflow

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Replayer re-admits a drained job's envelope back through admission and
// routing. The drainer does not know about HTTP, routing, or providers
// directly; it only knows how to claim, replay, and reschedule-or-ack. This
// mirrors the donor's handler-vs-transport separation in pkg/proxy, where
// chat.go never imports net/http details used by the router beneath it.
type Replayer interface {
	Replay(ctx context.Context, envelopeJSON []byte) error
}

// DrainerConfig configures the drain loop.
type DrainerConfig struct {
	Parallelism       int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	RetryBase         time.Duration
	RetryFactor       float64
	LeaseOwner        string
	HTTPClient        *http.Client
}

func DefaultDrainerConfig() DrainerConfig {
	return DrainerConfig{
		Parallelism:       4,
		VisibilityTimeout: 30 * time.Second,
		PollInterval:      2 * time.Second,
		RetryBase:         5 * time.Second,
		RetryFactor:       2.0,
		LeaseOwner:        "gateway",
		HTTPClient:        &http.Client{Timeout: 10 * time.Second},
	}
}

// Drainer pulls leased jobs from a Backend and replays them at bounded
// parallelism: claim, re-admit, webhook-on-success or
// backoff-and-reschedule-on-failure, give up after MaxAttempts.
type Drainer struct {
	backend  Backend
	replayer Replayer
	cfg      DrainerConfig
	log      *slog.Logger

	stop chan struct{}
	done chan struct{}
}

func NewDrainer(backend Backend, replayer Replayer, cfg DrainerConfig, log *slog.Logger) *Drainer {
	if log == nil {
		log = slog.Default()
	}
	return &Drainer{
		backend:  backend,
		replayer: replayer,
		cfg:      cfg,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the drain loop until the context is cancelled or Stop is called.
func (d *Drainer) Start(ctx context.Context) {
	defer close(d.done)
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-ticker.C:
			d.drainOnce(ctx)
		}
	}
}

func (d *Drainer) Stop() {
	close(d.stop)
	<-d.done
}

func (d *Drainer) drainOnce(ctx context.Context) {
	jobs, err := d.backend.Claim(time.Now(), d.cfg.LeaseOwner, d.cfg.VisibilityTimeout, d.cfg.Parallelism)
	if err != nil {
		d.log.Error("overflow: claim failed", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			d.process(ctx, j)
		}(job)
	}
	wg.Wait()
}

func (d *Drainer) process(ctx context.Context, job *Job) {
	replayCtx, cancel := context.WithTimeout(ctx, d.cfg.VisibilityTimeout)
	defer cancel()

	err := d.replayer.Replay(replayCtx, job.EnvelopeJSON)
	if err == nil {
		if ackErr := d.backend.Ack(job.ID); ackErr != nil {
			d.log.Error("overflow: ack failed", "job_id", job.ID, "error", ackErr)
		}
		d.notifyWebhook(job, nil)
		return
	}

	job.Attempt++
	if job.Attempt >= job.MaxAttempts {
		d.log.Warn("overflow: job gave up", "job_id", job.ID, "key", job.Key, "attempts", job.Attempt, "error", err)
		if ackErr := d.backend.Ack(job.ID); ackErr != nil {
			d.log.Error("overflow: ack after giveup failed", "job_id", job.ID, "error", ackErr)
		}
		d.notifyWebhook(job, err)
		return
	}

	delay := Backoff(job.Attempt, d.cfg.RetryBase, d.cfg.RetryFactor)
	if rescheduleErr := d.backend.Reschedule(job.ID, job.Attempt, time.Now().Add(delay)); rescheduleErr != nil {
		d.log.Error("overflow: reschedule failed", "job_id", job.ID, "error", rescheduleErr)
	}
}

func (d *Drainer) notifyWebhook(job *Job, replayErr error) {
	if job.WebhookURL == "" || d.cfg.HTTPClient == nil {
		return
	}

	payload := struct {
		JobID   string `json:"job_id"`
		Key     string `json:"key"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}{JobID: job.ID, Key: job.Key, Success: replayErr == nil}
	if replayErr != nil {
		payload.Error = replayErr.Error()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("overflow: webhook payload encode failed", "job_id", job.ID, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, job.WebhookURL, bytes.NewReader(body))
	if err != nil {
		d.log.Error("overflow: webhook request build failed", "job_id", job.ID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.cfg.HTTPClient.Do(req)
	if err != nil {
		d.log.Warn("overflow: webhook delivery failed", "job_id", job.ID, "error", err)
		return
	}
	resp.Body.Close()
}
