package overflow

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend using SQLite, matching the donor's
// pkg/limits/storage.SQLiteBackend connection/WAL setup (single-writer
// pool, WAL journal mode, busy-timeout DSN) and the WAL-mode schema
// precedent from pkg/evidence/storage/sqlite_schema.go, applied to a job
// queue table instead of a limit-state or evidence-record table.
type SQLiteBackend struct {
	db     *sql.DB
	mu     sync.Mutex
	closer sync.Once
}

// SQLiteConfig configures the backend.
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

func NewSQLiteBackend(cfg SQLiteConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("overflow: db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("overflow: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	b := &SQLiteBackend{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS overflow_jobs (
	id            TEXT PRIMARY KEY,
	key           TEXT NOT NULL,
	envelope      BLOB NOT NULL,
	attempt       INTEGER NOT NULL DEFAULT 0,
	max_attempts  INTEGER NOT NULL,
	scheduled_at  INTEGER NOT NULL,
	leased_until  INTEGER NOT NULL DEFAULT 0,
	lease_owner   TEXT NOT NULL DEFAULT '',
	webhook_url   TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_overflow_jobs_key_scheduled ON overflow_jobs(key, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_overflow_jobs_leased ON overflow_jobs(leased_until);
`
	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) Save(job *Job) error {
	_, err := b.db.Exec(
		`INSERT OR REPLACE INTO overflow_jobs
		 (id, key, envelope, attempt, max_attempts, scheduled_at, leased_until, lease_owner, webhook_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Key, job.EnvelopeJSON, job.Attempt, job.MaxAttempts,
		job.ScheduledAt.UnixNano(), job.LeasedUntil.UnixNano(), job.LeaseOwner,
		job.WebhookURL, job.CreatedAt.UnixNano(),
	)
	return err
}

// Claim leases up to n ready jobs. SQLite's single-writer model makes the
// select+update sequence effectively atomic under the exclusive connection
// pool set up in NewSQLiteBackend (MaxOpenConns=1), mirroring the donor's
// same single-writer discipline for its limit-state backend.
func (b *SQLiteBackend) Claim(now time.Time, leaseOwner string, visibilityTimeout time.Duration, n int) ([]*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.db.Query(
		`SELECT id, key, envelope, attempt, max_attempts, scheduled_at, leased_until, lease_owner, webhook_url, created_at
		 FROM overflow_jobs
		 WHERE scheduled_at <= ? AND leased_until <= ?
		 ORDER BY key, scheduled_at
		 LIMIT ?`,
		now.UnixNano(), now.UnixNano(), n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []*Job
	for rows.Next() {
		j := &Job{}
		var scheduled, leased, created int64
		if err := rows.Scan(&j.ID, &j.Key, &j.EnvelopeJSON, &j.Attempt, &j.MaxAttempts,
			&scheduled, &leased, &j.LeaseOwner, &j.WebhookURL, &created); err != nil {
			return nil, err
		}
		j.ScheduledAt = time.Unix(0, scheduled)
		j.LeasedUntil = time.Unix(0, leased)
		j.CreatedAt = time.Unix(0, created)
		claimed = append(claimed, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	leaseUntil := now.Add(visibilityTimeout).UnixNano()
	for _, j := range claimed {
		if _, err := b.db.Exec(`UPDATE overflow_jobs SET leased_until = ?, lease_owner = ? WHERE id = ?`,
			leaseUntil, leaseOwner, j.ID); err != nil {
			return nil, err
		}
		j.LeasedUntil = time.Unix(0, leaseUntil)
		j.LeaseOwner = leaseOwner
	}
	return claimed, nil
}

func (b *SQLiteBackend) Ack(id string) error {
	_, err := b.db.Exec(`DELETE FROM overflow_jobs WHERE id = ?`, id)
	return err
}

func (b *SQLiteBackend) Reschedule(id string, attempt int, nextRunAt time.Time) error {
	_, err := b.db.Exec(
		`UPDATE overflow_jobs SET attempt = ?, scheduled_at = ?, leased_until = 0, lease_owner = '' WHERE id = ?`,
		attempt, nextRunAt.UnixNano(), id,
	)
	return err
}

func (b *SQLiteBackend) Cleanup(olderThan time.Time) (int, error) {
	result, err := b.db.Exec(
		`DELETE FROM overflow_jobs WHERE attempt >= max_attempts AND created_at < ?`,
		olderThan.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (b *SQLiteBackend) Close() error {
	var err error
	b.closer.Do(func() { err = b.db.Close() })
	return err
}
