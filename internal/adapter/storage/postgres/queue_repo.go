package postgres

import (
	"context"
	"time"

	"github.com/dhecash/gateway/internal/core/domain"

	"github.com/google/uuid"
)

// QueueRepo implements the durable job queue (spec §4.D) atop PostgreSQL,
// using SELECT ... FOR UPDATE SKIP LOCKED for contention-free dequeue —
// the same pessimistic-locking idiom the teacher applies to wallet
// balance reads, generalized here to queue-row claiming.
type QueueRepo struct {
	pool Pool
}

// NewQueueRepo creates a QueueRepo.
func NewQueueRepo(pool Pool) *QueueRepo {
	return &QueueRepo{pool: pool}
}

func (r *QueueRepo) Enqueue(ctx context.Context, queue domain.Queue, payload []byte, maxAttempts int) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO queue_jobs (
			id, queue, payload, status, attempts, max_attempts, run_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, 0, $5, $6, $6, $6)`,
		uuid.New(), queue, payload, domain.JobStatusQueued, maxAttempts, now,
	)
	return err
}

func (r *QueueRepo) Dequeue(ctx context.Context, queue domain.Queue, workerID string, limit int) ([]*domain.QueueJob, error) {
	now := time.Now()
	rows, err := r.pool.Query(ctx, `
		UPDATE queue_jobs SET status = $1, locked_by = $2, locked_at = $3, updated_at = $3
		WHERE id IN (
			SELECT id FROM queue_jobs
			WHERE queue = $4 AND status = $5 AND run_at <= $3
			ORDER BY run_at
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue, payload, status, attempts, max_attempts, run_at,
			locked_by, locked_at, created_at, updated_at`,
		domain.JobStatusInFlight, workerID, now, queue, domain.JobStatusQueued, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.QueueJob
	for rows.Next() {
		var j domain.QueueJob
		if err := rows.Scan(
			&j.ID, &j.Queue, &j.Payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.RunAt,
			&j.LockedBy, &j.LockedAt, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &j)
	}
	return out, rows.Err()
}

func (r *QueueRepo) MarkDone(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		domain.JobStatusDone, time.Now(), jobID,
	)
	return err
}

// Reschedule bumps the attempt count and either sets the next run_at via
// exponential backoff, or — once attempts are exhausted — marks the job
// dead, copying a payments-queue job into payments.dlq per spec §4.D
// (webhook jobs are not DLQ'd; their final failure lives only in the
// webhook log).
func (r *QueueRepo) Reschedule(ctx context.Context, job *domain.QueueJob, base time.Duration, dlqOnExhaustion bool) error {
	now := time.Now()
	job.Attempts++

	if job.Exhausted() {
		_, err := r.pool.Exec(ctx, `
			UPDATE queue_jobs SET status = $1, attempts = $2, updated_at = $3 WHERE id = $4`,
			domain.JobStatusDead, job.Attempts, now, job.ID,
		)
		if err != nil {
			return err
		}
		if dlqOnExhaustion {
			return r.Enqueue(ctx, domain.QueuePaymentsDLQ, job.Payload, 1)
		}
		return nil
	}

	nextRunAt := domain.NextRunAt(now, base, job.Attempts-1)
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_jobs SET status = $1, attempts = $2, run_at = $3, updated_at = $4 WHERE id = $5`,
		domain.JobStatusQueued, job.Attempts, nextRunAt, now, job.ID,
	)
	return err
}
