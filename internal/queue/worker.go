// Package queue runs the durable job queue's consumer side (spec §4.D):
// one Worker per channel-specific queue, polling the store for eligible
// rows and running a handler per job with bounded concurrency.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
)

// Handler processes one claimed job. A returned error causes the worker
// to reschedule the job per backoff; nil marks it done.
type Handler func(ctx context.Context, job *domain.QueueJob) error

// Worker polls a single queue on an interval, claiming up to Concurrency
// jobs per tick and running them concurrently.
type Worker struct {
	repo            ports.QueueRepository
	queue           domain.Queue
	workerID        string
	concurrency     int
	backoffBase     time.Duration
	pollInterval    time.Duration
	dlqOnExhaustion bool
	handler         Handler
	log             zerolog.Logger
}

// Config tunes a Worker's polling and retry behavior.
type Config struct {
	Queue           domain.Queue
	WorkerID        string
	Concurrency     int
	BackoffBase     time.Duration
	PollInterval    time.Duration
	DLQOnExhaustion bool
}

// NewWorker creates a Worker bound to one queue and handler.
func NewWorker(repo ports.QueueRepository, cfg Config, handler Handler, log zerolog.Logger) *Worker {
	return &Worker{
		repo:            repo,
		queue:           cfg.Queue,
		workerID:        cfg.WorkerID,
		concurrency:     cfg.Concurrency,
		backoffBase:     cfg.BackoffBase,
		pollInterval:    cfg.PollInterval,
		dlqOnExhaustion: cfg.DLQOnExhaustion,
		handler:         handler,
		log:             log.With().Str("queue", string(cfg.Queue)).Str("worker_id", cfg.WorkerID).Logger(),
	}
}

// Run blocks, polling until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.log.Info().Msg("queue worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("queue worker stopping")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.repo.Dequeue(ctx, w.queue, w.workerID, w.concurrency)
	if err != nil {
		w.log.Error().Err(err).Msg("dequeue failed")
		return
	}
	if len(jobs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(j *domain.QueueJob) {
			defer wg.Done()
			w.process(ctx, j)
		}(job)
	}
	wg.Wait()
}

func (w *Worker) process(ctx context.Context, job *domain.QueueJob) {
	jobLog := w.log.With().Str("job_id", job.ID.String()).Int("attempt", job.Attempts+1).Logger()

	if err := w.handler(ctx, job); err != nil {
		jobLog.Warn().Err(err).Msg("job handler failed, rescheduling")
		if rerr := w.repo.Reschedule(ctx, job, w.backoffBase, w.dlqOnExhaustion); rerr != nil {
			jobLog.Error().Err(rerr).Msg("failed to reschedule job")
		}
		return
	}

	if err := w.repo.MarkDone(ctx, job.ID); err != nil {
		jobLog.Error().Err(err).Msg("failed to mark job done")
	}
}

// Sweeper periodically expires overdue pending payments in the background
// (spec §4.E: pending -> expired is an optional sweep, not callback-driven).
type Sweeper struct {
	payments ports.PaymentRepository
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(payments ports.PaymentRepository, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{payments: payments, interval: interval, log: log.With().Str("component", "expiry_sweeper").Logger()}
}

// Run blocks, sweeping on an interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.payments.ExpireOverdue(ctx, time.Now())
			if err != nil {
				s.log.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int("count", n).Msg("expired overdue pending payments")
			}
		}
	}
}
