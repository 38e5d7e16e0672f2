package domain

import (
	"time"

	"github.com/google/uuid"
)

// Queue names the channel-specific durable job queues (spec §4.D).
type Queue string

const (
	QueuePaymentsMonCash     Queue = "payments.moncash"
	QueuePaymentsNatCash     Queue = "payments.natcash"
	QueuePaymentsStripe      Queue = "payments.stripe"
	QueuePaymentsDLQ         Queue = "payments.dlq"
	QueueNotificationsWebhooks Queue = "notifications.webhooks"
)

// PaymentQueueForChannel resolves the dispatch queue for a payment channel.
func PaymentQueueForChannel(ch Channel) Queue {
	switch ch {
	case ChannelMonCash:
		return QueuePaymentsMonCash
	case ChannelNatCash:
		return QueuePaymentsNatCash
	case ChannelStripe:
		return QueuePaymentsStripe
	default:
		return QueuePaymentsDLQ
	}
}

// JobStatus represents where a queued job sits in its at-least-once
// delivery lifecycle.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusInFlight JobStatus = "in_flight"
	JobStatusDone     JobStatus = "done"
	JobStatusDead     JobStatus = "dead"
)

// QueueJob is one durable job row. Payload carries the handler-specific
// JSON body (a payment reference for dispatch jobs, a webhook log id for
// delivery jobs).
type QueueJob struct {
	ID          uuid.UUID
	Queue       Queue
	Payload     []byte
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	RunAt       time.Time
	LockedBy    *string
	LockedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Exhausted reports whether the job has used its full attempt budget.
func (j *QueueJob) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// NextRunAt computes the exponential backoff delay for the next attempt:
// base * 2^attempt, per spec §4.D (payments base 2s, webhooks base 5s).
func NextRunAt(now time.Time, base time.Duration, attempt int) time.Time {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return now.Add(delay)
}
