// Package ports defines the interfaces connecting the core services to
// their storage, provider, and queue adapters.
package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/dhecash/gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HealthChecker is implemented by each dependency the deep health check
// probes (PostgreSQL, Redis).
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

// DBTransactor begins a database transaction. State-machine transitions and
// refunds run inside one transaction so the status change and its
// dependent inserts commit atomically or not at all.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PaymentRepository persists and locates Payment rows.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	FindByReference(ctx context.Context, merchantID uuid.UUID, reference string) (*domain.Payment, error)
	// FindByReferencePublic looks up a payment by reference alone, with no
	// merchant scoping — backs the unauthenticated checkout read.
	FindByReferencePublic(ctx context.Context, reference string) (*domain.Payment, error)
	FindByProviderTransactionID(ctx context.Context, providerTxID string) (*domain.Payment, error)
	// LockByReference reads the row FOR UPDATE within tx for a state transition.
	LockByReference(ctx context.Context, tx pgx.Tx, reference string) (*domain.Payment, error)
	// UpdateStatus applies a transition guarded by an optimistic
	// WHERE status = expectedStatus check, making repeat callbacks no-ops.
	// Returns false (no error) if the guard did not match (already transitioned).
	UpdateStatus(ctx context.Context, tx pgx.Tx, p *domain.Payment, expectedStatus domain.PaymentStatus) (bool, error)
	List(ctx context.Context, merchantID uuid.UUID, filter PaymentListFilter) ([]*domain.Payment, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// PaymentListFilter carries the cursor-pagination and filter parameters
// for GET /v1/payments. CursorCreatedAt/CursorID are the decoded fields of
// an opaque pagination cursor (see pkg/cursor); both are zero when no
// cursor was supplied.
type PaymentListFilter struct {
	Status          *domain.PaymentStatus
	Channel         *domain.Channel
	From            *time.Time
	To              *time.Time
	CursorCreatedAt time.Time
	CursorID        uuid.UUID
	Limit           int
}

// TransactionRepository persists immutable ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	SumRefunds(ctx context.Context, paymentID uuid.UUID) (float64, error)
}

// CustomerRepository finds and upserts repeat-payer aggregates.
type CustomerRepository interface {
	FindByIdentity(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, environment string, email, phone *string) (*domain.Customer, error)
	Create(ctx context.Context, tx pgx.Tx, c *domain.Customer) error
	Update(ctx context.Context, tx pgx.Tx, c *domain.Customer) error
}

// WebhookConfigRepository reads merchant delivery target configuration.
type WebhookConfigRepository interface {
	ListActiveForMerchant(ctx context.Context, merchantID uuid.UUID) ([]*domain.WebhookConfig, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
}

// WebhookLogRepository persists delivery attempt records.
type WebhookLogRepository interface {
	Create(ctx context.Context, log *domain.WebhookLog) error
	Get(ctx context.Context, id uuid.UUID) (*domain.WebhookLog, error)
	Update(ctx context.Context, log *domain.WebhookLog) error
	ListForPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.WebhookLog, error)
}

// QueueRepository implements the durable job queue contract (spec §4.D).
type QueueRepository interface {
	Enqueue(ctx context.Context, queue domain.Queue, payload []byte, maxAttempts int) error
	// Dequeue claims up to limit eligible jobs via SELECT ... FOR UPDATE SKIP LOCKED.
	Dequeue(ctx context.Context, queue domain.Queue, workerID string, limit int) ([]*domain.QueueJob, error)
	MarkDone(ctx context.Context, jobID uuid.UUID) error
	// Reschedule bumps attempts and sets the next run_at via backoff, or
	// moves the job to dead (copying a payments job into payments.dlq) once
	// attempts are exhausted.
	Reschedule(ctx context.Context, job *domain.QueueJob, base time.Duration, dlqOnExhaustion bool) error
}

// TokenCache stores OAuth2 client-credential tokens for provider adapters.
type TokenCache interface {
	Get(ctx context.Context, provider string) (string, bool, error)
	Set(ctx context.Context, provider string, token string, ttl time.Duration) error
}

// IdempotencyCache stores create-payment responses keyed by
// (merchant_id, idempotency key), per the Open Question resolution in
// SPEC_FULL.md §9.
type IdempotencyCache interface {
	Get(ctx context.Context, merchantID uuid.UUID, key string) ([]byte, bool, error)
	Set(ctx context.Context, merchantID uuid.UUID, key string, response []byte, ttl time.Duration) error
}

// Provider is the capability set every processor adapter implements
// (spec §4.B).
type Provider interface {
	Create(ctx context.Context, req CreateRequest) (CreateResult, error)
	Status(ctx context.Context, providerTxID string) (StatusResult, error)
	Refund(ctx context.Context, providerTxID string, amount float64) (RefundResult, error)
	VerifyCallback(rawBody []byte, headers http.Header) (CallbackEvent, error)
}

// CreateRequest is the provider-agnostic payment creation request.
type CreateRequest struct {
	Amount      float64
	Currency    string
	OrderID     string
	PaymentRef  string
	Phone       *string
	Email       *string
	Description string
	CallbackURL string
}

// CreateResult is what the provider hands back for a newly initiated payment.
type CreateResult struct {
	ProviderTransactionID string
	RedirectURL           string
	Reference             string
}

// StatusResult is a point-in-time read of a provider transaction.
type StatusResult struct {
	Status domain.PaymentStatus
	Payer  *string
}

// RefundResult is what the provider hands back for a refund request.
type RefundResult struct {
	RefundID string
	Status   string
}

// CallbackEvent is the provider-agnostic shape the reconciler consumes
// after authenticity has been verified.
type CallbackEvent struct {
	ProviderTransactionID string
	Status                domain.PaymentStatus
	FailureReason         string
	RefundAmount          float64 // set only for charge.refunded-style events
}

// PaymentService is the primary use-case surface the HTTP layer drives.
type PaymentService interface {
	Create(ctx context.Context, merchantID uuid.UUID, req CreatePaymentInput, idempotencyKey string) (*domain.Payment, bool, error)
	Get(ctx context.Context, merchantID uuid.UUID, reference string) (*domain.Payment, error)
	GetPublic(ctx context.Context, reference string) (*domain.Payment, error)
	List(ctx context.Context, merchantID uuid.UUID, filter PaymentListFilter) ([]*domain.Payment, error)
	Refund(ctx context.Context, merchantID uuid.UUID, reference string, amount float64, reason string) (*domain.Payment, *domain.Transaction, error)
	Dispatch(ctx context.Context, reference string) error // worker-driven pending->processing
}

// CreatePaymentInput is the validated, provider-agnostic create request.
type CreatePaymentInput struct {
	Amount        float64
	Currency      string
	Channel       domain.Channel
	OrderID       *string
	CustomerEmail *string
	CustomerPhone *string
	CustomerName  *string
	Metadata      map[string]interface{}
}

// CallbackReconciler authenticates and applies provider status notifications.
type CallbackReconciler interface {
	Reconcile(ctx context.Context, channel domain.Channel, rawBody []byte, headers http.Header) error
}

// WebhookDispatcher fans events out to subscribed merchant endpoints.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, payment *domain.Payment, event domain.EventType) error
	Deliver(ctx context.Context, logID uuid.UUID) error // invoked by the queue worker
}

// SignatureService signs and verifies the HMAC-SHA256 envelope attached to
// outbound webhook deliveries (spec §4.H).
type SignatureService interface {
	Sign(secretKey, payload string) string
	Verify(secretKey, payload, signature string) bool
}

// EncryptionService protects merchant webhook secrets at rest with
// AES-256-GCM.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService issues and validates the long-lived bearer JWT that stands
// in for a merchant API key at the HTTP trust boundary (spec §1 scope
// note: the full auth subsystem is out of core scope, this is the
// boundary the payment API trusts).
type TokenService interface {
	Generate(merchantID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	MerchantID uuid.UUID
}
