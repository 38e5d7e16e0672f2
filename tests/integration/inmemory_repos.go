package integration

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
)

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment // keyed by reference
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[string]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(_ context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.Reference] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) FindByReference(_ context.Context, merchantID uuid.UUID, reference string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[reference]
	if !ok || p.MerchantID != merchantID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) FindByReferencePublic(_ context.Context, reference string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[reference]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) FindByProviderTransactionID(_ context.Context, providerTxID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.ProviderTransactionID != nil && *p.ProviderTransactionID == providerTxID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) LockByReference(_ context.Context, _ pgx.Tx, reference string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[reference]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) UpdateStatus(_ context.Context, _ pgx.Tx, p *domain.Payment, expectedStatus domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.payments[p.Reference]
	if !ok || existing.Status != expectedStatus {
		return false, nil
	}
	cp := *p
	r.payments[p.Reference] = &cp
	return true, nil
}

func (r *inMemoryPaymentRepo) List(_ context.Context, merchantID uuid.UUID, filter ports.PaymentListFilter) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domain.Payment
	for _, p := range r.payments {
		if p.MerchantID != merchantID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Channel != nil && p.Channel != *filter.Channel {
			continue
		}
		if filter.From != nil && p.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && p.CreatedAt.After(*filter.To) {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}

	// ORDER BY created_at DESC, id DESC, matching the Postgres repo.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})

	hasCursor := !filter.CursorCreatedAt.IsZero()
	var out []*domain.Payment
	for _, p := range matched {
		if hasCursor {
			before := p.CreatedAt.Before(filter.CursorCreatedAt) ||
				(p.CreatedAt.Equal(filter.CursorCreatedAt) && p.ID.String() < filter.CursorID.String())
			if !before {
				continue
			}
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *inMemoryPaymentRepo) ExpireOverdue(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusPending && p.ExpiresAt.Before(now) {
			p.Status = domain.PaymentStatusExpired
			n++
		}
	}
	return n, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu   sync.RWMutex
	txns []*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{}
}

func (r *inMemoryTransactionRepo) Create(_ context.Context, _ pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.txns = append(r.txns, &cp)
	return nil
}

func (r *inMemoryTransactionRepo) SumRefunds(_ context.Context, paymentID uuid.UUID) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum float64
	for _, t := range r.txns {
		if t.PaymentID == paymentID && t.Type == domain.TransactionTypeRefund {
			sum += t.Amount
		}
	}
	return sum, nil
}

// --- In-Memory Customer Repo ---

type inMemoryCustomerRepo struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]*domain.Customer
}

func newInMemoryCustomerRepo() *inMemoryCustomerRepo {
	return &inMemoryCustomerRepo{customers: make(map[uuid.UUID]*domain.Customer)}
}

func (r *inMemoryCustomerRepo) FindByIdentity(_ context.Context, _ pgx.Tx, merchantID uuid.UUID, environment string, email, phone *string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.customers {
		if c.MerchantID != merchantID || c.Environment != environment {
			continue
		}
		if email != nil && c.Email != nil && *c.Email == *email {
			return c, nil
		}
		if phone != nil && c.Phone != nil && *c.Phone == *phone {
			return c, nil
		}
	}
	return nil, nil
}

func (r *inMemoryCustomerRepo) Create(_ context.Context, _ pgx.Tx, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID] = c
	return nil
}

func (r *inMemoryCustomerRepo) Update(_ context.Context, _ pgx.Tx, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID] = c
	return nil
}

// --- In-Memory Webhook Config / Log Repos ---

type inMemoryWebhookConfigRepo struct {
	mu      sync.RWMutex
	configs map[uuid.UUID]*domain.WebhookConfig
}

func newInMemoryWebhookConfigRepo() *inMemoryWebhookConfigRepo {
	return &inMemoryWebhookConfigRepo{configs: make(map[uuid.UUID]*domain.WebhookConfig)}
}

func (r *inMemoryWebhookConfigRepo) add(c *domain.WebhookConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[c.ID] = c
}

func (r *inMemoryWebhookConfigRepo) ListActiveForMerchant(_ context.Context, merchantID uuid.UUID) ([]*domain.WebhookConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.WebhookConfig
	for _, c := range r.configs {
		if c.MerchantID == merchantID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *inMemoryWebhookConfigRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.WebhookConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configs[id], nil
}

type inMemoryWebhookLogRepo struct {
	mu   sync.RWMutex
	logs map[uuid.UUID]*domain.WebhookLog
}

func newInMemoryWebhookLogRepo() *inMemoryWebhookLogRepo {
	return &inMemoryWebhookLogRepo{logs: make(map[uuid.UUID]*domain.WebhookLog)}
}

func (r *inMemoryWebhookLogRepo) Create(_ context.Context, log *domain.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.ID] = log
	return nil
}

func (r *inMemoryWebhookLogRepo) Get(_ context.Context, id uuid.UUID) (*domain.WebhookLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logs[id], nil
}

func (r *inMemoryWebhookLogRepo) Update(_ context.Context, log *domain.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.ID] = log
	return nil
}

func (r *inMemoryWebhookLogRepo) ListForPayment(_ context.Context, paymentID uuid.UUID) ([]*domain.WebhookLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.WebhookLog
	for _, l := range r.logs {
		if l.PaymentID == paymentID {
			out = append(out, l)
		}
	}
	return out, nil
}

// --- In-Memory Queue Repo (synchronous: jobs are handed back on demand) ---

type inMemoryQueueRepo struct {
	mu   sync.Mutex
	jobs map[domain.Queue][]*domain.QueueJob
}

func newInMemoryQueueRepo() *inMemoryQueueRepo {
	return &inMemoryQueueRepo{jobs: make(map[domain.Queue][]*domain.QueueJob)}
}

func (r *inMemoryQueueRepo) Enqueue(_ context.Context, queue domain.Queue, payload []byte, maxAttempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[queue] = append(r.jobs[queue], &domain.QueueJob{
		ID:          uuid.New(),
		Queue:       queue,
		Payload:     payload,
		Status:      domain.JobStatusQueued,
		MaxAttempts: maxAttempts,
		RunAt:       time.Now(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	})
	return nil
}

func (r *inMemoryQueueRepo) Dequeue(_ context.Context, queue domain.Queue, workerID string, limit int) ([]*domain.QueueJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.jobs[queue]
	var claimed []*domain.QueueJob
	var remaining []*domain.QueueJob
	for _, j := range pending {
		if len(claimed) < limit && j.Status == domain.JobStatusQueued && !j.RunAt.After(time.Now()) {
			j.Status = domain.JobStatusInFlight
			j.LockedBy = &workerID
			claimed = append(claimed, j)
		} else {
			remaining = append(remaining, j)
		}
	}
	r.jobs[queue] = append(remaining, claimed...)
	return claimed, nil
}

func (r *inMemoryQueueRepo) MarkDone(_ context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, jobs := range r.jobs {
		for _, j := range jobs {
			if j.ID == jobID {
				j.Status = domain.JobStatusDone
			}
		}
	}
	return nil
}

func (r *inMemoryQueueRepo) Reschedule(_ context.Context, job *domain.QueueJob, base time.Duration, dlqOnExhaustion bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.Attempts++
	if job.Exhausted() {
		job.Status = domain.JobStatusDead
		if dlqOnExhaustion {
			r.jobs[domain.QueuePaymentsDLQ] = append(r.jobs[domain.QueuePaymentsDLQ], job)
		}
		return nil
	}
	job.Status = domain.JobStatusQueued
	job.RunAt = domain.NextRunAt(time.Now(), base, job.Attempts)
	for _, jobs := range r.jobs[job.Queue] {
		if jobs.ID == job.ID {
			*jobs = *job
		}
	}
	return nil
}

// --- In-Memory Transactor (no-op tx, mutations apply directly to the maps above) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor { return &inMemoryTransactor{} }

func (t *inMemoryTransactor) Begin(_ context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                              { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *noopTx) Conn() *pgx.Conn                                              { return nil }

// --- Fake Provider (stands in for moncash/natcash/stripe in tests) ---

type fakeProvider struct {
	createResult CreateResultHolder
	statusResult ports.StatusResult
	event        ports.CallbackEvent
	eventErr     error
}

// CreateResultHolder avoids importing ports twice under two names.
type CreateResultHolder = ports.CreateResult

func (p *fakeProvider) Create(_ context.Context, req ports.CreateRequest) (ports.CreateResult, error) {
	return p.createResult, nil
}

func (p *fakeProvider) Status(_ context.Context, providerTxID string) (ports.StatusResult, error) {
	return p.statusResult, nil
}

func (p *fakeProvider) Refund(_ context.Context, providerTxID string, amount float64) (ports.RefundResult, error) {
	return ports.RefundResult{RefundID: "refund_" + providerTxID, Status: "succeeded"}, nil
}

func (p *fakeProvider) VerifyCallback(_ []byte, _ http.Header) (ports.CallbackEvent, error) {
	return p.event, p.eventErr
}
