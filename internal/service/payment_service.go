package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/apperror"
	"github.com/dhecash/gateway/pkg/refid"
)

const (
	idempotencyTTL = 24 * time.Hour
	paymentTTL     = 30 * time.Minute
)

// PaymentService implements ports.PaymentService: create (idempotency + state
// machine entry), dispatch to provider, read, and refund.
type PaymentService struct {
	payments    ports.PaymentRepository
	txns        ports.TransactionRepository
	customers   ports.CustomerRepository
	idempCache  ports.IdempotencyCache
	transactor  ports.DBTransactor
	providers   map[domain.Channel]ports.Provider
	queue       ports.QueueRepository
	dispatcher  ports.WebhookDispatcher
	queueCfg    QueueAttemptConfig
	log         zerolog.Logger
}

// QueueAttemptConfig carries the per-queue attempt budgets the service
// needs when enqueueing (the queue worker's backoff/concurrency tuning
// lives with the worker itself, not here).
type QueueAttemptConfig struct {
	PaymentAttempts int
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(
	payments ports.PaymentRepository,
	txns ports.TransactionRepository,
	customers ports.CustomerRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	providers map[domain.Channel]ports.Provider,
	queue ports.QueueRepository,
	dispatcher ports.WebhookDispatcher,
	queueCfg QueueAttemptConfig,
	log zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		payments:   payments,
		txns:       txns,
		customers:  customers,
		idempCache: idempCache,
		transactor: transactor,
		providers:  providers,
		queue:      queue,
		dispatcher: dispatcher,
		queueCfg:   queueCfg,
		log:        log,
	}
}

// Create validates, idempotency-checks, writes the payment in pending
// state, and enqueues the channel-specific dispatch job (spec §4.E, §4.F).
// The returned bool reports whether this is a replayed (cached) response.
func (s *PaymentService) Create(ctx context.Context, merchantID uuid.UUID, req ports.CreatePaymentInput, idempotencyKey string) (*domain.Payment, bool, error) {
	if req.Amount <= 0 {
		return nil, false, apperror.ErrValidation("amount must be positive")
	}
	if req.Currency != "HTG" && req.Currency != "USD" {
		return nil, false, apperror.ErrValidation("currency must be HTG or USD")
	}

	if idempotencyKey != "" {
		if cached, ok, err := s.idempCache.Get(ctx, merchantID, idempotencyKey); err == nil && ok {
			var p domain.Payment
			if err := json.Unmarshal(cached, &p); err != nil {
				return nil, false, apperror.InternalError(fmt.Errorf("unmarshal cached payment: %w", err))
			}
			return &p, true, nil
		}
	}

	feeRate := domain.FeeRates[req.Channel]
	feeAmount, netAmount := domain.ComputeFee(req.Amount, feeRate)
	now := time.Now()

	payment := &domain.Payment{
		ID:            uuid.New(),
		Reference:     refid.New(refid.PrefixPayment),
		MerchantID:    merchantID,
		Channel:       req.Channel,
		Status:        domain.PaymentStatusPending,
		Amount:        req.Amount,
		Currency:      req.Currency,
		FeeRate:       feeRate,
		FeeAmount:     feeAmount,
		NetAmount:     netAmount,
		OrderID:       req.OrderID,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		CustomerName:  req.CustomerName,
		Metadata:      req.Metadata,
		ExpiresAt:     now.Add(paymentTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if idempotencyKey != "" {
		payment.IdempotencyKey = &idempotencyKey
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	queueName := domain.PaymentQueueForChannel(req.Channel)
	if err := s.queue.Enqueue(ctx, queueName, []byte(payment.Reference), s.queueCfg.PaymentAttempts); err != nil {
		s.log.Error().Err(err).Str("payment_ref", payment.Reference).Msg("failed to enqueue dispatch job")
	}

	if idempotencyKey != "" {
		body, err := json.Marshal(payment)
		if err == nil {
			if err := s.idempCache.Set(ctx, merchantID, idempotencyKey, body, idempotencyTTL); err != nil {
				s.log.Warn().Err(err).Msg("failed to cache idempotent create response")
			}
		}
	}

	s.log.Info().Str("payment_ref", payment.Reference).Str("channel", string(req.Channel)).Msg("payment created")
	return payment, false, nil
}

// Get reads one merchant-scoped payment by reference.
func (s *PaymentService) Get(ctx context.Context, merchantID uuid.UUID, reference string) (*domain.Payment, error) {
	p, err := s.payments.FindByReference(ctx, merchantID, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find payment: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrPaymentNotFound()
	}
	return p, nil
}

// GetPublic reads a payment by reference with no merchant scoping, for the
// unauthenticated hosted checkout page.
func (s *PaymentService) GetPublic(ctx context.Context, reference string) (*domain.Payment, error) {
	p, err := s.payments.FindByReferencePublic(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find payment: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrPaymentNotFound()
	}
	return p, nil
}

// List reads a filtered, paginated set of a merchant's payments.
func (s *PaymentService) List(ctx context.Context, merchantID uuid.UUID, filter ports.PaymentListFilter) ([]*domain.Payment, error) {
	payments, err := s.payments.List(ctx, merchantID, filter)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list payments: %w", err))
	}
	return payments, nil
}

// Dispatch is invoked by the queue worker for a pending payment: acquire a
// provider token (handled inside the adapter), call Create, and advance
// pending -> processing with the returned provider handle (spec §4.E row 2).
func (s *PaymentService) Dispatch(ctx context.Context, reference string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := s.payments.LockByReference(ctx, dbTx, reference)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil {
		return apperror.ErrPaymentNotFound()
	}

	if payment.Status != domain.PaymentStatusPending {
		// Already dispatched (retried job, or callback raced ahead); no-op.
		return nil
	}

	if payment.IsExpired(time.Now()) {
		payment.Status = domain.PaymentStatusExpired
		if _, err := s.payments.UpdateStatus(ctx, dbTx, payment, domain.PaymentStatusPending); err != nil {
			return apperror.InternalError(fmt.Errorf("expire payment: %w", err))
		}
		return dbTx.Commit(ctx)
	}

	provider, ok := s.providers[payment.Channel]
	if !ok {
		return apperror.ErrProviderUnavailable(fmt.Sprintf("no adapter configured for channel %q", payment.Channel))
	}

	var orderID string
	if payment.OrderID != nil {
		orderID = *payment.OrderID
	}

	result, err := provider.Create(ctx, ports.CreateRequest{
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		OrderID:     orderID,
		PaymentRef:  payment.Reference,
		Phone:       payment.CustomerPhone,
		Email:       payment.CustomerEmail,
	})
	if err != nil {
		// Provider errors propagate to the worker, which reschedules per
		// backoff; validation errors never reach this path (checked at Create).
		return err
	}

	payment.Status = domain.PaymentStatusProcessing
	payment.ProviderTransactionID = &result.ProviderTransactionID
	payment.RedirectURL = &result.RedirectURL
	now := time.Now()
	payment.ProcessingAt = &now

	ok2, err := s.payments.UpdateStatus(ctx, dbTx, payment, domain.PaymentStatusPending)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("update payment to processing: %w", err))
	}
	if !ok2 {
		// Lost the optimistic race (e.g. a callback already moved it); no-op.
		return nil
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit dispatch tx: %w", err))
	}

	s.log.Info().Str("payment_ref", payment.Reference).Str("provider_tx_id", result.ProviderTransactionID).Msg("payment dispatched to provider")
	return nil
}

// Refund applies a partial or full refund inside one transaction, grounded
// on the teacher's ProcessRefund: locked read, amount validation, ledger
// insert + status update committed atomically (spec §4.I).
func (s *PaymentService) Refund(ctx context.Context, merchantID uuid.UUID, reference string, amount float64, reason string) (*domain.Payment, *domain.Transaction, error) {
	if amount <= 0 {
		return nil, nil, apperror.ErrValidation("refund amount must be positive")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := s.payments.LockByReference(ctx, dbTx, reference)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil || payment.MerchantID != merchantID {
		return nil, nil, apperror.ErrPaymentNotFound()
	}
	if !payment.RefundEligible() {
		return nil, nil, apperror.ErrRefundNotAllowed()
	}
	if amount > payment.Outstanding() {
		return nil, nil, apperror.ErrRefundExceedsAmount()
	}

	expectedStatus := payment.Status

	txn := &domain.Transaction{
		ID:         uuid.New(),
		Reference:  refid.New(refid.PrefixTransaction),
		PaymentID:  payment.ID,
		MerchantID: merchantID,
		Type:       domain.TransactionTypeRefund,
		Status:     domain.TransactionStatusSuccess,
		Amount:     amount,
		Currency:   payment.Currency,
		CreatedAt:  time.Now(),
	}
	if err := s.txns.Create(ctx, dbTx, txn); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create refund ledger row: %w", err))
	}

	payment.RefundedAmount = payment.RefundedAmount + amount
	if payment.RefundedAmount >= payment.Amount {
		payment.Status = domain.PaymentStatusRefunded
	} else {
		payment.Status = domain.PaymentStatusPartiallyRefunded
	}

	ok, err := s.payments.UpdateStatus(ctx, dbTx, payment, expectedStatus)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("update payment for refund: %w", err))
	}
	if !ok {
		return nil, nil, apperror.InternalError(fmt.Errorf("concurrent modification detected during refund"))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("commit refund tx: %w", err))
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, payment, domain.EventPaymentRefunded); err != nil {
			s.log.Warn().Err(err).Str("payment_ref", payment.Reference).Msg("failed to dispatch refund webhook")
		}
	}

	s.log.Info().Str("payment_ref", payment.Reference).Float64("amount", amount).Str("status", string(payment.Status)).Str("reason", reason).Msg("refund applied")
	return payment, txn, nil
}
