package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/apperror"
	"github.com/dhecash/gateway/pkg/refid"
)

// CallbackReconciler authenticates provider callbacks and applies the
// resulting state transition atomically with its ledger/customer side
// effects (spec §4.G).
type CallbackReconciler struct {
	providers  map[domain.Channel]ports.Provider
	payments   ports.PaymentRepository
	txns       ports.TransactionRepository
	customers  ports.CustomerRepository
	transactor ports.DBTransactor
	dispatcher ports.WebhookDispatcher
	log        zerolog.Logger
}

// NewCallbackReconciler creates a CallbackReconciler.
func NewCallbackReconciler(
	providers map[domain.Channel]ports.Provider,
	payments ports.PaymentRepository,
	txns ports.TransactionRepository,
	customers ports.CustomerRepository,
	transactor ports.DBTransactor,
	dispatcher ports.WebhookDispatcher,
	log zerolog.Logger,
) *CallbackReconciler {
	return &CallbackReconciler{
		providers:  providers,
		payments:   payments,
		txns:       txns,
		customers:  customers,
		transactor: transactor,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Reconcile verifies, locates, and applies one provider callback. A
// validation AppError means signature or payload failure before any state
// change; an unmatched handle is logged and treated as success so the
// provider does not retry indefinitely (spec §4.G step 4, a known
// trade-off).
func (r *CallbackReconciler) Reconcile(ctx context.Context, channel domain.Channel, rawBody []byte, headers http.Header) error {
	provider, ok := r.providers[channel]
	if !ok {
		return apperror.ErrProviderUnavailable(fmt.Sprintf("no adapter configured for channel %q", channel))
	}

	event, err := provider.VerifyCallback(rawBody, headers)
	if err != nil {
		return apperror.ErrValidation(fmt.Sprintf("callback verification failed: %v", err))
	}

	payment, err := r.payments.FindByProviderTransactionID(ctx, event.ProviderTransactionID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find payment by provider tx id: %w", err))
	}
	if payment == nil {
		r.log.Info().Str("channel", string(channel)).Str("provider_tx_id", event.ProviderTransactionID).Msg("callback for unmatched payment, ignoring")
		return nil
	}

	if event.RefundAmount > 0 {
		return r.applyRefundEvent(ctx, payment.Reference, event)
	}
	return r.applyStatusEvent(ctx, payment.Reference, event)
}

func (r *CallbackReconciler) applyStatusEvent(ctx context.Context, reference string, event ports.CallbackEvent) error {
	dbTx, err := r.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := r.payments.LockByReference(ctx, dbTx, reference)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil {
		return nil
	}

	if payment.Status == event.Status {
		// Already at target: idempotent no-op (spec §4.E).
		return nil
	}
	if payment.Status != domain.PaymentStatusProcessing {
		// Any other observed state means this callback is stale or
		// out of order; ignore rather than force an invalid transition.
		return nil
	}

	expectedStatus := payment.Status
	now := time.Now()
	var outboundEvent domain.EventType

	switch event.Status {
	case domain.PaymentStatusCompleted:
		payment.Status = domain.PaymentStatusCompleted
		payment.CompletedAt = &now
		outboundEvent = domain.EventPaymentSucceeded

		txn := &domain.Transaction{
			ID:         uuid.New(),
			Reference:  refid.New(refid.PrefixTransaction),
			PaymentID:  payment.ID,
			MerchantID: payment.MerchantID,
			Type:       domain.TransactionTypeCredit,
			Status:     domain.TransactionStatusSuccess,
			Amount:     payment.Amount,
			Currency:   payment.Currency,
			CreatedAt:  now,
		}
		if err := r.txns.Create(ctx, dbTx, txn); err != nil {
			return apperror.InternalError(fmt.Errorf("create credit ledger row: %w", err))
		}

		if err := r.upsertCustomer(ctx, dbTx, payment, now); err != nil {
			return err
		}

	case domain.PaymentStatusFailed:
		payment.Status = domain.PaymentStatusFailed
		payment.FailedAt = &now
		if event.FailureReason != "" {
			payment.FailureReason = &event.FailureReason
		}
		outboundEvent = domain.EventPaymentFailed

	case domain.PaymentStatusCancelled:
		payment.Status = domain.PaymentStatusCancelled
		payment.CancelledAt = &now
		outboundEvent = domain.EventPaymentCancelled

	default:
		// processing / pending / refund-family statuses never arrive as a
		// plain status callback; nothing to apply.
		return nil
	}

	ok, err := r.payments.UpdateStatus(ctx, dbTx, payment, expectedStatus)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("apply callback transition: %w", err))
	}
	if !ok {
		// Lost the optimistic race to a concurrent transition; no-op.
		return nil
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit callback tx: %w", err))
	}

	if r.dispatcher != nil {
		if err := r.dispatcher.Dispatch(ctx, payment, outboundEvent); err != nil {
			r.log.Warn().Err(err).Str("payment_ref", payment.Reference).Msg("failed to dispatch status webhook")
		}
	}

	r.log.Info().Str("payment_ref", payment.Reference).Str("status", string(payment.Status)).Msg("callback applied")
	return nil
}

// applyRefundEvent handles charge.refunded-style provider events (Stripe):
// the provider itself confirms a refund already issued out-of-band, so the
// ledger and status are reconciled the same way PaymentService.Refund does.
func (r *CallbackReconciler) applyRefundEvent(ctx context.Context, reference string, event ports.CallbackEvent) error {
	dbTx, err := r.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := r.payments.LockByReference(ctx, dbTx, reference)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil || !payment.RefundEligible() {
		return nil
	}
	if event.RefundAmount <= 0 || event.RefundAmount <= payment.RefundedAmount {
		// Already reconciled (repeat webhook delivery); no-op.
		return nil
	}

	expectedStatus := payment.Status
	delta := event.RefundAmount - payment.RefundedAmount

	txn := &domain.Transaction{
		ID:         uuid.New(),
		Reference:  refid.New(refid.PrefixTransaction),
		PaymentID:  payment.ID,
		MerchantID: payment.MerchantID,
		Type:       domain.TransactionTypeRefund,
		Status:     domain.TransactionStatusSuccess,
		Amount:     delta,
		Currency:   payment.Currency,
		CreatedAt:  time.Now(),
	}
	if err := r.txns.Create(ctx, dbTx, txn); err != nil {
		return apperror.InternalError(fmt.Errorf("create refund ledger row: %w", err))
	}

	payment.RefundedAmount = event.RefundAmount
	if payment.RefundedAmount >= payment.Amount {
		payment.Status = domain.PaymentStatusRefunded
	} else {
		payment.Status = domain.PaymentStatusPartiallyRefunded
	}

	ok, err := r.payments.UpdateStatus(ctx, dbTx, payment, expectedStatus)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("apply refund callback: %w", err))
	}
	if !ok {
		return nil
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit refund callback tx: %w", err))
	}

	if r.dispatcher != nil {
		if err := r.dispatcher.Dispatch(ctx, payment, domain.EventPaymentRefunded); err != nil {
			r.log.Warn().Err(err).Str("payment_ref", payment.Reference).Msg("failed to dispatch refund webhook")
		}
	}

	return nil
}

// upsertCustomer folds a completed payment into the paying customer's
// running totals, scoped by (merchant_id, environment) matching either
// identifier (spec §4.E "Customer upsert").
func (r *CallbackReconciler) upsertCustomer(ctx context.Context, dbTx pgx.Tx, payment *domain.Payment, now time.Time) error {
	if payment.CustomerEmail == nil && payment.CustomerPhone == nil {
		return nil
	}

	const environment = "live"

	existing, err := r.customers.FindByIdentity(ctx, dbTx, payment.MerchantID, environment, payment.CustomerEmail, payment.CustomerPhone)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find customer: %w", err))
	}

	if existing == nil {
		c := &domain.Customer{
			ID:             uuid.New(),
			MerchantID:     payment.MerchantID,
			Environment:    environment,
			Email:          payment.CustomerEmail,
			Phone:          payment.CustomerPhone,
			Name:           payment.CustomerName,
			TotalSpent:     payment.Amount,
			PaymentCount:   1,
			FirstPaymentAt: now,
			LastPaymentAt:  now,
		}
		if err := r.customers.Create(ctx, dbTx, c); err != nil {
			return apperror.InternalError(fmt.Errorf("create customer: %w", err))
		}
		payment.CustomerID = &c.ID
		return nil
	}

	existing.ApplyPayment(payment.Amount, payment.CustomerName, now)
	if err := r.customers.Update(ctx, dbTx, existing); err != nil {
		return apperror.InternalError(fmt.Errorf("update customer: %w", err))
	}
	payment.CustomerID = &existing.ID
	return nil
}
