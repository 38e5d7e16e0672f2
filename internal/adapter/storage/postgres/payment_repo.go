package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository against PostgreSQL.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	metadata, err := marshalMetadata(p.Metadata)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO payments (
			id, reference, merchant_id, channel, status, amount, currency,
			fee_rate, fee_amount, net_amount, refunded_amount,
			provider_transaction_id, redirect_url, idempotency_key,
			customer_email, customer_phone, customer_name, customer_id,
			order_id, metadata, failure_reason, expires_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)`,
		p.ID, p.Reference, p.MerchantID, p.Channel, p.Status, p.Amount, p.Currency,
		p.FeeRate, p.FeeAmount, p.NetAmount, p.RefundedAmount,
		p.ProviderTransactionID, p.RedirectURL, p.IdempotencyKey,
		p.CustomerEmail, p.CustomerPhone, p.CustomerName, p.CustomerID,
		p.OrderID, metadata, p.FailureReason, p.ExpiresAt,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *PaymentRepo) FindByReference(ctx context.Context, merchantID uuid.UUID, reference string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, selectPaymentSQL+" WHERE reference = $1 AND merchant_id = $2", reference, merchantID)
	return scanPayment(row)
}

func (r *PaymentRepo) FindByReferencePublic(ctx context.Context, reference string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, selectPaymentSQL+" WHERE reference = $1", reference)
	return scanPayment(row)
}

func (r *PaymentRepo) FindByProviderTransactionID(ctx context.Context, providerTxID string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, selectPaymentSQL+" WHERE provider_transaction_id = $1", providerTxID)
	return scanPayment(row)
}

func (r *PaymentRepo) LockByReference(ctx context.Context, tx pgx.Tx, reference string) (*domain.Payment, error) {
	row := tx.QueryRow(ctx, selectPaymentSQL+" WHERE reference = $1 FOR UPDATE", reference)
	return scanPayment(row)
}

func (r *PaymentRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, p *domain.Payment, expectedStatus domain.PaymentStatus) (bool, error) {
	metadata, err := marshalMetadata(p.Metadata)
	if err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE payments SET
			status = $1, provider_transaction_id = $2, redirect_url = $3,
			fee_amount = $4, net_amount = $5, refunded_amount = $6,
			failure_reason = $7, customer_id = $8, metadata = $9,
			processing_at = $10, completed_at = $11, failed_at = $12,
			cancelled_at = $13, updated_at = $14
		WHERE reference = $15 AND status = $16`,
		p.Status, p.ProviderTransactionID, p.RedirectURL,
		p.FeeAmount, p.NetAmount, p.RefundedAmount,
		p.FailureReason, p.CustomerID, metadata,
		p.ProcessingAt, p.CompletedAt, p.FailedAt,
		p.CancelledAt, p.UpdatedAt,
		p.Reference, expectedStatus,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PaymentRepo) List(ctx context.Context, merchantID uuid.UUID, filter ports.PaymentListFilter) ([]*domain.Payment, error) {
	query := selectPaymentSQL + " WHERE merchant_id = $1"
	args := []interface{}{merchantID}
	idx := 2

	if filter.Status != nil {
		query += " AND status = $" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Channel != nil {
		query += " AND channel = $" + itoa(idx)
		args = append(args, *filter.Channel)
		idx++
	}
	if filter.From != nil {
		query += " AND created_at >= $" + itoa(idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		query += " AND created_at <= $" + itoa(idx)
		args = append(args, *filter.To)
		idx++
	}
	if !filter.CursorCreatedAt.IsZero() {
		query += " AND (created_at, id) < ($" + itoa(idx) + ", $" + itoa(idx+1) + ")"
		args = append(args, filter.CursorCreatedAt, filter.CursorID)
		idx += 2
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + itoa(idx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ExpireOverdue sweeps pending payments whose expiry has passed into the
// expired state (spec §4.E's optional background sweep).
func (r *PaymentRepo) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at < $2`,
		domain.PaymentStatusExpired, now, domain.PaymentStatusPending,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

const selectPaymentSQL = `
	SELECT id, reference, merchant_id, channel, status, amount, currency,
		fee_rate, fee_amount, net_amount, refunded_amount,
		provider_transaction_id, redirect_url, idempotency_key,
		customer_email, customer_phone, customer_name, customer_id,
		order_id, metadata, failure_reason, expires_at,
		created_at, updated_at, processing_at, completed_at, failed_at, cancelled_at
	FROM payments`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	p, err := scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func scanPaymentRow(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var metadata []byte
	if err := row.Scan(
		&p.ID, &p.Reference, &p.MerchantID, &p.Channel, &p.Status, &p.Amount, &p.Currency,
		&p.FeeRate, &p.FeeAmount, &p.NetAmount, &p.RefundedAmount,
		&p.ProviderTransactionID, &p.RedirectURL, &p.IdempotencyKey,
		&p.CustomerEmail, &p.CustomerPhone, &p.CustomerName, &p.CustomerID,
		&p.OrderID, &metadata, &p.FailureReason, &p.ExpiresAt,
		&p.CreatedAt, &p.UpdatedAt, &p.ProcessingAt, &p.CompletedAt, &p.FailedAt, &p.CancelledAt,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func marshalMetadata(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
