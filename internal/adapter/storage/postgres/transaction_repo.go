package postgres

import (
	"context"

	"github.com/dhecash/gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository: the immutable
// money-movement ledger.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_transactions (
			id, reference, payment_id, merchant_id, type, status, amount, currency, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Reference, t.PaymentID, t.MerchantID, t.Type, t.Status, t.Amount, t.Currency, t.CreatedAt,
	)
	return err
}

func (r *TransactionRepo) SumRefunds(ctx context.Context, paymentID uuid.UUID) (float64, error) {
	var sum *float64
	err := r.pool.QueryRow(ctx, `
		SELECT SUM(amount) FROM ledger_transactions WHERE payment_id = $1 AND type = $2`,
		paymentID, domain.TransactionTypeRefund,
	).Scan(&sum)
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
