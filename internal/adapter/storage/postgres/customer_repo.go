package postgres

import (
	"context"
	"errors"

	"github.com/dhecash/gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CustomerRepo implements ports.CustomerRepository.
type CustomerRepo struct {
	pool Pool
}

// NewCustomerRepo creates a CustomerRepo.
func NewCustomerRepo(pool Pool) *CustomerRepo {
	return &CustomerRepo{pool: pool}
}

// FindByIdentity matches an existing customer scoped by (merchant_id,
// environment) against either the email or phone identifier, per the
// upsert rule in spec §4.E.
func (r *CustomerRepo) FindByIdentity(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, environment string, email, phone *string) (*domain.Customer, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, merchant_id, environment, email, phone, name,
			total_spent, payment_count, first_payment_at, last_payment_at
		FROM customers
		WHERE merchant_id = $1 AND environment = $2
			AND ((email IS NOT NULL AND email = $3) OR (phone IS NOT NULL AND phone = $4))
		FOR UPDATE`,
		merchantID, environment, email, phone,
	)

	var c domain.Customer
	if err := row.Scan(
		&c.ID, &c.MerchantID, &c.Environment, &c.Email, &c.Phone, &c.Name,
		&c.TotalSpent, &c.PaymentCount, &c.FirstPaymentAt, &c.LastPaymentAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Customer) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO customers (
			id, merchant_id, environment, email, phone, name,
			total_spent, payment_count, first_payment_at, last_payment_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.MerchantID, c.Environment, c.Email, c.Phone, c.Name,
		c.TotalSpent, c.PaymentCount, c.FirstPaymentAt, c.LastPaymentAt,
	)
	return err
}

func (r *CustomerRepo) Update(ctx context.Context, tx pgx.Tx, c *domain.Customer) error {
	_, err := tx.Exec(ctx, `
		UPDATE customers SET
			name = $1, total_spent = $2, payment_count = $3, last_payment_at = $4
		WHERE id = $5`,
		c.Name, c.TotalSpent, c.PaymentCount, c.LastPaymentAt, c.ID,
	)
	return err
}
