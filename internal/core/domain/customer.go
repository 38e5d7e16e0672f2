package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer aggregates repeat-payer identity and lifetime value, scoped to
// one merchant environment. Supplemented from the state machine's
// customer-upsert operation (spec §4.E) — not named as its own table in
// spec.md but required by it.
type Customer struct {
	ID              uuid.UUID
	MerchantID      uuid.UUID
	Environment     string
	Email           *string
	Phone           *string
	Name            *string
	TotalSpent      float64
	PaymentCount    int
	FirstPaymentAt  time.Time
	LastPaymentAt   time.Time
}

// ApplyPayment folds a completed payment's gross amount into the
// customer's running totals, per the upsert rule in spec §4.E: fill
// Name only if it was previously empty.
func (c *Customer) ApplyPayment(grossAmount float64, name *string, now time.Time) {
	c.TotalSpent = roundMoney(c.TotalSpent + grossAmount)
	c.PaymentCount++
	c.LastPaymentAt = now
	if c.Name == nil && name != nil {
		c.Name = name
	}
}
