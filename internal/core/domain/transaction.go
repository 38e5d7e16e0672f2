package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of ledger money movement.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeRefund TransactionType = "refund"
)

// TransactionStatus mirrors the teacher's enum shape for symmetry, even
// though the gateway only ever writes success rows to the ledger — failed
// attempts never reach it (spec §3).
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "success"
)

// Transaction is an immutable ledger entry against a payment: one credit
// on completion, N refunds thereafter.
type Transaction struct {
	ID         uuid.UUID
	Reference  string // txn_*
	PaymentID  uuid.UUID
	MerchantID uuid.UUID
	Type       TransactionType
	Status     TransactionStatus
	Amount     float64
	Currency   string
	CreatedAt  time.Time
}
