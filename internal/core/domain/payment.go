package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies which payment processor handles a payment.
type Channel string

const (
	ChannelMonCash Channel = "moncash"
	ChannelNatCash Channel = "natcash"
	ChannelStripe  Channel = "stripe"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending            PaymentStatus = "pending"
	PaymentStatusProcessing         PaymentStatus = "processing"
	PaymentStatusCompleted          PaymentStatus = "completed"
	PaymentStatusFailed             PaymentStatus = "failed"
	PaymentStatusCancelled          PaymentStatus = "cancelled"
	PaymentStatusExpired            PaymentStatus = "expired"
	PaymentStatusPartiallyRefunded  PaymentStatus = "partially_refunded"
	PaymentStatusRefunded           PaymentStatus = "refunded"
)

// Payment is the central entity: a single money-movement request against
// one of the configured providers, owned by exactly one merchant.
type Payment struct {
	ID                   uuid.UUID
	Reference            string // pay_*
	MerchantID           uuid.UUID
	Channel              Channel
	Status               PaymentStatus
	Amount               float64
	Currency             string // HTG | USD
	FeeRate              float64
	FeeAmount            float64
	NetAmount            float64
	RefundedAmount       float64
	ProviderTransactionID *string
	RedirectURL          *string
	IdempotencyKey       *string
	CustomerEmail        *string
	CustomerPhone        *string
	CustomerName         *string
	CustomerID           *uuid.UUID
	OrderID              *string
	Metadata             map[string]interface{}
	FailureReason        *string
	ExpiresAt            time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ProcessingAt         *time.Time
	CompletedAt          *time.Time
	FailedAt             *time.Time
	CancelledAt          *time.Time
}

// Outstanding returns the amount still eligible for refund.
func (p *Payment) Outstanding() float64 {
	return roundMoney(p.Amount - p.RefundedAmount)
}

// IsExpired reports whether the payment's expiry window has passed.
func (p *Payment) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// IsTerminal reports whether no further transition is possible.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusExpired, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// RefundEligible reports whether the payment can currently accept a refund.
func (p *Payment) RefundEligible() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusPartiallyRefunded
}

// ComputeFee derives fee_amount and net_amount from amount and feeRate,
// rounded to two decimal places per spec invariant.
func ComputeFee(amount, feeRate float64) (feeAmount, netAmount float64) {
	feeAmount = roundMoney(amount * feeRate)
	netAmount = roundMoney(amount - feeAmount)
	return
}

func roundMoney(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// FeeRates maps each channel to its fee rate snapshot.
var FeeRates = map[Channel]float64{
	ChannelMonCash: 0.025,
	ChannelNatCash: 0.025,
	ChannelStripe:  0.035,
}
