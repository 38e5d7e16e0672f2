package dto

// CreatePaymentRequest is the request body for POST /v1/payments.
type CreatePaymentRequest struct {
	Amount        float64                `json:"amount" binding:"required,gt=0"`
	Currency      string                 `json:"currency" binding:"required,oneof=HTG USD"`
	Channel       string                 `json:"channel" binding:"required,oneof=moncash natcash stripe"`
	OrderID       *string                `json:"order_id,omitempty" binding:"omitempty,max=100"`
	CustomerEmail *string                `json:"customer_email,omitempty" binding:"omitempty,email"`
	CustomerPhone *string                `json:"customer_phone,omitempty" binding:"omitempty,max=32"`
	CustomerName  *string                `json:"customer_name,omitempty" binding:"omitempty,max=100"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// RefundRequest is the request body for POST /v1/payments/:ref/refund.
type RefundRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason" binding:"required,max=500"`
}

// PaymentResponse mirrors domain.Payment's externally visible fields.
type PaymentResponse struct {
	Reference             string                 `json:"reference"`
	Channel               string                 `json:"channel"`
	Status                string                 `json:"status"`
	Amount                float64                `json:"amount"`
	Currency              string                 `json:"currency"`
	FeeAmount             float64                `json:"fee_amount"`
	NetAmount             float64                `json:"net_amount"`
	RefundedAmount        float64                `json:"refunded_amount"`
	ProviderTransactionID *string                `json:"provider_transaction_id,omitempty"`
	RedirectURL           *string                `json:"redirect_url,omitempty"`
	OrderID               *string                `json:"order_id,omitempty"`
	CustomerEmail         *string                `json:"customer_email,omitempty"`
	CustomerPhone         *string                `json:"customer_phone,omitempty"`
	CustomerName          *string                `json:"customer_name,omitempty"`
	Metadata              map[string]interface{} `json:"metadata,omitempty"`
	FailureReason         *string                `json:"failure_reason,omitempty"`
	ExpiresAt             string                 `json:"expires_at"`
	CreatedAt             string                 `json:"created_at"`
	UpdatedAt             string                 `json:"updated_at"`
	CompletedAt           *string                `json:"completed_at,omitempty"`
	FailedAt              *string                `json:"failed_at,omitempty"`
	CancelledAt           *string                `json:"cancelled_at,omitempty"`
}

// PaymentListResponse wraps a cursor-paginated list of payments.
type PaymentListResponse struct {
	Items      []PaymentResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// TransactionResponse mirrors a ledger entry produced by a refund.
type TransactionResponse struct {
	Reference string  `json:"reference"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"created_at"`
}

// RefundResponse is the response body for a successful refund.
type RefundResponse struct {
	Payment     PaymentResponse     `json:"payment"`
	Transaction TransactionResponse `json:"transaction"`
}

// CheckoutResponse is the unauthenticated public read for a hosted
// checkout page — deliberately narrower than PaymentResponse (no
// customer PII, no internal metadata).
type CheckoutResponse struct {
	Reference   string  `json:"reference"`
	Channel     string  `json:"channel"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	RedirectURL *string `json:"redirect_url,omitempty"`
	ExpiresAt   string  `json:"expires_at"`
}

// WebhookLogResponse mirrors one delivery attempt record.
type WebhookLogResponse struct {
	ID              string  `json:"id"`
	EventType       string  `json:"event_type"`
	Status          string  `json:"status"`
	HTTPStatus      *int    `json:"http_status,omitempty"`
	ResponseSnippet *string `json:"response_snippet,omitempty"`
	AttemptCount    int     `json:"attempt_count"`
	CreatedAt       string  `json:"created_at"`
	LastAttemptAt   *string `json:"last_attempt_at,omitempty"`
	DeliveredAt     *string `json:"delivered_at,omitempty"`
}
