package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dhecash/gateway/internal/adapter/http/dto"
	"github.com/dhecash/gateway/internal/adapter/http/middleware"
	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/apperror"
	"github.com/dhecash/gateway/pkg/cursor"
	"github.com/dhecash/gateway/pkg/response"
)

const timeLayout = time.RFC3339

// PaymentHandler serves the merchant-facing payment endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
	logs       ports.WebhookLogRepository
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService, logs ports.WebhookLogRepository) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, logs: logs}
}

func merchantIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Create handles POST /v1/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	merchantID, ok := merchantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrAuthRequired())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	idempotencyKey := c.GetHeader("Idempotency-Key")

	payment, _, err := h.paymentSvc.Create(c.Request.Context(), merchantID, ports.CreatePaymentInput{
		Amount:        req.Amount,
		Currency:      req.Currency,
		Channel:       domain.Channel(req.Channel),
		OrderID:       req.OrderID,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		CustomerName:  req.CustomerName,
		Metadata:      req.Metadata,
	}, idempotencyKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentResponse(payment))
}

// Get handles GET /v1/payments/:ref.
func (h *PaymentHandler) Get(c *gin.Context) {
	merchantID, ok := merchantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrAuthRequired())
		return
	}

	payment, err := h.paymentSvc.Get(c.Request.Context(), merchantID, c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// List handles GET /v1/payments.
func (h *PaymentHandler) List(c *gin.Context) {
	merchantID, ok := merchantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrAuthRequired())
		return
	}

	filter := ports.PaymentListFilter{
		Limit: 50,
	}
	if raw := c.Query("cursor"); raw != "" {
		decoded, err := cursor.DecodePayment(raw)
		if err != nil {
			response.Error(c, apperror.ErrValidation("invalid cursor"))
			return
		}
		filter.CursorCreatedAt = decoded.CreatedAt
		filter.CursorID = decoded.ID
	}
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}
	if s := c.Query("status"); s != "" {
		st := domain.PaymentStatus(s)
		filter.Status = &st
	}
	if ch := c.Query("channel"); ch != "" {
		c2 := domain.Channel(ch)
		filter.Channel = &c2
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(timeLayout, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(timeLayout, to); err == nil {
			filter.To = &t
		}
	}

	payments, err := h.paymentSvc.List(c.Request.Context(), merchantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, toPaymentResponse(p))
	}

	nextCursor := ""
	if len(payments) == filter.Limit {
		last := payments[len(payments)-1]
		nextCursor = cursor.EncodePayment(last.CreatedAt, last.ID)
	}

	response.OK(c, dto.PaymentListResponse{Items: items, NextCursor: nextCursor})
}

// Refund handles POST /v1/payments/:ref/refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	merchantID, ok := merchantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrAuthRequired())
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	payment, txn, err := h.paymentSvc.Refund(c.Request.Context(), merchantID, c.Param("ref"), req.Amount, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RefundResponse{
		Payment:     toPaymentResponse(payment),
		Transaction: toTransactionResponse(txn),
	})
}

// WebhookLogs handles GET /v1/payments/:ref/webhook-logs.
func (h *PaymentHandler) WebhookLogs(c *gin.Context) {
	merchantID, ok := merchantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrAuthRequired())
		return
	}

	payment, err := h.paymentSvc.Get(c.Request.Context(), merchantID, c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	logs, err := h.logs.ListForPayment(c.Request.Context(), payment.ID)
	if err != nil {
		response.Error(c, apperror.ErrProviderError(err))
		return
	}

	items := make([]dto.WebhookLogResponse, 0, len(logs))
	for _, l := range logs {
		items = append(items, toWebhookLogResponse(l))
	}
	response.OK(c, items)
}

func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		Reference:             p.Reference,
		Channel:               string(p.Channel),
		Status:                string(p.Status),
		Amount:                p.Amount,
		Currency:              p.Currency,
		FeeAmount:             p.FeeAmount,
		NetAmount:             p.NetAmount,
		RefundedAmount:        p.RefundedAmount,
		ProviderTransactionID: p.ProviderTransactionID,
		RedirectURL:           p.RedirectURL,
		OrderID:               p.OrderID,
		CustomerEmail:         p.CustomerEmail,
		CustomerPhone:         p.CustomerPhone,
		CustomerName:          p.CustomerName,
		Metadata:              p.Metadata,
		FailureReason:         p.FailureReason,
		ExpiresAt:             p.ExpiresAt.Format(timeLayout),
		CreatedAt:             p.CreatedAt.Format(timeLayout),
		UpdatedAt:             p.UpdatedAt.Format(timeLayout),
	}
	if p.CompletedAt != nil {
		s := p.CompletedAt.Format(timeLayout)
		resp.CompletedAt = &s
	}
	if p.FailedAt != nil {
		s := p.FailedAt.Format(timeLayout)
		resp.FailedAt = &s
	}
	if p.CancelledAt != nil {
		s := p.CancelledAt.Format(timeLayout)
		resp.CancelledAt = &s
	}
	return resp
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		Reference: t.Reference,
		Type:      string(t.Type),
		Amount:    t.Amount,
		Currency:  t.Currency,
		CreatedAt: t.CreatedAt.Format(timeLayout),
	}
}

func toWebhookLogResponse(l *domain.WebhookLog) dto.WebhookLogResponse {
	resp := dto.WebhookLogResponse{
		ID:           l.ID.String(),
		EventType:    string(l.EventType),
		Status:       string(l.Status),
		HTTPStatus:   l.HTTPStatus,
		AttemptCount: l.AttemptCount,
		CreatedAt:    l.CreatedAt.Format(timeLayout),
	}
	if l.ResponseSnippet != nil {
		resp.ResponseSnippet = l.ResponseSnippet
	}
	if l.LastAttemptAt != nil {
		s := l.LastAttemptAt.Format(timeLayout)
		resp.LastAttemptAt = &s
	}
	if l.DeliveredAt != nil {
		s := l.DeliveredAt.Format(timeLayout)
		resp.DeliveredAt = &s
	}
	return resp
}
