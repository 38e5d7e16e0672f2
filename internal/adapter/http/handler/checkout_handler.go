package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dhecash/gateway/internal/adapter/http/dto"
	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/response"
)

// CheckoutHandler serves the unauthenticated hosted checkout read.
type CheckoutHandler struct {
	paymentSvc ports.PaymentService
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(paymentSvc ports.PaymentService) *CheckoutHandler {
	return &CheckoutHandler{paymentSvc: paymentSvc}
}

// Get handles GET /v1/checkout/:ref.
func (h *CheckoutHandler) Get(c *gin.Context) {
	payment, err := h.paymentSvc.GetPublic(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toCheckoutResponse(payment))
}

func toCheckoutResponse(p *domain.Payment) dto.CheckoutResponse {
	return dto.CheckoutResponse{
		Reference:   p.Reference,
		Channel:     string(p.Channel),
		Status:      string(p.Status),
		Amount:      p.Amount,
		Currency:    p.Currency,
		RedirectURL: p.RedirectURL,
		ExpiresAt:   p.ExpiresAt.Format(timeLayout),
	}
}
