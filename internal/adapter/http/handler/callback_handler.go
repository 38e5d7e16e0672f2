package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/apperror"
	"github.com/dhecash/gateway/pkg/response"
)

// CallbackHandler receives provider payment-status notifications. The raw
// body is read verbatim — never bound through ShouldBindJSON — because
// Stripe's signature check runs over the exact bytes the provider sent.
type CallbackHandler struct {
	reconciler ports.CallbackReconciler
}

// NewCallbackHandler creates a CallbackHandler.
func NewCallbackHandler(reconciler ports.CallbackReconciler) *CallbackHandler {
	return &CallbackHandler{reconciler: reconciler}
}

// MonCash handles POST /v1/webhooks/moncash.
func (h *CallbackHandler) MonCash(c *gin.Context) {
	h.handle(c, domain.ChannelMonCash)
}

// NatCash handles POST /v1/webhooks/natcash.
func (h *CallbackHandler) NatCash(c *gin.Context) {
	h.handle(c, domain.ChannelNatCash)
}

// Stripe handles POST /v1/webhooks/stripe.
func (h *CallbackHandler) Stripe(c *gin.Context) {
	h.handle(c, domain.ChannelStripe)
}

func (h *CallbackHandler) handle(c *gin.Context, channel domain.Channel) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.ErrValidation("failed to read request body"))
		return
	}

	if err := h.reconciler.Reconcile(c.Request.Context(), channel, rawBody, c.Request.Header); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
