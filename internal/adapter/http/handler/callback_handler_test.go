package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/pkg/apperror"
)

type stubCallbackReconciler struct {
	err         error
	lastChannel domain.Channel
	lastBody    []byte
}

func (f *stubCallbackReconciler) Reconcile(_ context.Context, channel domain.Channel, rawBody []byte, _ http.Header) error {
	f.lastChannel = channel
	f.lastBody = rawBody
	return f.err
}

func TestCallbackHandler_MonCash_Success(t *testing.T) {
	recon := &stubCallbackReconciler{}
	h := NewCallbackHandler(recon)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"transactionId":"tx1","orderId":"ord1","amount":1000}`
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/webhooks/moncash", bytes.NewBufferString(body))

	h.MonCash(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ChannelMonCash, recon.lastChannel)
	assert.Equal(t, body, string(recon.lastBody))
}

func TestCallbackHandler_Stripe_ReconcileError(t *testing.T) {
	recon := &stubCallbackReconciler{err: apperror.ErrValidation("bad signature")}
	h := NewCallbackHandler(recon)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewBufferString(`{}`))

	h.Stripe(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbackHandler_NatCash_Success(t *testing.T) {
	recon := &stubCallbackReconciler{}
	h := NewCallbackHandler(recon)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/webhooks/natcash", bytes.NewBufferString(`{}`))

	h.NatCash(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ChannelNatCash, recon.lastChannel)
}
