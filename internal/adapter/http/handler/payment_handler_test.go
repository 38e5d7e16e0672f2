package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhecash/gateway/internal/adapter/http/dto"
	"github.com/dhecash/gateway/internal/adapter/http/middleware"
	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/apperror"
	"github.com/dhecash/gateway/pkg/cursor"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubPaymentService is a hand-rolled ports.PaymentService double —
// no mocking framework is wired into this module.
type stubPaymentService struct {
	createPayment   *domain.Payment
	createReplayed  bool
	createErr       error
	getResult       *domain.Payment
	getErr          error
	getPublicResult *domain.Payment
	getPublicErr    error
	listResult      []*domain.Payment
	listErr         error
	refundPayment   *domain.Payment
	refundTxn       *domain.Transaction
	refundErr       error
}

func (f *stubPaymentService) Create(_ context.Context, _ uuid.UUID, _ ports.CreatePaymentInput, _ string) (*domain.Payment, bool, error) {
	return f.createPayment, f.createReplayed, f.createErr
}

func (f *stubPaymentService) Get(_ context.Context, _ uuid.UUID, _ string) (*domain.Payment, error) {
	return f.getResult, f.getErr
}

func (f *stubPaymentService) GetPublic(_ context.Context, _ string) (*domain.Payment, error) {
	return f.getPublicResult, f.getPublicErr
}

func (f *stubPaymentService) List(_ context.Context, _ uuid.UUID, _ ports.PaymentListFilter) ([]*domain.Payment, error) {
	return f.listResult, f.listErr
}

func (f *stubPaymentService) Refund(_ context.Context, _ uuid.UUID, _ string, _ float64, _ string) (*domain.Payment, *domain.Transaction, error) {
	return f.refundPayment, f.refundTxn, f.refundErr
}

func (f *stubPaymentService) Dispatch(_ context.Context, _ string) error {
	return nil
}

var _ ports.PaymentService = (*stubPaymentService)(nil)

// stubWebhookLogRepo is a hand-rolled ports.WebhookLogRepository double.
type stubWebhookLogRepo struct {
	logs []*domain.WebhookLog
	err  error
}

func (f *stubWebhookLogRepo) Create(_ context.Context, _ *domain.WebhookLog) error { return nil }
func (f *stubWebhookLogRepo) Get(_ context.Context, _ uuid.UUID) (*domain.WebhookLog, error) {
	return nil, nil
}
func (f *stubWebhookLogRepo) Update(_ context.Context, _ *domain.WebhookLog) error { return nil }
func (f *stubWebhookLogRepo) ListForPayment(_ context.Context, _ uuid.UUID) ([]*domain.WebhookLog, error) {
	return f.logs, f.err
}

var _ ports.WebhookLogRepository = (*stubWebhookLogRepo)(nil)

func newPayment(ref string) *domain.Payment {
	return &domain.Payment{
		ID:         uuid.New(),
		Reference:  ref,
		Channel:    domain.ChannelMonCash,
		Status:     domain.PaymentStatusPending,
		Amount:     1000,
		Currency:   "HTG",
		ExpiresAt:  time.Now().Add(time.Hour),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func setMerchantContext(c *gin.Context, id uuid.UUID) {
	c.Set(middleware.CtxMerchantID, id)
}

func TestPaymentHandler_Create_MissingAuth(t *testing.T) {
	h := NewPaymentHandler(&stubPaymentService{}, &stubWebhookLogRepo{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CreatePaymentRequest{Amount: 100, Currency: "HTG", Channel: "moncash"})
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandler_Create_ValidationError(t *testing.T) {
	h := NewPaymentHandler(&stubPaymentService{}, &stubWebhookLogRepo{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_Create_Success(t *testing.T) {
	payment := newPayment("pay_abc123")
	svc := &stubPaymentService{createPayment: payment}
	h := NewPaymentHandler(svc, &stubWebhookLogRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	body, _ := json.Marshal(dto.CreatePaymentRequest{Amount: 1000, Currency: "HTG", Channel: "moncash"})
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "pay_abc123", data["reference"])
}

func TestPaymentHandler_Get_NotFound(t *testing.T) {
	svc := &stubPaymentService{getErr: apperror.ErrPaymentNotFound()}
	h := NewPaymentHandler(svc, &stubWebhookLogRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	c.Params = gin.Params{{Key: "ref", Value: "pay_missing"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments/pay_missing", nil)

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentHandler_Get_Success(t *testing.T) {
	payment := newPayment("pay_xyz789")
	svc := &stubPaymentService{getResult: payment}
	h := NewPaymentHandler(svc, &stubWebhookLogRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	c.Params = gin.Params{{Key: "ref", Value: "pay_xyz789"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments/pay_xyz789", nil)

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentHandler_List_Success(t *testing.T) {
	svc := &stubPaymentService{listResult: []*domain.Payment{newPayment("pay_1"), newPayment("pay_2")}}
	h := NewPaymentHandler(svc, &stubWebhookLogRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments?limit=2", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentHandler_List_EmitsEncodedNextCursor(t *testing.T) {
	p1, p2 := newPayment("pay_1"), newPayment("pay_2")
	svc := &stubPaymentService{listResult: []*domain.Payment{p1, p2}}
	h := NewPaymentHandler(svc, &stubWebhookLogRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments?limit=2", nil)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.PaymentListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.NextCursor)

	decoded, err := cursor.DecodePayment(resp.Data.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, decoded.ID)
	assert.True(t, p2.CreatedAt.Equal(decoded.CreatedAt))
}

func TestPaymentHandler_List_InvalidCursorRejected(t *testing.T) {
	h := NewPaymentHandler(&stubPaymentService{}, &stubWebhookLogRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments?cursor=not-base64!!", nil)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_Refund_Success(t *testing.T) {
	payment := newPayment("pay_r1")
	txn := &domain.Transaction{ID: uuid.New(), Reference: "txn_r1", Type: domain.TransactionTypeRefund, Amount: 100, Currency: "HTG", CreatedAt: time.Now()}
	svc := &stubPaymentService{refundPayment: payment, refundTxn: txn}
	h := NewPaymentHandler(svc, &stubWebhookLogRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	c.Params = gin.Params{{Key: "ref", Value: "pay_r1"}}
	body, _ := json.Marshal(dto.RefundRequest{Amount: 100, Reason: "customer request"})
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/payments/pay_r1/refund", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Refund(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPaymentHandler_WebhookLogs_Success(t *testing.T) {
	payment := newPayment("pay_wl1")
	svc := &stubPaymentService{getResult: payment}
	logs := &stubWebhookLogRepo{logs: []*domain.WebhookLog{{ID: uuid.New(), EventType: domain.EventPaymentSucceeded, Status: domain.WebhookDeliveryDelivered, CreatedAt: time.Now()}}}
	h := NewPaymentHandler(svc, logs)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMerchantContext(c, uuid.New())
	c.Params = gin.Params{{Key: "ref", Value: "pay_wl1"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments/pay_wl1/webhook-logs", nil)

	h.WebhookLogs(c)

	assert.Equal(t, http.StatusOK, w.Code)
}
