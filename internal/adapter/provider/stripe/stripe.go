// Package stripe adapts the gateway's provider-agnostic contract to the
// Stripe PaymentIntent API (spec §4.B).
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dhecash/gateway/config"
	"github.com/dhecash/gateway/internal/adapter/provider"
	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/apperror"
)

// Adapter implements ports.Provider for Stripe.
type Adapter struct {
	cfg    config.ProviderConfig
	client provider.HTTPClient
}

// NewAdapter creates a Stripe adapter. Stripe has no separate token cache
// concern — requests authenticate with the secret key directly.
func NewAdapter(cfg config.ProviderConfig, client provider.HTTPClient) *Adapter {
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) ensureConfigured() error {
	if !a.cfg.Configured() {
		return apperror.ErrProviderUnavailable("stripe credentials are not configured")
	}
	return nil
}

func (a *Adapter) Create(ctx context.Context, req ports.CreateRequest) (ports.CreateResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return ports.CreateResult{}, err
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(int64(math.Round(req.Amount*100)), 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("metadata[order_id]", req.OrderID)
	form.Set("metadata[payment_ref]", req.PaymentRef)
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return ports.CreateResult{}, apperror.ErrProviderError(err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(a.cfg.ClientSecret, "")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return ports.CreateResult{}, provider.MapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ports.CreateResult{}, apperror.ErrProviderError(fmt.Errorf("stripe create: unexpected status %d", resp.StatusCode))
	}

	var parsed struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.CreateResult{}, apperror.ErrProviderError(err)
	}

	return ports.CreateResult{
		ProviderTransactionID: parsed.ID,
		RedirectURL:           fmt.Sprintf("%s/checkout/%s", a.cfg.BaseURL, parsed.ClientSecret),
		Reference:             parsed.ID,
	}, nil
}

func (a *Adapter) Status(ctx context.Context, providerTxID string) (ports.StatusResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return ports.StatusResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/v1/payment_intents/"+providerTxID, nil)
	if err != nil {
		return ports.StatusResult{}, apperror.ErrProviderError(err)
	}
	httpReq.SetBasicAuth(a.cfg.ClientSecret, "")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return ports.StatusResult{}, provider.MapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ports.StatusResult{}, apperror.ErrProviderError(fmt.Errorf("stripe status: unexpected status %d", resp.StatusCode))
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.StatusResult{}, apperror.ErrProviderError(err)
	}

	return ports.StatusResult{Status: mapIntentStatus(parsed.Status)}, nil
}

func (a *Adapter) Refund(ctx context.Context, providerTxID string, amount float64) (ports.RefundResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return ports.RefundResult{}, err
	}

	form := url.Values{}
	form.Set("payment_intent", providerTxID)
	form.Set("amount", strconv.FormatInt(int64(amount*100), 10))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/refunds", strings.NewReader(form.Encode()))
	if err != nil {
		return ports.RefundResult{}, apperror.ErrProviderError(err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(a.cfg.ClientSecret, "")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return ports.RefundResult{}, provider.MapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ports.RefundResult{}, apperror.ErrProviderError(fmt.Errorf("stripe refund: unexpected status %d", resp.StatusCode))
	}

	var parsed struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.RefundResult{}, apperror.ErrProviderError(err)
	}
	return ports.RefundResult{RefundID: parsed.ID, Status: parsed.Status}, nil
}

func mapIntentStatus(s string) domain.PaymentStatus {
	switch s {
	case "succeeded":
		return domain.PaymentStatusCompleted
	case "canceled":
		return domain.PaymentStatusCancelled
	default:
		return domain.PaymentStatusProcessing
	}
}

// VerifyCallback verifies the `stripe-signature` header: HMAC-SHA256 over
// "{timestamp}.{rawBody}" keyed by the configured webhook secret
// (spec §4.B), then maps the supported event types.
func (a *Adapter) VerifyCallback(rawBody []byte, headers http.Header) (ports.CallbackEvent, error) {
	sigHeader := headers.Get("stripe-signature")
	timestamp, digest, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return ports.CallbackEvent{}, err
	}

	mac := hmac.New(sha256.New, []byte(a.cfg.WebhookSecret))
	mac.Write([]byte(timestamp + "." + string(rawBody)))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(digest)) {
		return ports.CallbackEvent{}, fmt.Errorf("stripe signature mismatch")
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID               string `json:"id"`
				AmountRefunded   int64  `json:"amount_refunded"`
				LastPaymentError *struct {
					Message string `json:"message"`
				} `json:"last_payment_error"`
				PaymentIntent string `json:"payment_intent"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return ports.CallbackEvent{}, fmt.Errorf("invalid callback payload: %w", err)
	}

	obj := event.Data.Object

	switch event.Type {
	case "payment_intent.succeeded":
		return ports.CallbackEvent{ProviderTransactionID: obj.ID, Status: domain.PaymentStatusCompleted}, nil
	case "payment_intent.payment_failed":
		reason := ""
		if obj.LastPaymentError != nil {
			reason = obj.LastPaymentError.Message
		}
		return ports.CallbackEvent{ProviderTransactionID: obj.ID, Status: domain.PaymentStatusFailed, FailureReason: reason}, nil
	case "payment_intent.canceled":
		return ports.CallbackEvent{ProviderTransactionID: obj.ID, Status: domain.PaymentStatusCancelled}, nil
	case "charge.refunded":
		return ports.CallbackEvent{
			ProviderTransactionID: obj.PaymentIntent,
			Status:                domain.PaymentStatusRefunded,
			RefundAmount:          float64(obj.AmountRefunded) / 100,
		}, nil
	default:
		return ports.CallbackEvent{}, fmt.Errorf("unsupported stripe event type %q", event.Type)
	}
}

// parseSignatureHeader extracts t= and v1= from the stripe-signature header.
func parseSignatureHeader(header string) (timestamp string, v1 string, err error) {
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if timestamp == "" || v1 == "" {
		return "", "", fmt.Errorf("malformed stripe-signature header")
	}
	return timestamp, v1, nil
}
