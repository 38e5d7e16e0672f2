// Package natcash adapts the gateway's provider-agnostic contract to the
// NatCash REST API (spec §4.B).
package natcash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dhecash/gateway/config"
	"github.com/dhecash/gateway/internal/adapter/provider"
	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/apperror"
)

// statusMap implements spec §4.B's provider status enum mapping.
var statusMap = map[string]domain.PaymentStatus{
	"SUCCESS":   domain.PaymentStatusCompleted,
	"PENDING":   domain.PaymentStatusPending,
	"FAILED":    domain.PaymentStatusFailed,
	"CANCELLED": domain.PaymentStatusFailed,
}

// Adapter implements ports.Provider for NatCash.
type Adapter struct {
	cfg         config.ProviderConfig
	client      provider.HTTPClient
	tokens      ports.TokenCache
	callbackURL string
}

// NewAdapter creates a NatCash adapter. callbackURL is this gateway's
// inbound webhook endpoint for NatCash notifications.
func NewAdapter(cfg config.ProviderConfig, client provider.HTTPClient, tokens ports.TokenCache, callbackURL string) *Adapter {
	return &Adapter{cfg: cfg, client: client, tokens: tokens, callbackURL: callbackURL}
}

func (a *Adapter) ensureConfigured() error {
	if !a.cfg.Configured() {
		return apperror.ErrProviderUnavailable("natcash credentials are not configured")
	}
	return nil
}

func (a *Adapter) accessToken(ctx context.Context) (string, error) {
	if token, ok, err := a.tokens.Get(ctx, "natcash"); err == nil && ok {
		return token, nil
	}

	ctx, cancel := context.WithTimeout(ctx, provider.TokenFetchTimeout)
	defer cancel()

	reqBody, _ := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     a.cfg.ClientID,
		"client_secret": a.cfg.ClientSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/oauth/token", bytes.NewReader(reqBody))
	if err != nil {
		return "", apperror.ErrProviderError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", provider.MapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", apperror.ErrProviderError(fmt.Errorf("natcash oauth: unexpected status %d", resp.StatusCode))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperror.ErrProviderError(err)
	}

	ttl := time.Duration(body.ExpiresIn-60) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	_ = a.tokens.Set(ctx, "natcash", body.AccessToken, ttl)

	return body.AccessToken, nil
}

func (a *Adapter) Create(ctx context.Context, req ports.CreateRequest) (ports.CreateResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return ports.CreateResult{}, err
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return ports.CreateResult{}, err
	}

	reqBody, _ := json.Marshal(map[string]interface{}{
		"amount":      req.Amount,
		"currency":    req.Currency,
		"orderId":     req.OrderID,
		"callbackUrl": a.callbackURL,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/api/v1/payment/create", bytes.NewReader(reqBody))
	if err != nil {
		return ports.CreateResult{}, apperror.ErrProviderError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return ports.CreateResult{}, provider.MapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ports.CreateResult{}, apperror.ErrProviderError(fmt.Errorf("natcash create: unexpected status %d", resp.StatusCode))
	}

	var parsed struct {
		TransactionID string `json:"transactionId"`
		RedirectURL   string `json:"redirectUrl"`
		Reference     string `json:"reference"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.CreateResult{}, apperror.ErrProviderError(err)
	}

	return ports.CreateResult{
		ProviderTransactionID: parsed.TransactionID,
		RedirectURL:           parsed.RedirectURL,
		Reference:             parsed.Reference,
	}, nil
}

func (a *Adapter) Status(ctx context.Context, providerTxID string) (ports.StatusResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return ports.StatusResult{}, err
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return ports.StatusResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/api/v1/payment/"+providerTxID, nil)
	if err != nil {
		return ports.StatusResult{}, apperror.ErrProviderError(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return ports.StatusResult{}, provider.MapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ports.StatusResult{}, apperror.ErrProviderError(fmt.Errorf("natcash status: unexpected status %d", resp.StatusCode))
	}

	var parsed struct {
		Status string `json:"status"`
		Payer  string `json:"payer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.StatusResult{}, apperror.ErrProviderError(err)
	}

	status, ok := statusMap[strings.ToUpper(parsed.Status)]
	if !ok {
		status = domain.PaymentStatusProcessing
	}

	var payer *string
	if parsed.Payer != "" {
		payer = &parsed.Payer
	}
	return ports.StatusResult{Status: status, Payer: payer}, nil
}

func (a *Adapter) Refund(ctx context.Context, providerTxID string, amount float64) (ports.RefundResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return ports.RefundResult{}, err
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return ports.RefundResult{}, err
	}

	reqBody, _ := json.Marshal(map[string]interface{}{
		"transactionId": providerTxID,
		"amount":        amount,
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/api/v1/payment/refund", bytes.NewReader(reqBody))
	if err != nil {
		return ports.RefundResult{}, apperror.ErrProviderError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return ports.RefundResult{}, provider.MapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ports.RefundResult{}, apperror.ErrProviderError(fmt.Errorf("natcash refund: unexpected status %d", resp.StatusCode))
	}

	var parsed struct {
		RefundID string `json:"refundId"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.RefundResult{}, apperror.ErrProviderError(err)
	}
	return ports.RefundResult{RefundID: parsed.RefundID, Status: parsed.Status}, nil
}

// VerifyCallback maps the NatCash callback body's status enum and treats
// presence of a transaction id as sufficient authenticity (NatCash's
// sandbox contract carries no signature header of its own, unlike Stripe).
func (a *Adapter) VerifyCallback(rawBody []byte, headers http.Header) (ports.CallbackEvent, error) {
	var body struct {
		TransactionID string `json:"transactionId"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return ports.CallbackEvent{}, fmt.Errorf("invalid callback payload: %w", err)
	}
	if body.TransactionID == "" {
		return ports.CallbackEvent{}, fmt.Errorf("callback missing transaction id")
	}

	status, ok := statusMap[strings.ToUpper(body.Status)]
	if !ok {
		return ports.CallbackEvent{}, fmt.Errorf("unrecognized natcash status %q", body.Status)
	}

	return ports.CallbackEvent{
		ProviderTransactionID: body.TransactionID,
		Status:                status,
	}, nil
}
