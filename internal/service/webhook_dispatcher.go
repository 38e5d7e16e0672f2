package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhecash/gateway/internal/adapter/provider"
	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/pkg/apperror"
)

const webhookUserAgent = "DheCash-Webhooks/1.0"

// WebhookDispatcher fans a state-machine event out to every merchant
// endpoint subscribed to it, and performs the signed delivery itself when
// invoked by the queue worker (spec §4.H). Grounded on the teacher's
// webhook_service.go signing/payload idiom, with delivery moved onto the
// durable queue instead of an in-process goroutine retry loop.
type WebhookDispatcher struct {
	configs     ports.WebhookConfigRepository
	logs        ports.WebhookLogRepository
	queue       ports.QueueRepository
	sigSvc      ports.SignatureService
	encSvc      ports.EncryptionService
	httpClient  provider.HTTPClient
	maxAttempts int
	log         zerolog.Logger
}

// NewWebhookDispatcher creates a WebhookDispatcher.
func NewWebhookDispatcher(
	configs ports.WebhookConfigRepository,
	logs ports.WebhookLogRepository,
	queue ports.QueueRepository,
	sigSvc ports.SignatureService,
	encSvc ports.EncryptionService,
	httpClient provider.HTTPClient,
	maxAttempts int,
	log zerolog.Logger,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		configs:     configs,
		logs:        logs,
		queue:       queue,
		sigSvc:      sigSvc,
		encSvc:      encSvc,
		httpClient:  httpClient,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Dispatch looks up every active, subscribed webhook config for the
// payment's merchant, writes one pending WebhookLog per match, and
// enqueues a delivery job carrying just the log id (spec §9: threading the
// id through the payload avoids the lookup-by-recency race).
func (d *WebhookDispatcher) Dispatch(ctx context.Context, payment *domain.Payment, event domain.EventType) error {
	configs, err := d.configs.ListActiveForMerchant(ctx, payment.MerchantID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list webhook configs: %w", err))
	}

	payload := buildWebhookPayload(payment, event)
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("marshal webhook payload: %w", err))
	}

	for _, cfg := range configs {
		if !cfg.Subscribes(event) {
			continue
		}

		entry := &domain.WebhookLog{
			ID:              uuid.New(),
			WebhookConfigID: cfg.ID,
			PaymentID:       payment.ID,
			EventType:       event,
			Payload:         payloadBytes,
			Status:          domain.WebhookDeliveryPending,
			CreatedAt:       time.Now(),
		}
		if err := d.logs.Create(ctx, entry); err != nil {
			d.log.Error().Err(err).Str("payment_ref", payment.Reference).Msg("failed to create webhook log")
			continue
		}

		// Queue-level budget is one more than the real HTTP attempt budget:
		// the extra slot lets Deliver realize the final backoff delay
		// before the log is finalized, instead of finalizing immediately
		// after the last attempt with that delay never applied (spec's
		// cumulative-backoff scenario expects the last delay to elapse).
		if err := d.queue.Enqueue(ctx, domain.QueueNotificationsWebhooks, []byte(entry.ID.String()), d.maxAttempts+1); err != nil {
			d.log.Error().Err(err).Str("webhook_log_id", entry.ID.String()).Msg("failed to enqueue webhook delivery")
		}
	}
	return nil
}

// Deliver performs one signed HTTP POST attempt for the given log, invoked
// by the queue worker. It updates the log's attempt bookkeeping on every
// outcome; the log's own AttemptCount tracks the retry budget rather than
// relying on the queue's DLQ (webhooks have no dead-letter queue). The
// queue job is enqueued with one extra attempt beyond maxAttempts so that,
// once the real attempts are spent, one final invocation realizes the last
// backoff delay and finalizes the log as failed without a further HTTP call.
func (d *WebhookDispatcher) Deliver(ctx context.Context, logID uuid.UUID) error {
	entry, err := d.logs.Get(ctx, logID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load webhook log: %w", err))
	}
	if entry == nil {
		d.log.Warn().Str("webhook_log_id", logID.String()).Msg("webhook log vanished, abandoning delivery")
		return nil
	}
	if entry.Status == domain.WebhookDeliveryDelivered {
		return nil
	}

	// The real delivery budget was already spent by a prior invocation;
	// this invocation exists only because the queue scheduled one more
	// run to let that last attempt's backoff delay elapse before the log
	// is finalized. No further HTTP attempt is made.
	if entry.AttemptCount >= d.maxAttempts {
		entry.Status = domain.WebhookDeliveryFailed
		if err := d.logs.Update(ctx, entry); err != nil {
			return apperror.InternalError(fmt.Errorf("update webhook log: %w", err))
		}
		return nil
	}

	cfg, err := d.configs.GetByID(ctx, entry.WebhookConfigID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load webhook config: %w", err))
	}
	if cfg == nil || !cfg.IsActive {
		d.log.Warn().Str("webhook_log_id", logID.String()).Msg("webhook config deactivated, abandoning delivery")
		return nil
	}

	secret, err := d.encSvc.Decrypt(cfg.Secret)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("decrypt webhook secret: %w", err))
	}

	now := time.Now()
	entry.AttemptCount++
	entry.LastAttemptAt = &now

	status, body, deliverErr := d.post(ctx, cfg.TargetURL, secret, entry.Payload)
	if status > 0 {
		entry.HTTPStatus = &status
	}
	if body != "" {
		snippet := domain.ResponseSnippet(body)
		entry.ResponseSnippet = &snippet
	}

	success := deliverErr == nil && status >= 200 && status < 300
	if success {
		entry.Status = domain.WebhookDeliveryDelivered
		entry.DeliveredAt = &now
		if err := d.logs.Update(ctx, entry); err != nil {
			return apperror.InternalError(fmt.Errorf("update webhook log: %w", err))
		}
		return nil
	}

	if err := d.logs.Update(ctx, entry); err != nil {
		return apperror.InternalError(fmt.Errorf("update webhook log: %w", err))
	}

	if deliverErr != nil {
		return deliverErr
	}
	return fmt.Errorf("webhook delivery returned non-2xx status %d", status)
}

func (d *WebhookDispatcher) post(ctx context.Context, targetURL, secret string, payloadBytes []byte) (int, string, error) {
	timestamp := time.Now().Unix()
	signature := d.sigSvc.Sign(secret, fmt.Sprintf("%d.%s", timestamp, string(payloadBytes)))

	reqCtx, cancel := context.WithTimeout(ctx, provider.DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, targetURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return 0, "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	req.Header.Set("DheCash-Signature", fmt.Sprintf("t=%d,v1=%s", timestamp, signature))
	req.Header.Set("DheCash-Timestamp", fmt.Sprintf("%d", timestamp))

	var eventType string
	var payload domain.WebhookPayload
	if err := json.Unmarshal(payloadBytes, &payload); err == nil {
		eventType = payload.EventType
	}
	req.Header.Set("DheCash-Event-Type", eventType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("webhook delivery transport error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(body), nil
}

func buildWebhookPayload(p *domain.Payment, event domain.EventType) domain.WebhookPayload {
	data := domain.WebhookPayloadData{
		PaymentRef:            p.Reference,
		OrderID:               p.OrderID,
		Channel:               string(p.Channel),
		Status:                string(p.Status),
		Amount:                p.Amount,
		Currency:              p.Currency,
		FeeAmount:             p.FeeAmount,
		NetAmount:             p.NetAmount,
		ProviderTransactionID: p.ProviderTransactionID,
		CreatedAt:             p.CreatedAt.Format(time.RFC3339),
		FailureReason:         p.FailureReason,
	}
	if p.CompletedAt != nil {
		s := p.CompletedAt.Format(time.RFC3339)
		data.CompletedAt = &s
	}
	if p.FailedAt != nil {
		s := p.FailedAt.Format(time.RFC3339)
		data.FailedAt = &s
	}

	return domain.WebhookPayload{
		APIVersion: "1.0",
		EventType:  string(event),
		CreatedAt:  time.Now().Format(time.RFC3339),
		Data:       data,
	}
}
