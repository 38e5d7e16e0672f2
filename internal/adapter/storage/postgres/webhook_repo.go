package postgres

import (
	"context"
	"errors"

	"github.com/dhecash/gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookConfigRepo implements ports.WebhookConfigRepository.
type WebhookConfigRepo struct {
	pool Pool
}

// NewWebhookConfigRepo creates a WebhookConfigRepo.
func NewWebhookConfigRepo(pool Pool) *WebhookConfigRepo {
	return &WebhookConfigRepo{pool: pool}
}

func (r *WebhookConfigRepo) ListActiveForMerchant(ctx context.Context, merchantID uuid.UUID) ([]*domain.WebhookConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, merchant_id, target_url, event_types, secret, is_active
		FROM webhook_configs WHERE merchant_id = $1 AND is_active = true`,
		merchantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.WebhookConfig
	for rows.Next() {
		var c domain.WebhookConfig
		if err := rows.Scan(&c.ID, &c.MerchantID, &c.TargetURL, &c.EventTypes, &c.Secret, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *WebhookConfigRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, merchant_id, target_url, event_types, secret, is_active
		FROM webhook_configs WHERE id = $1`,
		id,
	)
	var c domain.WebhookConfig
	if err := row.Scan(&c.ID, &c.MerchantID, &c.TargetURL, &c.EventTypes, &c.Secret, &c.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// WebhookLogRepo implements ports.WebhookLogRepository.
type WebhookLogRepo struct {
	pool Pool
}

// NewWebhookLogRepo creates a WebhookLogRepo.
func NewWebhookLogRepo(pool Pool) *WebhookLogRepo {
	return &WebhookLogRepo{pool: pool}
}

func (r *WebhookLogRepo) Create(ctx context.Context, log *domain.WebhookLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO webhook_logs (
			id, webhook_config_id, payment_id, event_type, payload, status,
			http_status, response_snippet, attempt_count, created_at, last_attempt_at, delivered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		log.ID, log.WebhookConfigID, log.PaymentID, log.EventType, log.Payload, log.Status,
		log.HTTPStatus, log.ResponseSnippet, log.AttemptCount, log.CreatedAt, log.LastAttemptAt, log.DeliveredAt,
	)
	return err
}

func (r *WebhookLogRepo) Get(ctx context.Context, id uuid.UUID) (*domain.WebhookLog, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, webhook_config_id, payment_id, event_type, payload, status,
			http_status, response_snippet, attempt_count, created_at, last_attempt_at, delivered_at
		FROM webhook_logs WHERE id = $1`, id,
	)
	var l domain.WebhookLog
	if err := row.Scan(
		&l.ID, &l.WebhookConfigID, &l.PaymentID, &l.EventType, &l.Payload, &l.Status,
		&l.HTTPStatus, &l.ResponseSnippet, &l.AttemptCount, &l.CreatedAt, &l.LastAttemptAt, &l.DeliveredAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *WebhookLogRepo) Update(ctx context.Context, log *domain.WebhookLog) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE webhook_logs SET
			status = $1, http_status = $2, response_snippet = $3,
			attempt_count = $4, last_attempt_at = $5, delivered_at = $6
		WHERE id = $7`,
		log.Status, log.HTTPStatus, log.ResponseSnippet,
		log.AttemptCount, log.LastAttemptAt, log.DeliveredAt, log.ID,
	)
	return err
}

func (r *WebhookLogRepo) ListForPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.WebhookLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, webhook_config_id, payment_id, event_type, payload, status,
			http_status, response_snippet, attempt_count, created_at, last_attempt_at, delivered_at
		FROM webhook_logs WHERE payment_id = $1 ORDER BY created_at DESC`, paymentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.WebhookLog
	for rows.Next() {
		var l domain.WebhookLog
		if err := rows.Scan(
			&l.ID, &l.WebhookConfigID, &l.PaymentID, &l.EventType, &l.Payload, &l.Status,
			&l.HTTPStatus, &l.ResponseSnippet, &l.AttemptCount, &l.CreatedAt, &l.LastAttemptAt, &l.DeliveredAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
