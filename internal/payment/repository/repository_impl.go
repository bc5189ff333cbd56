package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/rewild/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *domain.IntentRecord) error {
	if record == nil || strings.TrimSpace(record.GatewayIntentID) == "" {
		return domain.ErrInvalidIntent
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_intents (
			id, gateway_intent_id, status, amount, currency, payer_email, raw_metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway_intent_id) DO NOTHING`,
		record.ID,
		record.GatewayIntentID,
		record.Status,
		record.Amount,
		record.Currency,
		record.PayerEmail,
		record.RawMetadata,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Lost the insert race or the row already existed; merge monotonically.
	return db.WithContext(ctx).Exec(
		`UPDATE payment_intents
		 SET status = ?, amount = ?, currency = ?, payer_email = ?, raw_metadata = ?, updated_at = ?
		 WHERE gateway_intent_id = ?
		   AND (CASE status
			WHEN 'processing' THEN 1
			WHEN 'succeeded' THEN 2
			WHEN 'failed' THEN 2
			WHEN 'canceled' THEN 2
			ELSE 0 END) <= ?`,
		record.Status,
		record.Amount,
		record.Currency,
		record.PayerEmail,
		record.RawMetadata,
		record.UpdatedAt,
		record.GatewayIntentID,
		record.Status.Rank(),
	).Error
}

func (r *repo) FindByGatewayID(ctx context.Context, db *gorm.DB, gatewayIntentID string) (*domain.IntentRecord, error) {
	var record domain.IntentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, gateway_intent_id, status, amount, currency, payer_email, raw_metadata,
			created_at, updated_at
		 FROM payment_intents
		 WHERE gateway_intent_id = ?
		 LIMIT 1`,
		strings.TrimSpace(gatewayIntentID),
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}
