package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidIntent = errors.New("invalid_payment_intent")

// Status is the normalized payment-intent status.
type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether the status can no longer regress.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Rank orders statuses for monotone merges: a mirror update never replaces a
// status with a lower-ranked one.
func (s Status) Rank() int {
	switch s {
	case StatusProcessing:
		return 1
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return 2
	default:
		return 0
	}
}

// StatusFromGateway normalizes a gateway-native status string.
func StatusFromGateway(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded", "paid":
		return StatusSucceeded
	case "processing", "requires_capture":
		return StatusProcessing
	case "canceled", "cancelled", "expired":
		return StatusCanceled
	case "failed", "payment_failed":
		return StatusFailed
	default:
		return StatusCreated
	}
}

// IntentRecord is the local mirror of one gateway payment-intent.
type IntentRecord struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	GatewayIntentID string            `json:"gateway_intent_id" gorm:"type:text;not null;uniqueIndex"`
	Status          Status            `json:"status" gorm:"type:text;not null"`
	Amount          int64             `json:"amount" gorm:"not null"`
	Currency        string            `json:"currency" gorm:"type:text;not null"`
	PayerEmail      string            `json:"payer_email" gorm:"type:text"`
	RawMetadata     datatypes.JSONMap `json:"raw_metadata" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null"`
}

func (IntentRecord) TableName() string { return "payment_intents" }

type Repository interface {
	// Upsert inserts the mirror row if absent, otherwise merges monotonically:
	// a terminal status is never replaced by an earlier one.
	Upsert(ctx context.Context, db *gorm.DB, record *IntentRecord) error

	FindByGatewayID(ctx context.Context, db *gorm.DB, gatewayIntentID string) (*IntentRecord, error)
}
