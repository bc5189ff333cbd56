package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidPurchase = errors.New("invalid_purchase")
	ErrNotMaterialized = errors.New("purchase_not_materialized")
)

// Purchase is the durable business record of one paid order. Exactly one
// purchase exists per gateway payment-intent; the unique index on
// gateway_intent_id is what makes materialization idempotent under
// concurrent reconciliation.
type Purchase struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	GatewayIntentID string       `json:"gateway_intent_id" gorm:"type:text;not null;uniqueIndex"`
	Email           string       `json:"email" gorm:"type:text"`
	AmountTotal     int64        `json:"amount_total" gorm:"not null"`
	Currency        string       `json:"currency" gorm:"type:text;not null"`
	CertificateType string       `json:"certificate_type" gorm:"type:text"`
	Legacy          bool         `json:"legacy" gorm:"not null;default:false"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`

	Items []Item `json:"items" gorm:"-"`
}

func (Purchase) TableName() string { return "purchases" }

// Item is one purchased quantity of area in one project.
type Item struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	PurchaseID  snowflake.ID `json:"purchase_id" gorm:"not null;index"`
	ProjectCode string       `json:"project_code" gorm:"type:text;not null"`
	AreaSqm     int64        `json:"area_sqm" gorm:"not null"`
	UnitPrice   int64        `json:"unit_price" gorm:"not null"`
	Amount      int64        `json:"amount" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
}

func (Item) TableName() string { return "purchase_items" }

type Repository interface {
	// CreateWithItems inserts the purchase and its items in one transaction.
	// When another invocation already materialized the same payment-intent,
	// it returns the existing purchase with created=false and writes nothing.
	CreateWithItems(ctx context.Context, db *gorm.DB, purchase *Purchase, items []Item) (*Purchase, bool, error)

	FindByGatewayIntentID(ctx context.Context, db *gorm.DB, gatewayIntentID string) (*Purchase, error)

	ItemsByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) ([]Item, error)
}
