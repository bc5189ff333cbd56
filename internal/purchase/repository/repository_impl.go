package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rewild/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateWithItems(ctx context.Context, db *gorm.DB, purchase *domain.Purchase, items []domain.Item) (*domain.Purchase, bool, error) {
	if purchase == nil || strings.TrimSpace(purchase.GatewayIntentID) == "" {
		return nil, false, domain.ErrInvalidPurchase
	}

	now := time.Now().UTC()
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = now
	}

	created := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`INSERT INTO purchases (
				id, gateway_intent_id, email, amount_total, currency, certificate_type, legacy, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (gateway_intent_id) DO NOTHING`,
			purchase.ID,
			purchase.GatewayIntentID,
			purchase.Email,
			purchase.AmountTotal,
			purchase.Currency,
			purchase.CertificateType,
			purchase.Legacy,
			purchase.CreatedAt,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another invocation won the race; nothing to write.
			return nil
		}

		for i := range items {
			items[i].PurchaseID = purchase.ID
			if items[i].CreatedAt.IsZero() {
				items[i].CreatedAt = now
			}
			if err := tx.Exec(
				`INSERT INTO purchase_items (id, purchase_id, project_code, area_sqm, unit_price, amount, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				items[i].ID,
				items[i].PurchaseID,
				items[i].ProjectCode,
				items[i].AreaSqm,
				items[i].UnitPrice,
				items[i].Amount,
				items[i].CreatedAt,
			).Error; err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	// Reload in both outcomes so the caller always sees the persisted row.
	existing, err := r.FindByGatewayIntentID(ctx, db, purchase.GatewayIntentID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, domain.ErrNotMaterialized
	}
	return existing, created, nil
}

func (r *repo) FindByGatewayIntentID(ctx context.Context, db *gorm.DB, gatewayIntentID string) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT id, gateway_intent_id, email, amount_total, currency, certificate_type, legacy, created_at
		 FROM purchases WHERE gateway_intent_id = ? LIMIT 1`,
		strings.TrimSpace(gatewayIntentID),
	).Scan(&purchase).Error
	if err != nil {
		return nil, err
	}
	if purchase.ID == 0 {
		return nil, nil
	}

	items, err := r.ItemsByPurchaseID(ctx, db, purchase.ID)
	if err != nil {
		return nil, err
	}
	purchase.Items = items
	return &purchase, nil
}

func (r *repo) ItemsByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) ([]domain.Item, error) {
	var items []domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, purchase_id, project_code, area_sqm, unit_price, amount, created_at
		 FROM purchase_items WHERE purchase_id = ? ORDER BY id`,
		purchaseID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
