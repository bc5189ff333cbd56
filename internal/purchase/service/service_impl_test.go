package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rewild/internal/checkout/metadata"
	paymentdomain "github.com/smallbiznis/rewild/internal/payment/domain"
	projectrepository "github.com/smallbiznis/rewild/internal/project/repository"
	"github.com/smallbiznis/rewild/internal/purchase/domain"
	purchaserepository "github.com/smallbiznis/rewild/internal/purchase/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:purchase_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE projects (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			country TEXT,
			available_area_sqm INTEGER,
			unit_price_amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE purchases (
			id INTEGER PRIMARY KEY,
			gateway_intent_id TEXT NOT NULL UNIQUE,
			email TEXT,
			amount_total INTEGER NOT NULL,
			currency TEXT NOT NULL,
			certificate_type TEXT,
			legacy BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE purchase_items (
			id INTEGER PRIMARY KEY,
			purchase_id INTEGER NOT NULL,
			project_code TEXT NOT NULL,
			area_sqm INTEGER NOT NULL,
			unit_price INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:       db,
		Repo:     purchaserepository.Provide(),
		Projects: projectrepository.Provide(),
		GenID:    node,
	})
}

func succeededIntent(id string, amount int64) *paymentdomain.IntentRecord {
	return &paymentdomain.IntentRecord{
		ID:              snowflake.ID(1),
		GatewayIntentID: id,
		Status:          paymentdomain.StatusSucceeded,
		Amount:          amount,
		Currency:        "EUR",
		PayerEmail:      "buyer@example.com",
	}
}

func TestMaterialize(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)

	meta := metadata.Metadata{
		Kind: metadata.KindPurchase,
		Items: []metadata.Item{
			{ProjectCode: "P1", Quantity: 100, UnitPrice: 2500},
			{ProjectCode: "P2", Quantity: 3, UnitPrice: 1800},
		},
		CertificateType: "digital",
	}

	purchase, created, err := svc.Materialize(context.Background(), succeededIntent("pi_1", 255400), meta)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "pi_1", purchase.GatewayIntentID)
	require.Equal(t, "buyer@example.com", purchase.Email)
	require.Equal(t, int64(255400), purchase.AmountTotal)
	require.Len(t, purchase.Items, 2)

	var sum int64
	for _, item := range purchase.Items {
		sum += item.Amount
		require.Equal(t, item.AreaSqm*item.UnitPrice, item.Amount)
	}
	require.Equal(t, purchase.AmountTotal, sum)
}

func TestMaterializeIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)

	meta := metadata.Metadata{
		Kind:  metadata.KindPurchase,
		Items: []metadata.Item{{ProjectCode: "P1", Quantity: 10, UnitPrice: 2500}},
	}

	first, created, err := svc.Materialize(context.Background(), succeededIntent("pi_dup", 25000), meta)
	require.NoError(t, err)
	require.True(t, created)

	for i := 0; i < 5; i++ {
		again, created, err := svc.Materialize(context.Background(), succeededIntent("pi_dup", 25000), meta)
		require.NoError(t, err)
		require.False(t, created)
		require.Equal(t, first.ID, again.ID)
		require.Len(t, again.Items, 1)
	}

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM purchase_items`).Scan(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestMaterializeLegacyPricesFromCatalog(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(
		`INSERT INTO projects (id, code, name, available_area_sqm, unit_price_amount, currency, active)
		 VALUES (1, 'P1', 'Serra do Acor', 5000, 2500, 'EUR', TRUE)`,
	).Error)
	svc := newTestService(t, db)

	meta, err := metadata.Decode(map[string]string{"project_ids": "P1"})
	require.NoError(t, err)
	require.True(t, meta.Legacy)

	purchase, created, err := svc.Materialize(context.Background(), succeededIntent("pi_legacy", 2500), meta)
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, purchase.Legacy)
	require.Len(t, purchase.Items, 1)
	require.Equal(t, int64(2500), purchase.Items[0].UnitPrice)
	require.Equal(t, int64(1), purchase.Items[0].AreaSqm)
}

func TestMaterializeRejectsNonSucceeded(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)

	record := succeededIntent("pi_pending", 2500)
	record.Status = paymentdomain.StatusProcessing

	_, _, err := svc.Materialize(context.Background(), record, metadata.Metadata{
		Kind:  metadata.KindPurchase,
		Items: []metadata.Item{{ProjectCode: "P1", Quantity: 1, UnitPrice: 2500}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidPurchase)
}

func TestMaterializeRejectsDonationMetadata(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)

	_, _, err := svc.Materialize(context.Background(), succeededIntent("pi_don", 500), metadata.Metadata{
		Kind: metadata.KindDonation,
	})
	require.ErrorIs(t, err, domain.ErrInvalidPurchase)
}
