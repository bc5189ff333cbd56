package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rewild/internal/certificate/domain"
	certificaterepository "github.com/smallbiznis/rewild/internal/certificate/repository"
	projectrepository "github.com/smallbiznis/rewild/internal/project/repository"
	purchasedomain "github.com/smallbiznis/rewild/internal/purchase/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:certificate_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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
		`CREATE TABLE certificates (
			id INTEGER PRIMARY KEY,
			number TEXT NOT NULL UNIQUE,
			purchase_id INTEGER NOT NULL,
			project_code TEXT NOT NULL,
			project_name TEXT,
			area_sqm INTEGER NOT NULL,
			holder_email TEXT,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			pdf_url TEXT,
			issued_at DATETIME NOT NULL,
			revoked_at DATETIME,
			UNIQUE (purchase_id, project_code)
		)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

// fixedThenRandomSerials returns the same number a set number of times before
// delegating to the real generator, to force collisions.
type fixedThenRandomSerials struct {
	fixed     string
	remaining int
	real      SerialGenerator
}

func (g *fixedThenRandomSerials) Generate() string {
	if g.remaining > 0 {
		g.remaining--
		return g.fixed
	}
	return g.real.Generate()
}

type alwaysSameSerial struct{ value string }

func (g *alwaysSameSerial) Generate() string { return g.value }

func newTestService(t *testing.T, db *gorm.DB, serials SerialGenerator) *Service {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	if serials == nil {
		serials = NewSerialGenerator("RWC")
	}
	return New(Params{
		DB:       db,
		Repo:     certificaterepository.Provide(),
		Projects: projectrepository.Provide(),
		Serials:  serials,
		GenID:    node,
	})
}

func testPurchase(id int64) *purchasedomain.Purchase {
	return &purchasedomain.Purchase{
		ID:              snowflake.ID(id),
		GatewayIntentID: fmt.Sprintf("pi_%d", id),
		Email:           "buyer@example.com",
		AmountTotal:     255400,
		Currency:        "EUR",
		Items: []purchasedomain.Item{
			{ID: snowflake.ID(id*10 + 1), PurchaseID: snowflake.ID(id), ProjectCode: "P1", AreaSqm: 100, UnitPrice: 2500, Amount: 250000},
			{ID: snowflake.ID(id*10 + 2), PurchaseID: snowflake.ID(id), ProjectCode: "P2", AreaSqm: 3, UnitPrice: 1800, Amount: 5400},
		},
	}
}

func TestSerialGeneratorFormat(t *testing.T) {
	gen := NewSerialGenerator("rwc")
	pattern := regexp.MustCompile(`^RWC-[0-9A-Z]+-[0-9A-Z]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		serial := gen.Generate()
		require.Regexp(t, pattern, serial)
		seen[serial] = true
	}
	require.Len(t, seen, 100)
}

func TestIssueForPurchase(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(
		`INSERT INTO projects (id, code, name, available_area_sqm, unit_price_amount, currency, active)
		 VALUES (1, 'P1', 'Serra do Acor', 5000, 2500, 'EUR', TRUE)`,
	).Error)
	svc := newTestService(t, db, nil)

	certs, err := svc.IssueForPurchase(context.Background(), testPurchase(1))
	require.NoError(t, err)
	require.Len(t, certs, 2)

	byProject := make(map[string]domain.Certificate)
	for _, cert := range certs {
		byProject[cert.ProjectCode] = cert
		require.Equal(t, domain.StatusIssued, cert.Status)
		require.Equal(t, domain.TypeDigital, cert.Type)
		require.Equal(t, "buyer@example.com", cert.HolderEmail)
		require.True(t, strings.HasPrefix(cert.Number, "RWC-"))
	}
	require.Equal(t, "Serra do Acor", byProject["P1"].ProjectName)
	require.Equal(t, int64(100), byProject["P1"].AreaSqm)
	// No catalog row for P2: the code stands in for the name downstream.
	require.Empty(t, byProject["P2"].ProjectName)
}

func TestIssueForPurchaseIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, nil)
	purchase := testPurchase(1)

	first, err := svc.IssueForPurchase(context.Background(), purchase)
	require.NoError(t, err)
	require.Len(t, first, 2)

	for i := 0; i < 5; i++ {
		again, err := svc.IssueForPurchase(context.Background(), purchase)
		require.NoError(t, err)
		require.Len(t, again, 2)
		require.Equal(t, first[0].Number, again[0].Number)
		require.Equal(t, first[1].Number, again[1].Number)
	}

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM certificates`).Scan(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestIssueRetriesOnNumberCollision(t *testing.T) {
	db := openTestDB(t)

	// First purchase takes the fixed number; the second collides once per
	// line before the generator starts producing fresh numbers.
	taken := newTestService(t, db, &alwaysSameSerial{value: "RWC-TAKEN-000001"})
	_, err := taken.IssueForPurchase(context.Background(), &purchasedomain.Purchase{
		ID:              snowflake.ID(7),
		GatewayIntentID: "pi_7",
		Items: []purchasedomain.Item{
			{ID: snowflake.ID(71), ProjectCode: "P9", AreaSqm: 1, UnitPrice: 2500, Amount: 2500},
		},
	})
	require.NoError(t, err)

	svc := newTestService(t, db, &fixedThenRandomSerials{
		fixed:     "RWC-TAKEN-000001",
		remaining: 2,
		real:      NewSerialGenerator("RWC"),
	})
	certs, err := svc.IssueForPurchase(context.Background(), testPurchase(2))
	require.NoError(t, err)
	require.Len(t, certs, 2)
	for _, cert := range certs {
		require.NotEqual(t, "RWC-TAKEN-000001", cert.Number)
	}
}

func TestIssueGivesUpAfterBoundedAttempts(t *testing.T) {
	db := openTestDB(t)

	taken := newTestService(t, db, &alwaysSameSerial{value: "RWC-STUCK-000001"})
	_, err := taken.IssueForPurchase(context.Background(), &purchasedomain.Purchase{
		ID:              snowflake.ID(8),
		GatewayIntentID: "pi_8",
		Items: []purchasedomain.Item{
			{ID: snowflake.ID(81), ProjectCode: "P9", AreaSqm: 1, UnitPrice: 2500, Amount: 2500},
		},
	})
	require.NoError(t, err)

	stuck := newTestService(t, db, &alwaysSameSerial{value: "RWC-STUCK-000001"})
	_, err = stuck.IssueForPurchase(context.Background(), testPurchase(3))
	require.ErrorIs(t, err, domain.ErrNumberExhausted)
}

func TestIssuePhysicalType(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, nil)

	purchase := testPurchase(4)
	purchase.CertificateType = "Physical"

	certs, err := svc.IssueForPurchase(context.Background(), purchase)
	require.NoError(t, err)
	for _, cert := range certs {
		require.Equal(t, domain.TypePhysical, cert.Type)
	}
}

func TestFindByNumberAndRevoke(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, nil)

	certs, err := svc.IssueForPurchase(context.Background(), testPurchase(5))
	require.NoError(t, err)

	found, err := svc.FindByNumber(context.Background(), strings.ToLower(certs[0].Number))
	require.NoError(t, err)
	require.Equal(t, certs[0].Number, found.Number)

	_, err = svc.FindByNumber(context.Background(), "RWC-MISSING-000000")
	require.ErrorIs(t, err, domain.ErrNotFound)

	revoked, err := svc.Revoke(context.Background(), certs[0].Number)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedAt)

	// Idempotent: the second revoke keeps the original timestamp.
	again, err := svc.Revoke(context.Background(), certs[0].Number)
	require.NoError(t, err)
	require.NotNil(t, again.RevokedAt)
	require.True(t, again.RevokedAt.Equal(*revoked.RevokedAt))
}
