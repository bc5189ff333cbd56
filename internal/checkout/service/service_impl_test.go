package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	checkoutdomain "github.com/smallbiznis/rewild/internal/checkout/domain"
	"github.com/smallbiznis/rewild/internal/config"
	gatewaydomain "github.com/smallbiznis/rewild/internal/gateway/domain"
	projectrepository "github.com/smallbiznis/rewild/internal/project/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:checkout_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE projects (
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
	)`).Error)
	return db
}

func seedProject(t *testing.T, db *gorm.DB, id int64, code, name string, available any, price int64, currency string, active bool) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO projects (id, code, name, country, available_area_sqm, unit_price_amount, currency, active)
		 VALUES (?, ?, ?, 'PT', ?, ?, ?, ?)`,
		id, code, name, available, price, currency, active,
	).Error)
}

type fakeGateway struct {
	lastParams gatewaydomain.CheckoutSessionParams
	createErr  error
	calls      int
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, params gatewaydomain.CheckoutSessionParams) (gatewaydomain.CheckoutSession, error) {
	f.calls++
	f.lastParams = params
	if f.createErr != nil {
		return gatewaydomain.CheckoutSession{}, f.createErr
	}
	return gatewaydomain.CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%d", f.calls),
		URL: "https://gateway.example.com/pay/cs_test",
	}, nil
}

func (f *fakeGateway) RetrieveCheckoutSession(ctx context.Context, sessionID string) (gatewaydomain.CheckoutSession, error) {
	return gatewaydomain.CheckoutSession{}, gatewaydomain.ErrSessionNotFound
}

func (f *fakeGateway) RetrievePaymentIntent(ctx context.Context, intentID string) (gatewaydomain.PaymentIntent, error) {
	return gatewaydomain.PaymentIntent{}, gatewaydomain.ErrIntentNotFound
}

func newTestService(t *testing.T, db *gorm.DB, gw gatewaydomain.Gateway) checkoutdomain.Service {
	t.Helper()
	return New(Params{
		DB:       db,
		Projects: projectrepository.Provide(),
		Gateway:  gw,
		Cfg: config.Config{
			DefaultCurrency:    "EUR",
			CheckoutSuccessURL: "https://rewild.example.com/thanks?session_id={CHECKOUT_SESSION_ID}",
			CheckoutCancelURL:  "https://rewild.example.com/cancel",
		},
	})
}

func TestStartPurchase(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db, 1, "P1", "Serra do Acor", 5000, 2500, "EUR", true)
	seedProject(t, db, 2, "P2", "Vale Glaciar", 200, 1800, "EUR", true)

	gw := &fakeGateway{}
	svc := newTestService(t, db, gw)

	session, err := svc.StartPurchase(context.Background(), checkoutdomain.PurchaseRequest{
		Email: "buyer@example.com",
		Items: []checkoutdomain.LineItem{
			{ProjectCode: "P1", Quantity: 100},
			{ProjectCode: "P2", Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", session.SessionID)
	require.Equal(t, "https://gateway.example.com/pay/cs_test", session.RedirectURL)
	require.Equal(t, int64(100*2500+3*1800), session.AmountTotal)
	require.Equal(t, "EUR", session.Currency)

	require.Equal(t, session.AmountTotal, gw.lastParams.AmountTotal)
	require.Equal(t, "purchase", gw.lastParams.Metadata["kind"])
	require.Equal(t, "P1:100:2500|P2:3:1800", gw.lastParams.Metadata["items"])
	require.NotEmpty(t, gw.lastParams.IdempotencyKey)
	require.Contains(t, gw.lastParams.SuccessURL, "{CHECKOUT_SESSION_ID}")
}

func TestStartPurchaseUnknownProject(t *testing.T) {
	db := openTestDB(t)
	gw := &fakeGateway{}
	svc := newTestService(t, db, gw)

	_, err := svc.StartPurchase(context.Background(), checkoutdomain.PurchaseRequest{
		Items: []checkoutdomain.LineItem{{ProjectCode: "NOPE", Quantity: 1}},
	})
	require.ErrorIs(t, err, checkoutdomain.ErrUnknownProject)
	require.Zero(t, gw.calls)
}

func TestStartPurchaseInactiveProject(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db, 1, "P1", "Closed", 5000, 2500, "EUR", false)
	svc := newTestService(t, db, &fakeGateway{})

	_, err := svc.StartPurchase(context.Background(), checkoutdomain.PurchaseRequest{
		Items: []checkoutdomain.LineItem{{ProjectCode: "P1", Quantity: 1}},
	})
	require.ErrorIs(t, err, checkoutdomain.ErrUnknownProject)
}

func TestStartPurchaseInsufficientArea(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db, 1, "P1", "Serra do Acor", 50, 2500, "EUR", true)
	gw := &fakeGateway{}
	svc := newTestService(t, db, gw)

	_, err := svc.StartPurchase(context.Background(), checkoutdomain.PurchaseRequest{
		Items: []checkoutdomain.LineItem{{ProjectCode: "P1", Quantity: 51}},
	})
	require.ErrorIs(t, err, checkoutdomain.ErrInsufficientArea)
	require.Zero(t, gw.calls)
}

func TestStartPurchaseUnreadableAvailabilityProceeds(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db, 1, "P1", "Serra do Acor", nil, 2500, "EUR", true)
	gw := &fakeGateway{}
	svc := newTestService(t, db, gw)

	session, err := svc.StartPurchase(context.Background(), checkoutdomain.PurchaseRequest{
		Items: []checkoutdomain.LineItem{{ProjectCode: "P1", Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(25000), session.AmountTotal)
}

func TestStartPurchaseValidation(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db, 1, "P1", "Serra do Acor", 5000, 2500, "EUR", true)
	svc := newTestService(t, db, &fakeGateway{})

	cases := []struct {
		name  string
		items []checkoutdomain.LineItem
	}{
		{"empty", nil},
		{"zero quantity", []checkoutdomain.LineItem{{ProjectCode: "P1", Quantity: 0}}},
		{"negative quantity", []checkoutdomain.LineItem{{ProjectCode: "P1", Quantity: -5}}},
		{"blank code", []checkoutdomain.LineItem{{ProjectCode: "  ", Quantity: 1}}},
		{"duplicate project", []checkoutdomain.LineItem{{ProjectCode: "P1", Quantity: 1}, {ProjectCode: "P1", Quantity: 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.StartPurchase(context.Background(), checkoutdomain.PurchaseRequest{Items: tc.items})
			require.ErrorIs(t, err, checkoutdomain.ErrInvalidRequest)
		})
	}
}

func TestStartPurchaseCurrencyMismatch(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db, 1, "P1", "Serra do Acor", 5000, 2500, "USD", true)
	svc := newTestService(t, db, &fakeGateway{})

	_, err := svc.StartPurchase(context.Background(), checkoutdomain.PurchaseRequest{
		Items: []checkoutdomain.LineItem{{ProjectCode: "P1", Quantity: 1}},
	})
	require.ErrorIs(t, err, checkoutdomain.ErrCurrencyMismatch)
}

func TestStartPurchaseGatewayFailureWritesNothing(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db, 1, "P1", "Serra do Acor", 5000, 2500, "EUR", true)
	gw := &fakeGateway{createErr: gatewaydomain.ErrGatewayUnavailable}
	svc := newTestService(t, db, gw)

	_, err := svc.StartPurchase(context.Background(), checkoutdomain.PurchaseRequest{
		Items: []checkoutdomain.LineItem{{ProjectCode: "P1", Quantity: 1}},
	})
	require.ErrorIs(t, err, checkoutdomain.ErrCheckoutUnavailable)
}

func TestStartDonation(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db, 1, "P1", "Serra do Acor", 5000, 2500, "EUR", true)
	gw := &fakeGateway{}
	svc := newTestService(t, db, gw)

	session, err := svc.StartDonation(context.Background(), checkoutdomain.DonationRequest{
		Email:       "donor@example.com",
		Amount:      10000,
		ProjectCode: "P1",
		DonorName:   "A. Donor",
		Anonymous:   true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(10000), session.AmountTotal)
	require.Equal(t, "EUR", session.Currency)

	require.Equal(t, "donation", gw.lastParams.Metadata["kind"])
	require.Equal(t, "true", gw.lastParams.Metadata["anonymous"])
	require.Equal(t, "Donation to Serra do Acor", gw.lastParams.Description)
	require.NotContains(t, gw.lastParams.Metadata, "items")
}

func TestStartDonationValidation(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, &fakeGateway{})

	_, err := svc.StartDonation(context.Background(), checkoutdomain.DonationRequest{Amount: 0})
	require.ErrorIs(t, err, checkoutdomain.ErrInvalidRequest)

	_, err = svc.StartDonation(context.Background(), checkoutdomain.DonationRequest{Amount: 500, ProjectCode: "NOPE"})
	require.ErrorIs(t, err, checkoutdomain.ErrUnknownProject)
}
