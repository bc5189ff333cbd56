package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gatewaydomain "github.com/smallbiznis/rewild/internal/gateway/domain"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk_test_123", APIBase: srv.URL})
}

func TestCreateCheckoutSession(t *testing.T) {
	var form url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))

		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Write([]byte(`{"id":"cs_test_1","url":"https://pay.example.com/cs_test_1","payment_intent":"pi_test_1","payment_status":"unpaid"}`))
	})

	session, err := client.CreateCheckoutSession(context.Background(), gatewaydomain.CheckoutSessionParams{
		AmountTotal:    255400,
		Currency:       "EUR",
		Description:    "Restoration purchase",
		CustomerEmail:  "buyer@example.com",
		Metadata:       map[string]string{"kind": "purchase", "items": "P1:100:2500"},
		SuccessURL:     "https://shop.example.com/ok?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      "https://shop.example.com/cancel",
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", session.ID)
	require.Equal(t, "https://pay.example.com/cs_test_1", session.URL)
	require.Equal(t, "pi_test_1", session.PaymentIntentID)

	require.Equal(t, "payment", form.Get("mode"))
	require.Equal(t, "eur", form.Get("line_items[0][price_data][currency]"))
	require.Equal(t, "255400", form.Get("line_items[0][price_data][unit_amount]"))
	require.Equal(t, "buyer@example.com", form.Get("customer_email"))
	// Metadata rides on both the session and the intent.
	require.Equal(t, "purchase", form.Get("metadata[kind]"))
	require.Equal(t, "purchase", form.Get("payment_intent_data[metadata][kind]"))
	require.Equal(t, "P1:100:2500", form.Get("payment_intent_data[metadata][items]"))
}

func TestRetrievePaymentIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_test_1", r.URL.Path)
		w.Write([]byte(`{"id":"pi_test_1","amount":255400,"currency":"eur","status":"succeeded","receipt_email":"buyer@example.com","created":1735689600,"metadata":{"kind":"purchase"}}`))
	})

	intent, err := client.RetrievePaymentIntent(context.Background(), "pi_test_1")
	require.NoError(t, err)
	require.Equal(t, int64(255400), intent.Amount)
	require.Equal(t, "EUR", intent.Currency)
	require.Equal(t, "succeeded", intent.Status)
	require.Equal(t, "purchase", intent.Metadata["kind"])
}

func TestRetrieveNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.RetrieveCheckoutSession(context.Background(), "cs_missing")
	require.ErrorIs(t, err, gatewaydomain.ErrSessionNotFound)

	_, err = client.RetrievePaymentIntent(context.Background(), "pi_missing")
	require.ErrorIs(t, err, gatewaydomain.ErrIntentNotFound)
}

func TestGatewayErrorsWrapUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"api_error","message":"stripe is down"}}`))
	})

	_, err := client.RetrievePaymentIntent(context.Background(), "pi_test_1")
	require.ErrorIs(t, err, gatewaydomain.ErrGatewayUnavailable)
	require.Contains(t, err.Error(), "stripe is down")
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.RetrievePaymentIntent(context.Background(), "pi_test_1")
	require.ErrorIs(t, err, gatewaydomain.ErrInvalidConfig)
}
