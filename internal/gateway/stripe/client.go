package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	gatewaydomain "github.com/smallbiznis/rewild/internal/gateway/domain"
)

type stripeCheckoutSession struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	PaymentIntent   string `json:"payment_intent"`
	PaymentStatus   string `json:"payment_status"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

type stripePaymentIntent struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ReceiptEmail string            `json:"receipt_email"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Stripe REST API with form-encoded requests.
type Client struct {
	apiKey  string
	apiBase string
	client  *http.Client
}

// Config configures the Stripe client.
type Config struct {
	APIKey  string
	APIBase string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = "https://api.stripe.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		apiBase: base,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateCheckoutSession(
	ctx context.Context,
	params gatewaydomain.CheckoutSessionParams,
) (gatewaydomain.CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", params.SuccessURL)
	values.Set("cancel_url", params.CancelURL)
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountTotal, 10))
	values.Set("line_items[0][price_data][product_data][name]", params.Description)
	if params.CustomerEmail != "" {
		values.Set("customer_email", params.CustomerEmail)
		values.Set("payment_intent_data[receipt_email]", params.CustomerEmail)
	}
	// The session's metadata is not copied onto the payment intent by the
	// gateway, and reconciliation reads it off the intent. Set both.
	for _, key := range sortedKeys(params.Metadata) {
		values.Set(fmt.Sprintf("metadata[%s]", key), params.Metadata[key])
		values.Set(fmt.Sprintf("payment_intent_data[metadata][%s]", key), params.Metadata[key])
	}

	var session stripeCheckoutSession
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, params.IdempotencyKey, &session); err != nil {
		return gatewaydomain.CheckoutSession{}, err
	}
	if session.ID == "" || session.URL == "" {
		return gatewaydomain.CheckoutSession{}, gatewaydomain.ErrGatewayUnavailable
	}
	return toDomainSession(session), nil
}

func (c *Client) RetrieveCheckoutSession(ctx context.Context, sessionID string) (gatewaydomain.CheckoutSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return gatewaydomain.CheckoutSession{}, gatewaydomain.ErrSessionNotFound
	}

	var session stripeCheckoutSession
	err := c.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, "", &session)
	if err != nil {
		return gatewaydomain.CheckoutSession{}, err
	}
	if session.ID == "" {
		return gatewaydomain.CheckoutSession{}, gatewaydomain.ErrSessionNotFound
	}
	return toDomainSession(session), nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, intentID string) (gatewaydomain.PaymentIntent, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return gatewaydomain.PaymentIntent{}, gatewaydomain.ErrIntentNotFound
	}

	var intent stripePaymentIntent
	err := c.doRequest(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, "", &intent)
	if err != nil {
		return gatewaydomain.PaymentIntent{}, err
	}
	if intent.ID == "" {
		return gatewaydomain.PaymentIntent{}, gatewaydomain.ErrIntentNotFound
	}

	return gatewaydomain.PaymentIntent{
		ID:       intent.ID,
		Amount:   intent.Amount,
		Currency: strings.ToUpper(strings.TrimSpace(intent.Currency)),
		Status:   strings.TrimSpace(intent.Status),
		Email:    strings.TrimSpace(intent.ReceiptEmail),
		Created:  intent.Created,
		Metadata: intent.Metadata,
	}, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if c.apiKey == "" {
		return gatewaydomain.ErrInvalidConfig
	}

	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gatewaydomain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		if strings.Contains(path, "/checkout/sessions/") {
			return gatewaydomain.ErrSessionNotFound
		}
		return gatewaydomain.ErrIntentNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return fmt.Errorf("%w: status %d", gatewaydomain.ErrGatewayUnavailable, resp.StatusCode)
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return fmt.Errorf("%w: %s", gatewaydomain.ErrGatewayUnavailable, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(gatewaydomain.ErrGatewayUnavailable, err)
	}
	return nil
}

func toDomainSession(session stripeCheckoutSession) gatewaydomain.CheckoutSession {
	email := strings.TrimSpace(session.CustomerDetails.Email)
	if email == "" {
		email = strings.TrimSpace(session.CustomerEmail)
	}
	return gatewaydomain.CheckoutSession{
		ID:              session.ID,
		URL:             session.URL,
		PaymentIntentID: strings.TrimSpace(session.PaymentIntent),
		PaymentStatus:   strings.TrimSpace(session.PaymentStatus),
		CustomerEmail:   email,
	}
}

func sortedKeys(metadata map[string]string) []string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
