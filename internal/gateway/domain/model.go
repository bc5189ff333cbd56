package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidConfig      = errors.New("gateway_invalid_config")
	ErrSessionNotFound    = errors.New("gateway_session_not_found")
	ErrIntentNotFound     = errors.New("gateway_intent_not_found")
	ErrGatewayUnavailable = errors.New("gateway_unavailable")
)

// CheckoutSessionParams describes one hosted payment session to create.
type CheckoutSessionParams struct {
	AmountTotal    int64
	Currency       string
	Description    string
	CustomerEmail  string
	Metadata       map[string]string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// CheckoutSession is the gateway-hosted payment page.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
	PaymentStatus   string
	CustomerEmail   string
}

// PaymentIntent mirrors the gateway's canonical payment object. Status is the
// gateway-native value; the payment domain normalizes it.
type PaymentIntent struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	Email    string
	Created  int64
	Metadata map[string]string
}

// Gateway is the external payment processor contract. It owns the monetary
// transaction and is the source of truth for payment status.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (CheckoutSession, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error)
}
