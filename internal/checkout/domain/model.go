package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/rewild/internal/checkout/metadata"
)

var (
	ErrInvalidRequest      = errors.New("invalid_checkout_request")
	ErrUnknownProject      = errors.New("unknown_project")
	ErrInsufficientArea    = errors.New("insufficient_area")
	ErrCurrencyMismatch    = errors.New("currency_mismatch")
	ErrCheckoutUnavailable = errors.New("checkout_unavailable")
)

// LineItem is one requested purchase line: a quantity of square meters in one
// project.
type LineItem struct {
	ProjectCode string `json:"project_code" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required"`
}

// PurchaseRequest starts a checkout for one or more area purchases.
type PurchaseRequest struct {
	Email           string     `json:"email"`
	Items           []LineItem `json:"items" binding:"required"`
	CertificateType string     `json:"certificate_type"`
}

// DonationRequest starts a checkout for a free-amount donation. Donations do
// not reserve area and never produce certificates.
type DonationRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount" binding:"required"`
	Currency    string `json:"currency"`
	ProjectCode string `json:"project_code"`
	DonorName   string `json:"donor_name"`
	Message     string `json:"message"`
	Anonymous   bool   `json:"anonymous"`
}

// Session is the initiated gateway checkout the caller gets redirected to.
type Session struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
}

// Quote is the priced form of a purchase request before it is handed to the
// gateway.
type Quote struct {
	Items       []metadata.Item
	AmountTotal int64
	Currency    string
	Description string
}

type Service interface {
	// StartPurchase prices the requested items, checks advertised
	// availability, and opens a gateway checkout session. No local state is
	// written; the order context travels in the session metadata.
	StartPurchase(ctx context.Context, req PurchaseRequest) (*Session, error)

	// StartDonation opens a gateway checkout session for a free-amount
	// donation.
	StartDonation(ctx context.Context, req DonationRequest) (*Session, error)
}
