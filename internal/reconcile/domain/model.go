package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidReference = errors.New("invalid_payment_reference")
	ErrPaymentNotFound  = errors.New("payment_not_found")
)

// Kind labels what the reconciled payment turned out to be.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindDonation Kind = "donation"
	KindUnknown  Kind = "unknown"
)

// CertificateSummary is the caller-facing slice of an issued certificate.
type CertificateSummary struct {
	Number      string `json:"number"`
	ProjectCode string `json:"project_code"`
	ProjectName string `json:"project_name,omitempty"`
	AreaSqm     int64  `json:"area_sqm"`
	PDFURL      string `json:"pdf_url,omitempty"`
}

// Result is what one reconciliation run reports. It reflects durable state:
// two runs over the same payment return the same result regardless of which
// one did the writes.
type Result struct {
	PaymentIntentID string               `json:"payment_intent_id"`
	Status          string               `json:"status"`
	Kind            Kind                 `json:"kind"`
	Email           string               `json:"email,omitempty"`
	Amount          int64                `json:"amount"`
	Currency        string               `json:"currency"`
	Created         time.Time            `json:"created"`
	Certificates    []CertificateSummary `json:"certificates,omitempty"`
}

type Service interface {
	// Reconcile drives one payment reference to its settled local state:
	// resolve the reference, refresh gateway truth, mirror it, and for a
	// succeeded purchase materialize the order and issue its certificates.
	// Safe to call concurrently and repeatedly for the same reference.
	Reconcile(ctx context.Context, reference string) (*Result, error)
}
