package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidCertificate = errors.New("invalid_certificate")
	ErrNotFound           = errors.New("certificate_not_found")
	ErrNumberExhausted    = errors.New("certificate_number_exhausted")
	ErrRevoked            = errors.New("certificate_revoked")
)

type Status string

const (
	StatusIssued  Status = "issued"
	StatusRevoked Status = "revoked"
)

type Type string

const (
	TypeDigital  Type = "digital"
	TypePhysical Type = "physical"
)

// Certificate attests one purchased area in one project. Two unique
// constraints carry the issuance guarantees: the public number, and the
// (purchase_id, project_code) pair that caps issuance at one certificate per
// purchase line.
type Certificate struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Number      string       `json:"number" gorm:"type:text;not null;uniqueIndex"`
	PurchaseID  snowflake.ID `json:"purchase_id" gorm:"not null;uniqueIndex:idx_certificates_purchase_project"`
	ProjectCode string       `json:"project_code" gorm:"type:text;not null;uniqueIndex:idx_certificates_purchase_project"`
	ProjectName string       `json:"project_name" gorm:"type:text"`
	AreaSqm     int64        `json:"area_sqm" gorm:"not null"`
	HolderEmail string       `json:"holder_email" gorm:"type:text"`
	Type        Type         `json:"type" gorm:"type:text;not null"`
	Status      Status       `json:"status" gorm:"type:text;not null"`
	PDFURL      string       `json:"pdf_url" gorm:"type:text"`
	IssuedAt    time.Time    `json:"issued_at" gorm:"not null"`
	RevokedAt   *time.Time   `json:"revoked_at,omitempty"`
}

func (Certificate) TableName() string { return "certificates" }

type Repository interface {
	// InsertIfAbsent writes the certificate unless one already exists for the
	// same (purchase, project) pair, in which case created is false and the
	// row is untouched. A collision on the public number surfaces as a
	// duplicate-key error so the caller can regenerate and retry.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, cert *Certificate) (bool, error)

	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Certificate, error)

	ListByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) ([]Certificate, error)

	UpdatePDFURL(ctx context.Context, db *gorm.DB, id snowflake.ID, pdfURL string) error

	// ListMissingDocuments returns issued certificates that still have no
	// published document, oldest first.
	ListMissingDocuments(ctx context.Context, db *gorm.DB, limit int) ([]Certificate, error)

	Revoke(ctx context.Context, db *gorm.DB, number string, at time.Time) error
}
