package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rewild/internal/certificate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, cert *domain.Certificate) (bool, error) {
	if cert == nil || cert.Number == "" || cert.PurchaseID == 0 || cert.ProjectCode == "" {
		return false, domain.ErrInvalidCertificate
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}

	res := db.WithContext(ctx).Exec(
		`INSERT INTO certificates (
			id, number, purchase_id, project_code, project_name, area_sqm,
			holder_email, type, status, pdf_url, issued_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (purchase_id, project_code) DO NOTHING`,
		cert.ID,
		cert.Number,
		cert.PurchaseID,
		cert.ProjectCode,
		cert.ProjectName,
		cert.AreaSqm,
		cert.HolderEmail,
		cert.Type,
		cert.Status,
		cert.PDFURL,
		cert.IssuedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Certificate, error) {
	var cert domain.Certificate
	err := db.WithContext(ctx).Raw(
		`SELECT id, number, purchase_id, project_code, project_name, area_sqm,
			holder_email, type, status, pdf_url, issued_at, revoked_at
		 FROM certificates WHERE number = ? LIMIT 1`,
		strings.ToUpper(strings.TrimSpace(number)),
	).Scan(&cert).Error
	if err != nil {
		return nil, err
	}
	if cert.ID == 0 {
		return nil, nil
	}
	return &cert, nil
}

func (r *repo) ListByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) ([]domain.Certificate, error) {
	var certs []domain.Certificate
	err := db.WithContext(ctx).Raw(
		`SELECT id, number, purchase_id, project_code, project_name, area_sqm,
			holder_email, type, status, pdf_url, issued_at, revoked_at
		 FROM certificates WHERE purchase_id = ? ORDER BY id`,
		purchaseID,
	).Scan(&certs).Error
	if err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *repo) ListMissingDocuments(ctx context.Context, db *gorm.DB, limit int) ([]domain.Certificate, error) {
	if limit <= 0 {
		limit = 100
	}
	var certs []domain.Certificate
	err := db.WithContext(ctx).Raw(
		`SELECT id, number, purchase_id, project_code, project_name, area_sqm,
			holder_email, type, status, pdf_url, issued_at, revoked_at
		 FROM certificates
		 WHERE status = ? AND (pdf_url IS NULL OR pdf_url = '')
		 ORDER BY issued_at
		 LIMIT ?`,
		domain.StatusIssued,
		limit,
	).Scan(&certs).Error
	if err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *repo) UpdatePDFURL(ctx context.Context, db *gorm.DB, id snowflake.ID, pdfURL string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE certificates SET pdf_url = ? WHERE id = ?`,
		pdfURL, id,
	).Error
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, number string, at time.Time) error {
	// Already-revoked rows are left alone so revoked_at keeps the first
	// revocation time.
	return db.WithContext(ctx).Exec(
		`UPDATE certificates SET status = ?, revoked_at = ? WHERE number = ? AND status <> ?`,
		domain.StatusRevoked, at.UTC(), strings.ToUpper(strings.TrimSpace(number)), domain.StatusRevoked,
	).Error
}
