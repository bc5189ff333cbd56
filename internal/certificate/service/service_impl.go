package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rewild/internal/certificate/domain"
	"github.com/smallbiznis/rewild/internal/observability/logger"
	"github.com/smallbiznis/rewild/internal/observability/metrics"
	projectdomain "github.com/smallbiznis/rewild/internal/project/domain"
	purchasedomain "github.com/smallbiznis/rewild/internal/purchase/domain"
	pkgdb "github.com/smallbiznis/rewild/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// serialAttempts bounds regeneration when a generated number collides.
const serialAttempts = 3

type Params struct {
	fx.In

	DB       *gorm.DB
	Repo     domain.Repository
	Projects projectdomain.Repository
	Serials  SerialGenerator
	Metrics  *metrics.Metrics `optional:"true"`
	GenID    *snowflake.Node
}

// Service issues certificates for materialized purchases.
type Service struct {
	db       *gorm.DB
	repo     domain.Repository
	projects projectdomain.Repository
	serials  SerialGenerator
	metrics  *metrics.Metrics
	genID    *snowflake.Node
}

func New(p Params) *Service {
	return &Service{
		db:       p.DB,
		repo:     p.Repo,
		projects: p.Projects,
		serials:  p.Serials,
		metrics:  p.Metrics,
		genID:    p.GenID,
	}
}

// IssueForPurchase issues one certificate per purchase line, exactly once.
// Lines that already have a certificate are skipped; a collision on the public
// number regenerates and retries a bounded number of times. The returned slice
// always reflects the persisted state for the whole purchase.
func (s *Service) IssueForPurchase(ctx context.Context, purchase *purchasedomain.Purchase) ([]domain.Certificate, error) {
	log := logger.FromContext(ctx)

	if purchase == nil || purchase.ID == 0 {
		return nil, domain.ErrInvalidCertificate
	}

	certType := domain.TypeDigital
	if strings.EqualFold(purchase.CertificateType, string(domain.TypePhysical)) {
		certType = domain.TypePhysical
	}

	for _, item := range purchase.Items {
		created, err := s.issueLine(ctx, purchase, item, certType)
		if err != nil {
			return nil, err
		}
		if created {
			s.metrics.RecordCertificateIssued()
			log.Info("certificate issued",
				zap.String("gateway_intent_id", purchase.GatewayIntentID),
				zap.String("project_code", item.ProjectCode),
				zap.Int64("area_sqm", item.AreaSqm),
			)
		}
	}

	return s.repo.ListByPurchaseID(ctx, s.db, purchase.ID)
}

func (s *Service) issueLine(ctx context.Context, purchase *purchasedomain.Purchase, item purchasedomain.Item, certType domain.Type) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < serialAttempts; attempt++ {
		cert := &domain.Certificate{
			ID:          s.genID.Generate(),
			Number:      s.serials.Generate(),
			PurchaseID:  purchase.ID,
			ProjectCode: item.ProjectCode,
			ProjectName: s.projects.DisplayName(ctx, s.db, item.ProjectCode),
			AreaSqm:     item.AreaSqm,
			HolderEmail: purchase.Email,
			Type:        certType,
			Status:      domain.StatusIssued,
			IssuedAt:    time.Now().UTC(),
		}

		created, err := s.repo.InsertIfAbsent(ctx, s.db, cert)
		if err == nil {
			return created, nil
		}
		if !pkgdb.IsDuplicateKeyErr(err) {
			return false, err
		}
		// Number collision: the (purchase, project) conflict is absorbed by
		// the insert itself, so a duplicate-key error here can only come from
		// the number index.
		lastErr = err
	}
	return false, fmt.Errorf("%w: %v", domain.ErrNumberExhausted, lastErr)
}

// FindByNumber resolves a public certificate number for verification.
func (s *Service) FindByNumber(ctx context.Context, number string) (*domain.Certificate, error) {
	cert, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, domain.ErrNotFound
	}
	return cert, nil
}

// ListByPurchaseID returns every certificate issued for one purchase.
func (s *Service) ListByPurchaseID(ctx context.Context, purchaseID snowflake.ID) ([]domain.Certificate, error) {
	return s.repo.ListByPurchaseID(ctx, s.db, purchaseID)
}

// Revoke marks a certificate revoked. Revoking an already-revoked certificate
// is a no-op.
func (s *Service) Revoke(ctx context.Context, number string) (*domain.Certificate, error) {
	cert, err := s.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if cert.Status == domain.StatusRevoked {
		return cert, nil
	}
	if err := s.repo.Revoke(ctx, s.db, number, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.FindByNumber(ctx, number)
}
