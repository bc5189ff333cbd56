package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/rewild/internal/certificate/domain"
	"github.com/smallbiznis/rewild/internal/config"
	"github.com/smallbiznis/rewild/internal/observability/logger"
	"github.com/smallbiznis/rewild/internal/observability/metrics"
	"github.com/smallbiznis/rewild/internal/providers/email"
	"github.com/smallbiznis/rewild/internal/providers/pdf"
	"github.com/smallbiznis/rewild/internal/providers/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RenderParams struct {
	fx.In

	DB       *gorm.DB
	Repo     domain.Repository
	Renderer pdf.Renderer
	Store    storage.ObjectStore
	Mailer   email.Provider
	Metrics  *metrics.Metrics `optional:"true"`
	Cfg      config.Config
}

// RenderService turns issued certificates into published documents. Rendering
// sits outside the issuance transaction: a failed render leaves the
// certificate issued and retriable, never unissued.
type RenderService struct {
	db       *gorm.DB
	repo     domain.Repository
	renderer pdf.Renderer
	store    storage.ObjectStore
	mailer   email.Provider
	metrics  *metrics.Metrics
	cfg      config.Config
}

func NewRenderService(p RenderParams) *RenderService {
	return &RenderService{
		db:       p.DB,
		repo:     p.Repo,
		renderer: p.Renderer,
		store:    p.Store,
		mailer:   p.Mailer,
		metrics:  p.Metrics,
		cfg:      p.Cfg,
	}
}

// RenderPending renders and publishes every certificate in certs that has no
// document yet. Each certificate is handled independently; a failure is
// logged and counted but never propagated, so one broken render cannot hold
// back the others or the reconciliation that triggered it.
func (s *RenderService) RenderPending(ctx context.Context, certs []domain.Certificate) []domain.Certificate {
	log := logger.FromContext(ctx)

	out := make([]domain.Certificate, len(certs))
	copy(out, certs)

	for i := range out {
		if out[i].PDFURL != "" || out[i].Status == domain.StatusRevoked {
			continue
		}
		url, err := s.renderOne(ctx, out[i])
		if err != nil {
			s.metrics.RecordRenderFailure()
			log.Warn("certificate render failed",
				zap.String("number", out[i].Number),
				zap.Error(err),
			)
			continue
		}
		if url == "" {
			continue
		}
		out[i].PDFURL = url
		s.notify(ctx, out[i])
	}
	return out
}

// Rerender regenerates the document for one certificate regardless of whether
// it already has one.
func (s *RenderService) Rerender(ctx context.Context, number string) (*domain.Certificate, error) {
	cert, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, domain.ErrNotFound
	}
	if cert.Status == domain.StatusRevoked {
		return nil, domain.ErrRevoked
	}

	url, err := s.renderOne(ctx, *cert)
	if err != nil {
		s.metrics.RecordRenderFailure()
		return nil, err
	}
	if url != "" {
		cert.PDFURL = url
	}
	return cert, nil
}

func (s *RenderService) renderOne(ctx context.Context, cert domain.Certificate) (string, error) {
	doc, err := s.renderer.RenderCertificate(ctx, pdf.CertificateData{
		Number:          cert.Number,
		ProjectName:     cert.ProjectName,
		ProjectCode:     cert.ProjectCode,
		AreaSqm:         cert.AreaSqm,
		HolderEmail:     cert.HolderEmail,
		IssuedAt:        cert.IssuedAt.Format("2 January 2006"),
		VerificationURL: fmt.Sprintf("%s/%s", s.cfg.VerificationURL, cert.Number),
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", cert.Number, err)
	}

	key := cert.Number + ".pdf"
	if err := s.store.Put(ctx, key, "application/pdf", doc); err != nil {
		return "", fmt.Errorf("publish %s: %w", cert.Number, err)
	}

	url := s.store.PublicURL(key)
	if url == "" {
		return "", nil
	}
	if err := s.repo.UpdatePDFURL(ctx, s.db, cert.ID, url); err != nil {
		return "", fmt.Errorf("record %s: %w", cert.Number, err)
	}
	return url, nil
}

func (s *RenderService) notify(ctx context.Context, cert domain.Certificate) {
	if cert.HolderEmail == "" {
		return
	}
	body := fmt.Sprintf(
		`<p>Your certificate %s for %d m&sup2; in %s is ready.</p><p><a href="%s">Download certificate</a></p>`,
		cert.Number, cert.AreaSqm, cert.ProjectName, cert.PDFURL,
	)
	if err := s.mailer.Send(ctx, []string{cert.HolderEmail}, "Your restoration certificate "+cert.Number, body); err != nil {
		logger.FromContext(ctx).Warn("certificate mail failed",
			zap.String("number", cert.Number),
			zap.Error(err),
		)
	}
}
