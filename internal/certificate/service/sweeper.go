package service

import (
	"context"
	"time"

	"github.com/smallbiznis/rewild/internal/certificate/domain"
	"github.com/smallbiznis/rewild/internal/observability/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sweepInterval  = 5 * time.Minute
	sweepBatchSize = 100
)

// Sweeper retries failed certificate renders in the background. Issuance
// never waits on a render, so a broken object store or PDF engine only delays
// documents; the sweeper picks the stragglers up once the dependency is back.
type Sweeper struct {
	db     *gorm.DB
	repo   domain.Repository
	render *RenderService
}

func NewSweeper(db *gorm.DB, repo domain.Repository, render *RenderService) *Sweeper {
	return &Sweeper{db: db, repo: repo, render: render}
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				logger.FromContext(ctx).Warn("render sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) error {
	pending, err := s.repo.ListMissingDocuments(ctx, s.db, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	rendered := s.render.RenderPending(ctx, pending)

	done := 0
	for _, cert := range rendered {
		if cert.PDFURL != "" {
			done++
		}
	}
	logger.FromContext(ctx).Info("render sweep",
		zap.Int("pending", len(pending)),
		zap.Int("rendered", done),
	)
	return nil
}
