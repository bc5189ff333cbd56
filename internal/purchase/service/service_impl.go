package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rewild/internal/checkout/metadata"
	"github.com/smallbiznis/rewild/internal/observability/logger"
	"github.com/smallbiznis/rewild/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/rewild/internal/payment/domain"
	projectdomain "github.com/smallbiznis/rewild/internal/project/domain"
	"github.com/smallbiznis/rewild/internal/purchase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Repo     domain.Repository
	Projects projectdomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
	GenID    *snowflake.Node
}

// Service turns a succeeded payment-intent mirror into the Purchase aggregate.
type Service struct {
	db       *gorm.DB
	repo     domain.Repository
	projects projectdomain.Repository
	metrics  *metrics.Metrics
	genID    *snowflake.Node
}

func New(p Params) *Service {
	return &Service{
		db:       p.DB,
		repo:     p.Repo,
		projects: p.Projects,
		metrics:  p.Metrics,
		genID:    p.GenID,
	}
}

// Materialize creates the purchase and its items for a succeeded
// payment-intent, exactly once. Concurrent and repeated calls for the same
// intent converge on the first materialized row; created reports whether this
// call did the write.
func (s *Service) Materialize(ctx context.Context, record *paymentdomain.IntentRecord, meta metadata.Metadata) (*domain.Purchase, bool, error) {
	log := logger.FromContext(ctx)

	if record == nil || record.GatewayIntentID == "" {
		return nil, false, domain.ErrInvalidPurchase
	}
	if record.Status != paymentdomain.StatusSucceeded {
		return nil, false, fmt.Errorf("%w: intent %s is %s", domain.ErrInvalidPurchase, record.GatewayIntentID, record.Status)
	}
	if meta.Kind != metadata.KindPurchase || len(meta.Items) == 0 {
		return nil, false, fmt.Errorf("%w: intent %s carries no purchase items", domain.ErrInvalidPurchase, record.GatewayIntentID)
	}

	items, err := s.buildItems(ctx, meta)
	if err != nil {
		return nil, false, err
	}

	email := record.PayerEmail
	if email == "" {
		email = meta.Email
	}

	purchase := &domain.Purchase{
		ID:              s.genID.Generate(),
		GatewayIntentID: record.GatewayIntentID,
		Email:           email,
		AmountTotal:     record.Amount,
		Currency:        record.Currency,
		CertificateType: meta.CertificateType,
		Legacy:          meta.Legacy,
	}

	persisted, created, err := s.repo.CreateWithItems(ctx, s.db, purchase, items)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.metrics.RecordPurchaseMaterialized()
		log.Info("purchase materialized",
			zap.String("gateway_intent_id", record.GatewayIntentID),
			zap.Int64("amount_total", persisted.AmountTotal),
			zap.Int("items", len(persisted.Items)),
		)
	}
	return persisted, created, nil
}

// FindByGatewayIntentID exposes the repository lookup for reconciliation.
func (s *Service) FindByGatewayIntentID(ctx context.Context, gatewayIntentID string) (*domain.Purchase, error) {
	return s.repo.FindByGatewayIntentID(ctx, s.db, gatewayIntentID)
}

// buildItems prices each decoded line. Modern metadata carries the unit price
// captured at checkout; legacy metadata does not, so the current catalog price
// fills the gap.
func (s *Service) buildItems(ctx context.Context, meta metadata.Metadata) ([]domain.Item, error) {
	log := logger.FromContext(ctx)

	items := make([]domain.Item, 0, len(meta.Items))
	for _, line := range meta.Items {
		unitPrice := line.UnitPrice
		if unitPrice == 0 {
			project, err := s.projects.FindByCode(ctx, s.db, line.ProjectCode)
			if err != nil {
				return nil, err
			}
			if project != nil {
				unitPrice = project.UnitPriceAmount
			} else {
				log.Warn("no price for project, recording zero",
					zap.String("project_code", line.ProjectCode),
				)
			}
		}
		items = append(items, domain.Item{
			ID:          s.genID.Generate(),
			ProjectCode: line.ProjectCode,
			AreaSqm:     line.Quantity,
			UnitPrice:   unitPrice,
			Amount:      line.Quantity * unitPrice,
		})
	}
	return items, nil
}
