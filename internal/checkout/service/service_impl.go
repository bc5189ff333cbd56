package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/rewild/internal/checkout/domain"
	"github.com/smallbiznis/rewild/internal/checkout/metadata"
	"github.com/smallbiznis/rewild/internal/config"
	gatewaydomain "github.com/smallbiznis/rewild/internal/gateway/domain"
	"github.com/smallbiznis/rewild/internal/observability/logger"
	"github.com/smallbiznis/rewild/internal/observability/metrics"
	projectdomain "github.com/smallbiznis/rewild/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Projects projectdomain.Repository
	Gateway  gatewaydomain.Gateway
	Metrics  *metrics.Metrics `optional:"true"`
	Cfg      config.Config
}

type Service struct {
	db       *gorm.DB
	projects projectdomain.Repository
	gateway  gatewaydomain.Gateway
	metrics  *metrics.Metrics
	cfg      config.Config
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		projects: p.Projects,
		gateway:  p.Gateway,
		metrics:  p.Metrics,
		cfg:      p.Cfg,
	}
}

func (s *Service) StartPurchase(ctx context.Context, req domain.PurchaseRequest) (*domain.Session, error) {
	log := logger.FromContext(ctx)

	quote, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}

	meta, err := metadata.Encode(metadata.Metadata{
		Kind:            metadata.KindPurchase,
		Email:           strings.TrimSpace(req.Email),
		Items:           quote.Items,
		CertificateType: strings.TrimSpace(req.CertificateType),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	session, err := s.createSession(ctx, quote.AmountTotal, quote.Currency, quote.Description, req.Email, meta)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCheckoutSession("purchase")
	log.Info("checkout session created",
		zap.String("session_id", session.SessionID),
		zap.Int64("amount_total", session.AmountTotal),
		zap.String("currency", session.Currency),
		zap.Int("items", len(quote.Items)),
	)
	return session, nil
}

func (s *Service) StartDonation(ctx context.Context, req domain.DonationRequest) (*domain.Session, error) {
	log := logger.FromContext(ctx)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: donation amount must be positive", domain.ErrInvalidRequest)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	description := "Donation"
	if code := strings.TrimSpace(req.ProjectCode); code != "" {
		project, err := s.projects.FindByCode(ctx, s.db, code)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProject, code)
		}
		description = "Donation to " + project.Name
	}

	meta, err := metadata.Encode(metadata.Metadata{
		Kind:        metadata.KindDonation,
		Email:       strings.TrimSpace(req.Email),
		ProjectCode: strings.TrimSpace(req.ProjectCode),
		DonorName:   strings.TrimSpace(req.DonorName),
		Message:     req.Message,
		Anonymous:   req.Anonymous,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	session, err := s.createSession(ctx, req.Amount, currency, description, req.Email, meta)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCheckoutSession("donation")
	log.Info("donation session created",
		zap.String("session_id", session.SessionID),
		zap.Int64("amount", req.Amount),
		zap.String("currency", currency),
	)
	return session, nil
}

// quote resolves each requested line against the catalog and prices the order.
// The availability check is advisory: an unreadable figure never blocks the
// checkout, only a readable figure smaller than the requested quantity does.
func (s *Service) quote(ctx context.Context, req domain.PurchaseRequest) (*domain.Quote, error) {
	log := logger.FromContext(ctx)

	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", domain.ErrInvalidRequest)
	}

	quote := &domain.Quote{Currency: s.cfg.DefaultCurrency}
	seen := make(map[string]bool, len(req.Items))
	var names []string

	for _, line := range req.Items {
		code := strings.TrimSpace(line.ProjectCode)
		if code == "" || line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: each item needs a project code and a positive quantity", domain.ErrInvalidRequest)
		}
		if seen[code] {
			return nil, fmt.Errorf("%w: duplicate project %s", domain.ErrInvalidRequest, code)
		}
		seen[code] = true

		project, err := s.projects.FindByCode(ctx, s.db, code)
		if err != nil {
			return nil, err
		}
		if project == nil || !project.Active {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProject, code)
		}
		if project.Currency != quote.Currency {
			return nil, fmt.Errorf("%w: project %s is priced in %s", domain.ErrCurrencyMismatch, code, project.Currency)
		}

		available, ok, err := s.projects.Availability(ctx, s.db, code)
		if err != nil || !ok {
			log.Warn("availability unreadable, proceeding",
				zap.String("project_code", code),
				zap.Error(err),
			)
		} else if line.Quantity > available {
			return nil, fmt.Errorf("%w: project %s has %d m² available", domain.ErrInsufficientArea, code, available)
		}

		quote.Items = append(quote.Items, metadata.Item{
			ProjectCode: code,
			Quantity:    line.Quantity,
			UnitPrice:   project.UnitPriceAmount,
		})
		quote.AmountTotal += line.Quantity * project.UnitPriceAmount
		names = append(names, project.Name)
	}

	if quote.AmountTotal <= 0 {
		return nil, fmt.Errorf("%w: order total must be positive", domain.ErrInvalidRequest)
	}
	quote.Description = "Restored area in " + strings.Join(names, ", ")
	return quote, nil
}

func (s *Service) createSession(ctx context.Context, amount int64, currency, description, email string, meta map[string]string) (*domain.Session, error) {
	session, err := s.gateway.CreateCheckoutSession(ctx, gatewaydomain.CheckoutSessionParams{
		AmountTotal:    amount,
		Currency:       currency,
		Description:    description,
		CustomerEmail:  strings.TrimSpace(email),
		Metadata:       meta,
		SuccessURL:     s.cfg.CheckoutSuccessURL,
		CancelURL:      s.cfg.CheckoutCancelURL,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCheckoutUnavailable, err)
	}
	return &domain.Session{
		SessionID:   session.ID,
		RedirectURL: session.URL,
		AmountTotal: amount,
		Currency:    currency,
	}, nil
}
