package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	certificateservice "github.com/smallbiznis/rewild/internal/certificate/service"
	"github.com/smallbiznis/rewild/internal/checkout/metadata"
	gatewaydomain "github.com/smallbiznis/rewild/internal/gateway/domain"
	"github.com/smallbiznis/rewild/internal/observability/logger"
	"github.com/smallbiznis/rewild/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/rewild/internal/payment/domain"
	purchaseservice "github.com/smallbiznis/rewild/internal/purchase/service"
	"github.com/smallbiznis/rewild/internal/reconcile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Gateway      gatewaydomain.Gateway
	Payments     paymentdomain.Repository
	Purchases    *purchaseservice.Service
	Certificates *certificateservice.Service
	Renderer     *certificateservice.RenderService
	Metrics      *metrics.Metrics `optional:"true"`
	GenID        *snowflake.Node
}

type Service struct {
	db           *gorm.DB
	gateway      gatewaydomain.Gateway
	payments     paymentdomain.Repository
	purchases    *purchaseservice.Service
	certificates *certificateservice.Service
	renderer     *certificateservice.RenderService
	metrics      *metrics.Metrics
	genID        *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		gateway:      p.Gateway,
		payments:     p.Payments,
		purchases:    p.Purchases,
		certificates: p.Certificates,
		renderer:     p.Renderer,
		metrics:      p.Metrics,
		genID:        p.GenID,
	}
}

func (s *Service) Reconcile(ctx context.Context, reference string) (*domain.Result, error) {
	result, err := s.reconcile(ctx, reference)
	if err != nil {
		s.metrics.RecordReconcileRun("error")
		return nil, err
	}
	s.metrics.RecordReconcileRun("ok")
	return result, nil
}

func (s *Service) reconcile(ctx context.Context, reference string) (*domain.Result, error) {
	log := logger.FromContext(ctx)

	intentID, err := s.resolve(ctx, reference)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, gatewaydomain.ErrIntentNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	record := &paymentdomain.IntentRecord{
		ID:              s.genID.Generate(),
		GatewayIntentID: intent.ID,
		Status:          paymentdomain.StatusFromGateway(intent.Status),
		Amount:          intent.Amount,
		Currency:        strings.ToUpper(intent.Currency),
		PayerEmail:      intent.Email,
		RawMetadata:     toJSONMap(intent.Metadata),
	}
	if intent.Created > 0 {
		record.CreatedAt = time.Unix(intent.Created, 0).UTC()
	}
	if err := s.payments.Upsert(ctx, s.db, record); err != nil {
		return nil, err
	}
	mirrored, err := s.payments.FindByGatewayID(ctx, s.db, intent.ID)
	if err != nil {
		return nil, err
	}
	if mirrored == nil {
		return nil, domain.ErrPaymentNotFound
	}

	result := &domain.Result{
		PaymentIntentID: mirrored.GatewayIntentID,
		Status:          string(mirrored.Status),
		Kind:            domain.KindUnknown,
		Email:           mirrored.PayerEmail,
		Amount:          mirrored.Amount,
		Currency:        mirrored.Currency,
		Created:         mirrored.CreatedAt,
	}

	meta, err := metadata.Decode(intent.Metadata)
	if err != nil {
		// The payment is real even when its context is unreadable; keep the
		// mirror and surface the payment without materializing anything.
		log.Error("payment metadata unreadable",
			zap.String("gateway_intent_id", intent.ID),
			zap.Error(err),
		)
		return result, nil
	}

	switch meta.Kind {
	case metadata.KindDonation:
		result.Kind = domain.KindDonation
		return result, nil
	case metadata.KindPurchase:
		result.Kind = domain.KindPurchase
	}

	if mirrored.Status != paymentdomain.StatusSucceeded {
		return result, nil
	}

	purchase, _, err := s.purchases.Materialize(ctx, mirrored, meta)
	if err != nil {
		return nil, err
	}

	certs, err := s.certificates.IssueForPurchase(ctx, purchase)
	if err != nil {
		return nil, err
	}
	certs = s.renderer.RenderPending(ctx, certs)

	result.Email = purchase.Email
	for _, cert := range certs {
		result.Certificates = append(result.Certificates, domain.CertificateSummary{
			Number:      cert.Number,
			ProjectCode: cert.ProjectCode,
			ProjectName: cert.ProjectName,
			AreaSqm:     cert.AreaSqm,
			PDFURL:      cert.PDFURL,
		})
	}
	return result, nil
}

// resolve turns either kind of gateway reference into a payment-intent id.
func (s *Service) resolve(ctx context.Context, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	switch {
	case reference == "":
		return "", domain.ErrInvalidReference
	case strings.HasPrefix(reference, "cs_"):
		session, err := s.gateway.RetrieveCheckoutSession(ctx, reference)
		if err != nil {
			if errors.Is(err, gatewaydomain.ErrSessionNotFound) {
				return "", domain.ErrPaymentNotFound
			}
			return "", err
		}
		if session.PaymentIntentID == "" {
			return "", domain.ErrPaymentNotFound
		}
		return session.PaymentIntentID, nil
	case strings.HasPrefix(reference, "pi_"):
		return reference, nil
	default:
		return "", domain.ErrInvalidReference
	}
}

func toJSONMap(meta map[string]string) datatypes.JSONMap {
	if len(meta) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
