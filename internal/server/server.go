package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/rewild/internal/certificate"
	certificateservice "github.com/smallbiznis/rewild/internal/certificate/service"
	"github.com/smallbiznis/rewild/internal/checkout"
	checkoutdomain "github.com/smallbiznis/rewild/internal/checkout/domain"
	"github.com/smallbiznis/rewild/internal/config"
	"github.com/smallbiznis/rewild/internal/gateway"
	"github.com/smallbiznis/rewild/internal/observability"
	obslogger "github.com/smallbiznis/rewild/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rewild/internal/observability/metrics"
	obstracing "github.com/smallbiznis/rewild/internal/observability/tracing"
	"github.com/smallbiznis/rewild/internal/payment"
	"github.com/smallbiznis/rewild/internal/project"
	projectdomain "github.com/smallbiznis/rewild/internal/project/domain"
	"github.com/smallbiznis/rewild/internal/providers"
	"github.com/smallbiznis/rewild/internal/purchase"
	"github.com/smallbiznis/rewild/internal/ratelimit"
	"github.com/smallbiznis/rewild/internal/reconcile"
	reconciledomain "github.com/smallbiznis/rewild/internal/reconcile/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	gateway.Module,
	providers.Module,
	project.Module,
	payment.Module,
	checkout.Module,
	purchase.Module,
	certificate.Module,
	reconcile.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", m.Handler())

	return r
}

func registerGin(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(obsCfg, m)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	checkout     checkoutdomain.Service
	reconciler   reconciledomain.Service
	certificates *certificateservice.Service
	renderer     *certificateservice.RenderService
	projects     projectdomain.Repository
	bucket       *ratelimit.TokenBucket
	metrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Engine       *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Checkout     checkoutdomain.Service
	Reconciler   reconciledomain.Service
	Certificates *certificateservice.Service
	Renderer     *certificateservice.RenderService
	Projects     projectdomain.Repository
	Bucket       *ratelimit.TokenBucket `optional:"true"`
	Metrics      *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Engine,
		cfg:          p.Cfg,
		db:           p.DB,
		checkout:     p.Checkout,
		reconciler:   p.Reconciler,
		certificates: p.Certificates,
		renderer:     p.Renderer,
		projects:     p.Projects,
		bucket:       p.Bucket,
		metrics:      p.Metrics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	checkoutLimit := ratelimit.Middleware(s.bucket, s.metrics, ratelimit.Limit{
		Name:  "checkout",
		Rate:  2,
		Burst: 10,
	})
	reconcileLimit := ratelimit.Middleware(s.bucket, s.metrics, ratelimit.Limit{
		Name:  "reconcile",
		Rate:  5,
		Burst: 20,
	})

	v1.GET("/projects", s.ListProjects)

	v1.POST("/checkout/purchase", checkoutLimit, s.StartPurchase)
	v1.POST("/checkout/donation", checkoutLimit, s.StartDonation)

	v1.GET("/payments/reconcile", reconcileLimit, s.ReconcilePayment)

	v1.GET("/certificates/:number", s.GetCertificate)
	v1.POST("/certificates/:number/render", s.RerenderCertificate)
	v1.POST("/certificates/:number/revoke", s.RevokeCertificate)
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation", "invalid_request"
	case isNotFoundError(err):
		return "not_found", "not_found"
	case errors.Is(err, checkoutdomain.ErrCheckoutUnavailable):
		return "upstream", "gateway_unavailable"
	default:
		return "internal", "internal_error"
	}
}
