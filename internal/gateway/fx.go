package gateway

import (
	"time"

	"github.com/smallbiznis/rewild/internal/config"
	gatewaydomain "github.com/smallbiznis/rewild/internal/gateway/domain"
	"github.com/smallbiznis/rewild/internal/gateway/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway",
	fx.Provide(func(cfg config.Config) gatewaydomain.Gateway {
		return stripe.NewClient(stripe.Config{
			APIKey:  cfg.Stripe.APIKey,
			APIBase: cfg.Stripe.APIBase,
			Timeout: time.Duration(cfg.Stripe.Timeout) * time.Second,
		})
	}),
)
