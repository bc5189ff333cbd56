package payment

import (
	"github.com/smallbiznis/rewild/internal/payment/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
)
