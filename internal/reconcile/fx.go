package reconcile

import (
	"github.com/smallbiznis/rewild/internal/reconcile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile",
	fx.Provide(service.New),
)
