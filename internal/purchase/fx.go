package purchase

import (
	"github.com/smallbiznis/rewild/internal/purchase/repository"
	"github.com/smallbiznis/rewild/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
