package providers

import (
	"github.com/smallbiznis/rewild/internal/config"
	"github.com/smallbiznis/rewild/internal/providers/email"
	"github.com/smallbiznis/rewild/internal/providers/pdf"
	"github.com/smallbiznis/rewild/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	fx.Provide(
		pdf.NewRenderer,
		provideObjectStore,
	),
)

func provideObjectStore(cfg config.Config) (storage.ObjectStore, error) {
	if cfg.Storage.Endpoint == "" {
		return storage.NewNoOpStore(), nil
	}
	return storage.NewMinioStore(cfg.Storage)
}
