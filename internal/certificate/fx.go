package certificate

import (
	"context"

	"github.com/smallbiznis/rewild/internal/certificate/domain"
	"github.com/smallbiznis/rewild/internal/certificate/repository"
	"github.com/smallbiznis/rewild/internal/certificate/service"
	"github.com/smallbiznis/rewild/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("certificate",
	fx.Provide(
		repository.Provide,
		provideSerialGenerator,
		service.New,
		service.NewRenderService,
		provideSweeper,
	),
	fx.Invoke(runSweeper),
)

func provideSweeper(db *gorm.DB, repo domain.Repository, render *service.RenderService) *service.Sweeper {
	return service.NewSweeper(db, repo, render)
}

func runSweeper(lc fx.Lifecycle, sweeper *service.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			go sweeper.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
			return nil
		},
	})
}

func provideSerialGenerator(cfg config.Config) service.SerialGenerator {
	return service.NewSerialGenerator(cfg.CertificatePrefix)
}
