package migration

import (
	"github.com/smallbiznis/rewild/internal/config"
	"github.com/smallbiznis/rewild/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The embedded migrations target postgres; other dialects are for
		// tests and bring their own schema.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.SeedDemoProjects {
			return seed.EnsureDemoProjects(conn)
		}
		return nil
	}),
)
