package database

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
)

var Module = fx.Options(
	fx.Provide(ProvideDatabaseFx),
)

func ProvideDatabaseFx(lc fx.Lifecycle, cfg *config.Config, modelsOpt *ModelsOption, clock clockwork.Clock, logger *logging.Service) (*gorm.DB, error) {
	db, err := ProvideDatabase(*cfg, modelsOpt, clock, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}
