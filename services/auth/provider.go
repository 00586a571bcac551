package auth

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
)

func ProvideAuthService(cfg *config.Config, db *gorm.DB, clock clockwork.Clock, logger *logging.Service) *Service {
	return NewService(cfg, db, clock, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideAuthService),
)
