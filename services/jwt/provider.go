package jwt

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/revocation"
)

func NewJWTService(cfg *config.Config, clock clockwork.Clock, logger *logging.Service, revocations *revocation.Service) *Service {
	return NewService(cfg, clock, logger, revocations)
}

var Module = fx.Options(
	fx.Provide(NewJWTService),
)
