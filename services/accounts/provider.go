package accounts

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/logintoken"
	"github.com/tech-arch1tect/seminary/services/mail"
)

func ProvideAccountsService(lc fx.Lifecycle, cfg *config.Config, db *gorm.DB, users *auth.Service, tokens *logintoken.Service, mailer mail.Mailer, logger *logging.Service) *Service {
	svc := NewService(cfg, db, users, tokens, mailer, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.SeedAdmin(ctx)
		},
	})
	return svc
}

var Module = fx.Options(
	fx.Provide(ProvideAccountsService),
)
