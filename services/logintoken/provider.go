package logintoken

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
)

func ProvideLoginTokenService(cfg *config.Config, db *gorm.DB, users *auth.Service, clock clockwork.Clock, logger *logging.Service) *Service {
	return NewService(cfg, db, users, clock, logger)
}

type RetentionOut struct {
	fx.Out

	Categories []retention.Category `group:"retention_categories,flatten"`
}

// ProvideRetentionCategories registers expired tokens for pruning when
// RETENTION_PRUNE_LOGIN_TOKENS is enabled. The table is left alone otherwise.
func ProvideRetentionCategories(cfg *config.Config) RetentionOut {
	if !cfg.Retention.PruneLoginTokens {
		return RetentionOut{}
	}
	return RetentionOut{Categories: []retention.Category{RetentionCategory()}}
}

// RetentionCategory describes login tokens to the retention sweeper.
func RetentionCategory() retention.Category {
	return retention.Category{Name: "login-tokens", Model: &LoginToken{}}
}

var Module = fx.Options(
	fx.Provide(ProvideLoginTokenService),
	fx.Provide(ProvideRetentionCategories),
)
