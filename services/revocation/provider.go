package revocation

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
)

func ProvideRevocationService(lc fx.Lifecycle, db *gorm.DB, clock clockwork.Clock, logger *logging.Service) *Service {
	svc := NewService(db, clock, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Load(ctx)
		},
	})
	return svc
}

type RetentionOut struct {
	fx.Out

	Category retention.Category `group:"retention_categories"`
}

// ProvideRetentionCategory lets the sweeper drop revocations once the token
// they block has expired.
func ProvideRetentionCategory() RetentionOut {
	return RetentionOut{Category: RetentionCategory()}
}

func RetentionCategory() retention.Category {
	return retention.Category{Name: "revoked-tokens", Model: &RevokedToken{}}
}

var Module = fx.Options(
	fx.Provide(ProvideRevocationService),
	fx.Provide(ProvideRetentionCategory),
)
