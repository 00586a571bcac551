package retention

import (
	"context"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
)

type SweeperParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     *config.Config
	DB         *gorm.DB
	Files      FileDeleter
	Clock      clockwork.Clock
	Logger     *logging.Service
	Categories []Category `group:"retention_categories"`
}

// ProvideSweeper builds the sweeper from every category contributed to the
// retention_categories group, sorted by name.
func ProvideSweeper(p SweeperParams) (*Sweeper, error) {
	categories := slices.Clone(p.Categories)
	slices.SortFunc(categories, func(a, b Category) int { return strings.Compare(a.Name, b.Name) })

	s, err := NewSweeper(p.DB, p.Files, p.Clock, p.Logger, Options{
		Interval:   p.Config.Retention.Interval,
		RunOnStart: p.Config.Retention.RunOnStart,
	}, categories...)
	if err != nil {
		return nil, err
	}

	if p.Config.Retention.Enabled {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				// the start context expires once startup completes
				s.Start(context.Background())
				return nil
			},
			OnStop: func(context.Context) error {
				s.Stop()
				return nil
			},
		})
	}
	return s, nil
}

var Module = fx.Options(
	fx.Provide(ProvideSweeper),
)
