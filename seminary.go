package seminary

import (
	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/app"
	"github.com/tech-arch1tect/seminary/config"
)

type App = app.App

// New builds the application from the environment. Extra fx options are
// applied after the built-in modules.
func New(opts ...fx.Option) (*App, error) {
	return app.NewApp().WithAutoConfig().WithFxOptions(opts...).Build()
}

// NewWithConfig builds the application from an explicit configuration.
func NewWithConfig(cfg *config.Config, opts ...fx.Option) (*App, error) {
	return app.NewApp().WithConfig(cfg).WithFxOptions(opts...).Build()
}
