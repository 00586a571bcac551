package app

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/database"
	"github.com/tech-arch1tect/seminary/handlers"
	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/middleware/ratelimit"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/server"
	"github.com/tech-arch1tect/seminary/services/accounts"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/content"
	"github.com/tech-arch1tect/seminary/services/jwt"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/logintoken"
	"github.com/tech-arch1tect/seminary/services/mail"
	"github.com/tech-arch1tect/seminary/services/retention"
	"github.com/tech-arch1tect/seminary/services/revocation"
	"github.com/tech-arch1tect/seminary/services/storage"
	"github.com/tech-arch1tect/seminary/session"
)

type AppBuilder struct {
	config    *config.Config
	clock     clockwork.Clock
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.errors = append(b.errors, errors.New("config cannot be nil"))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.errors = append(b.errors, fmt.Errorf("failed to load config: %w", err))
		return b
	}
	b.config = cfg
	return b
}

// WithClock replaces the real clock everywhere time is read.
func (b *AppBuilder) WithClock(clock clockwork.Clock) *AppBuilder {
	b.clock = clock
	return b
}

// WithFxOptions adds options after the built-in modules, e.g. fx.Decorate
// overrides in tests.
func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

// Models lists every persisted model.
func Models() []any {
	models := []any{
		&auth.User{},
		&logintoken.LoginToken{},
		&revocation.RevokedToken{},
		&session.UserSession{},
	}
	return append(models, content.Models()...)
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}

	clock := b.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	app := &App{config: b.config, clock: clock}

	options := []fx.Option{
		fx.NopLogger,
		config.NewProvider(b.config),
		fx.Provide(func() clockwork.Clock { return clock }),
		fx.Supply(database.WithModels(Models()...)),

		logging.Module,
		database.Module,
		storage.Module,
		fx.Provide(func(store storage.Store) retention.FileDeleter { return store }),

		auth.Module,
		logintoken.Module,
		revocation.Module,
		jwt.Module,
		session.Module,
		mail.Module,
		accounts.Module,
		content.Module,
		retention.Module,

		ratelimit.Module,
		server.Module,
		authn.Module,
		openapi.Module,
		handlers.Module,
	}
	options = append(options, b.fxOptions...)
	options = append(options, fx.Populate(&app.logger, &app.db, &app.server, &app.sweeper))

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	return app, nil
}
