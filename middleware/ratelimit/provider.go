package ratelimit

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/config"
)

func ProvideRateLimitStore(lc fx.Lifecycle, cfg *config.Config, clock clockwork.Clock) (Store, error) {
	switch cfg.RateLimit.Store {
	case "memory", "":
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", cfg.RateLimit.Store)
	}

	store := NewMemoryStore(clock)
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go store.RunCleanup(cfg.RateLimit.AuthPeriod, stop)
			return nil
		},
		OnStop: func(context.Context) error {
			close(stop)
			return nil
		},
	})
	return store, nil
}

// AuthLimiter is the middleware applied to the public sign-in endpoints.
type AuthLimiter echo.MiddlewareFunc

func ProvideAuthLimiter(cfg *config.Config, store Store, clock clockwork.Clock) AuthLimiter {
	return AuthLimiter(Middleware(&Config{
		Store:        store,
		Clock:        clock,
		Rate:         cfg.RateLimit.AuthRate,
		Period:       cfg.RateLimit.AuthPeriod,
		CountMode:    cfg.RateLimit.CountMode,
		KeyGenerator: PathKeyGenerator,
	}))
}

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
	fx.Provide(ProvideAuthLimiter),
)
