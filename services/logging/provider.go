package logging

import (
	"context"

	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/config"
)

var Module = fx.Options(
	fx.Provide(NewLoggingService),
)

func NewLoggingService(lc fx.Lifecycle, cfg *config.Config) (*Service, error) {
	svc, err := NewService(Config{
		Level:      LogLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// Sync fails on stdout/stderr on some platforms.
			_ = svc.Sync()
			return nil
		},
	})
	return svc, nil
}
