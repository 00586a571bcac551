package server

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/services/logging"
)

// Module provides the Server and binds its listener to the fx lifecycle. A
// listener failure shuts the application down.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, srv *Server, shutdowner fx.Shutdowner, logger *logging.Service) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := srv.Start(); err != nil {
						logger.Error("server stopped unexpectedly", zap.Error(err))
						_ = shutdowner.Shutdown(fx.ExitCode(1))
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)
