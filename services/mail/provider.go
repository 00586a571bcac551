package mail

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/mailqueue"
)

func ProvideRenderer(cfg *config.Config) (*Renderer, error) {
	return NewRenderer(cfg.Mail.TemplatesDir)
}

// ProvideMailer selects the transport named by MAIL_TRANSPORT.
func ProvideMailer(lc fx.Lifecycle, cfg *config.Config, renderer *Renderer, clock clockwork.Clock, logger *logging.Service) (Mailer, error) {
	switch cfg.Mail.Transport {
	case "smtp":
		return NewService(&cfg.Mail, renderer, logger)
	case "amqp":
		publisher, err := mailqueue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, renderer, clock, logger)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return publisher.Close()
			},
		})
		logger.Info("mail transport: amqp", zap.String("queue", cfg.AMQP.Queue))
		return publisher, nil
	case "log", "":
		return NewLogMailer(renderer, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail transport: %s", cfg.Mail.Transport)
	}
}

var Module = fx.Options(
	fx.Provide(ProvideRenderer),
	fx.Provide(ProvideMailer),
)
