package mail

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/services/logging"
)

// LogMailer renders messages and writes them to the log instead of sending
// them. It is the development transport.
type LogMailer struct {
	renderer *Renderer
	logger   *logging.Service
}

func NewLogMailer(renderer *Renderer, logger *logging.Service) *LogMailer {
	return &LogMailer{renderer: renderer, logger: logger.Named("mail")}
}

func (m *LogMailer) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	_, text, err := m.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	m.logger.Info("email not sent (log transport)",
		zap.String("template", templateName),
		zap.Strings("to", to),
		zap.String("subject", subject))
	m.logger.Debug("email body", zap.String("text", text))
	return nil
}
