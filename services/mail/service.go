package mail

import (
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
)

// Mailer sends a rendered template to a list of recipients.
type Mailer interface {
	SendTemplate(templateName string, to []string, subject string, data map[string]any) error
}

// Client is the part of *mail.Client used to deliver messages.
type Client interface {
	DialAndSend(messages ...*mail.Msg) error
}

// Service delivers mail over SMTP.
type Service struct {
	config   *config.MailConfig
	client   Client
	renderer *Renderer
	logger   *logging.Service
}

func NewService(cfg *config.MailConfig, renderer *Renderer, logger *logging.Service) (*Service, error) {
	logger.Info("initializing mail service",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("encryption", cfg.Encryption),
		zap.String("from_address", cfg.FromAddress))

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	switch cfg.Encryption {
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		logger.Error("failed to create mail client", zap.Error(err), zap.String("host", cfg.Host))
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return NewServiceWithClient(cfg, renderer, logger, client)
}

func NewServiceWithClient(cfg *config.MailConfig, renderer *Renderer, logger *logging.Service, client Client) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("mail renderer is required")
	}
	return &Service{
		config:   cfg,
		client:   client,
		renderer: renderer,
		logger:   logger.Named("mail"),
	}, nil
}

func (s *Service) newMessage() (*mail.Msg, error) {
	message := mail.NewMsg()
	if s.config.FromName != "" {
		if err := message.FromFormat(s.config.FromName, s.config.FromAddress); err != nil {
			return nil, fmt.Errorf("failed to set FROM address: %w", err)
		}
	} else if err := message.From(s.config.FromAddress); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}
	return message, nil
}

func (s *Service) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	html, text, err := s.renderer.Render(templateName, data)
	if err != nil {
		s.logger.Error("failed to render template", zap.Error(err), zap.String("template", templateName))
		return fmt.Errorf("failed to render template: %w", err)
	}

	message, err := s.newMessage()
	if err != nil {
		return err
	}
	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}
	message.Subject(subject)

	switch {
	case html != "" && text != "":
		message.SetBodyString(mail.TypeTextHTML, html)
		message.AddAlternativeString(mail.TypeTextPlain, text)
	case html != "":
		message.SetBodyString(mail.TypeTextHTML, html)
	default:
		message.SetBodyString(mail.TypeTextPlain, text)
	}

	start := time.Now()
	if err := s.client.DialAndSend(message); err != nil {
		s.logger.Error("failed to send email",
			zap.Error(err),
			zap.String("template", templateName),
			zap.Duration("attempt_duration", time.Since(start)))
		return err
	}

	s.logger.Info("email sent",
		zap.String("template", templateName),
		zap.Int("recipients", len(to)),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}
