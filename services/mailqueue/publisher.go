package mailqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/services/logging"
)

const publishTimeout = 5 * time.Second

// Message is the JSON body published for each outgoing email. A separate
// worker consumes the queue and delivers it.
type Message struct {
	Template string   `json:"template"`
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	HTML     string   `json:"html,omitempty"`
	Text     string   `json:"text,omitempty"`
}

type Renderer interface {
	Render(name string, data map[string]any) (html, text string, err error)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher hands rendered mail to a durable AMQP queue.
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	queue    string
	renderer Renderer
	clock    clockwork.Clock
	logger   *logging.Service
}

func NewPublisher(url, queueName string, renderer Renderer, clock clockwork.Clock, logger *logging.Service) (*Publisher, error) {
	const op = "mailqueue.NewPublisher"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := newPublisher(ch, q.Name, renderer, clock, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, queue string, renderer Renderer, clock clockwork.Clock, logger *logging.Service) *Publisher {
	return &Publisher{
		channel:  ch,
		queue:    queue,
		renderer: renderer,
		clock:    clock,
		logger:   logger.Named("mailqueue"),
	}
}

func (p *Publisher) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	const op = "mailqueue.SendTemplate"

	html, text, err := p.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	body, err := json.Marshal(Message{
		Template: templateName,
		To:       to,
		Subject:  subject,
		HTML:     html,
		Text:     text,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.clock.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("failed to publish email", zap.Error(err), zap.String("template", templateName))
		return fmt.Errorf("%s: %w", op, err)
	}

	p.logger.Debug("email queued", zap.String("template", templateName), zap.String("queue", p.queue))
	return nil
}

func (p *Publisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
