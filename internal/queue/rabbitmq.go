package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/notify"
)

const (
	rabbitDialTimeout = 5 * time.Second
	rabbitRedialPause = 5 * time.Second
	rabbitHeartbeat   = 10 * time.Second
)

// errDialBackoff is returned while a failed dial is cooling down.
var errDialBackoff = errors.New("rabbitmq: waiting before redial")

// RabbitPublisher publishes events to a durable queue on the default
// exchange.  The connection is opened on first use and reopened after a
// failure.  A failed dial is not retried until rabbitRedialPause has passed,
// so a broker outage costs each publisher at most one bounded dial per pause.
type RabbitPublisher struct {
	url   string
	queue string
	log   *zap.Logger

	dialTimeout time.Duration
	redialPause time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

func NewRabbitPublisher(url, queue string, log *zap.Logger) *RabbitPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &RabbitPublisher{
		url:         url,
		queue:       queue,
		log:         log,
		dialTimeout: rabbitDialTimeout,
		redialPause: rabbitRedialPause,
	}
}

// channel must be called with p.mu held.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.retryAt) {
		return nil, errDialBackoff
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: rabbitHeartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		p.retryAt = time.Now().Add(p.redialPause)
		p.log.Warn("rabbitmq dial failed", zap.Duration("retry_in", p.redialPause), zap.Error(err))
		return nil, fmt.Errorf("dial: %w", err)
	}
	p.retryAt = time.Time{}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Publish sends ev as a persistent JSON message.
func (p *RabbitPublisher) Publish(ctx context.Context, ev notify.Event) error {
	body, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
