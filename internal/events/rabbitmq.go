package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	bufferSize   = 128
	drainTimeout = 3 * time.Second
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// RabbitPublisher queues events in memory and publishes them from one worker.
type RabbitPublisher struct {
	exchange string
	log      *zap.Logger
	conn     *amqp091.Connection
	ch       amqpChannel
	in       chan Event
}

// DialRabbit connects to the broker and declares a durable topic exchange.
func DialRabbit(ctx context.Context, url, exchange string, log *zap.Logger) (*RabbitPublisher, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp091.Table{
			"connection_name": "filevault",
		},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	p := newRabbitPublisher(ch, exchange, log)
	p.conn = conn
	log.Info("rabbitmq connected", zap.String("exchange", exchange))
	return p, nil
}

func newRabbitPublisher(ch amqpChannel, exchange string, log *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{
		exchange: exchange,
		log:      log,
		ch:       ch,
		in:       make(chan Event, bufferSize),
	}
}

// Publish enqueues e. When the buffer is full the event is dropped and logged.
func (p *RabbitPublisher) Publish(ctx context.Context, e Event) {
	select {
	case p.in <- e:
	default:
		p.log.Warn("event buffer full, dropping event",
			zap.String("type", e.Type),
			zap.String("event_id", e.ID.String()),
		)
	}
}

// Run publishes queued events until ctx is done. Events still buffered at that
// point are flushed under drainTimeout before the channel and connection close.
func (p *RabbitPublisher) Run(ctx context.Context) error {
	defer func() {
		_ = p.ch.Close()
		if p.conn != nil {
			_ = p.conn.Close()
		}
	}()

	for {
		select {
		case e := <-p.in:
			if err := p.publish(ctx, e); err != nil {
				p.log.Error("publish event", zap.String("type", e.Type), zap.Error(err))
			}
		case <-ctx.Done():
			p.drain()
			return nil
		}
	}
}

func (p *RabbitPublisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case e := <-p.in:
			if err := p.publish(ctx, e); err != nil {
				p.log.Error("publish event on shutdown", zap.String("type", e.Type), zap.Error(err))
			}
		default:
			return
		}
		if ctx.Err() != nil {
			p.log.Warn("event drain timed out", zap.Int("dropped", len(p.in)))
			return
		}
	}
}

func (p *RabbitPublisher) publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.At,
		Type:         e.Type,
		Body:         body,
	})
}
