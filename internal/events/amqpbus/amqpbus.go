// Package amqpbus provides a RabbitMQ-backed implementation of events.Bus
// for multi-instance deployments where intake and analysis run in separate
// processes.
package amqpbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/redress/internal/events"
)

const (
	exchangeName = "redress.complaints"
	queueName    = "complaint.analysis"
	routingKey   = "complaint.raw.written"

	reconnectDelay  = 5 * time.Second
	publishAttempts = 3
	publishDelay    = 500 * time.Millisecond
)

// Bus publishes and consumes complaint write events over AMQP 0-9-1.
type Bus struct {
	url    string
	logger log.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	done    chan struct{}
	once    sync.Once
}

// New connects to the broker and declares the exchange and queue.
func New(url string, logger log.Logger) (*Bus, error) {
	if logger == nil {
		logger = log.Nop()
	}
	b := &Bus{
		url:    url,
		logger: logger,
		done:   make(chan struct{}),
	}
	if err := b.connect(); err != nil {
		return nil, err
	}
	go b.watchReconnect()
	return b, nil
}

func (b *Bus) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, exchangeName, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("bind queue: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.channel = ch
	b.mu.Unlock()
	return nil
}

// watchReconnect re-establishes the connection when the broker drops it.
func (b *Bus) watchReconnect() {
	for {
		b.mu.RLock()
		conn := b.conn
		b.mu.RUnlock()

		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-b.done:
			return
		case err := <-closed:
			if err == nil {
				return
			}
			b.logger.Warn(context.Background(), "amqp connection lost, reconnecting", "error", err.Error())
		}

		for {
			select {
			case <-b.done:
				return
			case <-time.After(reconnectDelay):
			}
			if err := b.connect(); err != nil {
				b.logger.Warn(context.Background(), "amqp reconnect failed", "error", err.Error())
				continue
			}
			b.logger.Info(context.Background(), "amqp reconnected")
			break
		}
	}
}

// Publish sends the event with a bounded retry to ride out reconnects.
func (b *Bus) Publish(ctx context.Context, ev events.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return retry.Do(
		func() error {
			b.mu.RLock()
			ch := b.channel
			b.mu.RUnlock()
			if ch == nil {
				return fmt.Errorf("amqp channel not ready")
			}
			return ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    uuid.NewString(),
				Timestamp:    time.Now(),
				Body:         body,
			})
		},
		retry.Attempts(publishAttempts),
		retry.Delay(publishDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			b.logger.Warn(ctx, "amqp publish retry", "attempt", n+1, "error", err.Error())
		}),
	)
}

// Subscribe consumes the analysis queue and decodes deliveries into events.
// Messages are acked once handed to the returned channel (at-least-once).
func (b *Bus) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	b.mu.RLock()
	ch := b.channel
	b.mu.RUnlock()

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("amqp consume: %w", err)
	}

	out := make(chan events.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var ev events.Event
				if err := json.Unmarshal(d.Body, &ev); err != nil {
					b.logger.Warn(ctx, "amqp dropping undecodable event", "error", err.Error())
					_ = d.Nack(false, false)
					continue
				}
				select {
				case out <- ev:
					_ = d.Ack(false)
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

// Close shuts down the connection.
func (b *Bus) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.channel != nil {
			_ = b.channel.Close()
		}
		if b.conn != nil {
			err = b.conn.Close()
		}
	})
	return err
}
