package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/floorvault/apiserver/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQBroker maps each channel onto a fanout exchange, so every
// subscriber gets its own copy of every catalog event.
type RabbitMQBroker struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	prefetch int
	durable  bool
	autoDel  bool

	mu        sync.Mutex
	exchanges map[string]struct{}
}

// NewRabbitMQBroker dials cfg.URL and opens the channel shared by
// publishers and consumers.
func NewRabbitMQBroker(cfg config.RabbitMQConfig) (*RabbitMQBroker, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	return &RabbitMQBroker{
		conn:      conn,
		channel:   ch,
		prefetch:  cfg.PrefetchCount,
		durable:   cfg.QueueDurable,
		autoDel:   cfg.QueueAutoDelete,
		exchanges: map[string]struct{}{},
	}, nil
}

// Publish sends data to the channel's exchange. The event type becomes the
// routing key and the AMQP message type.
func (r *RabbitMQBroker) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         attrs[AttrType],
		Headers:      headers,
		Body:         data,
	}

	// amqp channels are not safe for concurrent publishes.
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.declareExchangeLocked(channel); err != nil {
		return "", err
	}
	if err := r.channel.PublishWithContext(ctx, channel, attrs[AttrType], false, false, msg); err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return msg.MessageId, nil
}

// Subscribe binds a queue to the channel's exchange and hands deliveries to
// handler until ctx ends. A message whose handler fails is requeued once and
// dropped on the second failure.
func (r *RabbitMQBroker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	deliveries, consumerTag, err := r.consume(channel)
	if err != nil {
		return err
	}
	defer func() {
		r.mu.Lock()
		_ = r.channel.Cancel(consumerTag, false)
		r.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			attrs := headersToAttributes(delivery.Headers)
			if delivery.Type != "" {
				if attrs == nil {
					attrs = map[string]string{}
				}
				attrs[AttrType] = delivery.Type
			}
			if err := handler(ctx, Message{ID: delivery.MessageId, Data: delivery.Body, Attributes: attrs}); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// consume declares the subscriber queue. Durable mode uses one shared named
// queue per channel; otherwise each subscriber gets an exclusive queue that
// disappears with it.
func (r *RabbitMQBroker) consume(channel string) (<-chan amqp.Delivery, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declareExchangeLocked(channel); err != nil {
		return nil, "", err
	}
	if r.prefetch > 0 {
		if err := r.channel.Qos(r.prefetch, 0, false); err != nil {
			return nil, "", fmt.Errorf("set prefetch: %w", err)
		}
	}

	var (
		queue amqp.Queue
		err   error
	)
	if r.durable {
		queue, err = r.channel.QueueDeclare(channel+".subscribers", true, r.autoDel, false, false, nil)
	} else {
		queue, err = r.channel.QueueDeclare("", false, true, true, false, nil)
	}
	if err != nil {
		return nil, "", fmt.Errorf("declare queue: %w", err)
	}
	if err := r.channel.QueueBind(queue.Name, "", channel, false, nil); err != nil {
		return nil, "", fmt.Errorf("bind queue %s: %w", queue.Name, err)
	}

	consumerTag := "floorvault-" + uuid.NewString()
	deliveries, err := r.channel.Consume(queue.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, "", fmt.Errorf("consume %s: %w", queue.Name, err)
	}
	return deliveries, consumerTag, nil
}

func (r *RabbitMQBroker) declareExchangeLocked(name string) error {
	if _, ok := r.exchanges[name]; ok {
		return nil
	}
	if err := r.channel.ExchangeDeclare(name, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	r.exchanges[name] = struct{}{}
	return nil
}

// Close closes the channel, then the connection.
func (r *RabbitMQBroker) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
