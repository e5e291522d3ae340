package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/floorvault/apiserver/config"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("mq: broker closed")

// Message is one delivery, independent of the broker it came from.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a delivery. A returned error asks the broker to
// redeliver it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker driver.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ guards a Backend against use after Close. Requests still in flight
// during shutdown may publish after the broker is gone.
type MQ struct {
	backend Backend

	mu     sync.RWMutex
	closed bool
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// NewFromConfig connects the broker selected by cfg.Driver. The "none"
// driver accepts and drops every message.
func NewFromConfig(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Driver {
	case "", "none":
		backend = discard{}
	case "rabbitmq":
		backend, err = NewRabbitMQBroker(cfg.RabbitMQ)
	case "pubsub":
		backend, err = NewPubSubBroker(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	return New(backend), nil
}

func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrClosed
	}
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe blocks until ctx ends or the backend fails.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return m.backend.Subscribe(ctx, channel, handler)
}

// Close waits for running publishes and closes the backend. Later calls
// are no-ops.
func (m *MQ) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.backend.Close()
}

type discard struct{}

func (discard) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (discard) Subscribe(ctx context.Context, _ string, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (discard) Close() error { return nil }
