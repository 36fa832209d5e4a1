package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/config"
)

// NATSPublisher forwards events to a JetStream stream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher connects to NATS and makes sure the stream for the subject
// prefix exists.
func NewNATSPublisher(cfg config.BrokerConfig, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name(cfg.ClientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); errors.Is(err, nats.ErrStreamNotFound) {
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{cfg.SubjectPrefix + ".>"},
		}); err != nil {
			nc.Close()
			return nil, fmt.Errorf("create stream %s: %w", cfg.Stream, err)
		}
	}

	logger.Info("connected to nats", zap.String("url", cfg.NATSURL), zap.String("stream", cfg.Stream))
	return &NATSPublisher{nc: nc, js: js, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Subject returns the NATS subject for an event type.
func Subject(prefix string, eventType EventType) string {
	return prefix + "." + string(eventType)
}

// PublishEvent publishes event asynchronously.
func (p *NATSPublisher) PublishEvent(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := Subject(p.prefix, event.Type)
	if _, err := p.js.PublishAsync(subject, data, nats.MsgId(event.ID)); err != nil {
		p.logger.Error("publish event failed", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.Debug("event published", zap.String("subject", subject), zap.Int("size", len(data)))
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		p.logger.Warn("timed out waiting for pending nats publishes")
	}
	p.nc.Close()
	return nil
}
