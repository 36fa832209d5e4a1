package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/config"
	"github.com/spec-kit/sla-service/internal/events"
)

// EventForwarder ships events to an external broker.
type EventForwarder interface {
	PublishEvent(ctx context.Context, event events.Event) error
}

// NotificationService handles emitting notifications for SLA events.
type NotificationService struct {
	dispatcher events.Dispatcher
	forwarder  EventForwarder
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. forwarder may be nil when no
// broker is configured.
func NewNotificationService(dispatcher events.Dispatcher, forwarder EventForwarder, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		forwarder:  forwarder,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPolicyUpserted, n.handlePolicyUpserted)
	n.dispatcher.Subscribe(events.EventDeadlineOverridden, n.handleDeadlineOverridden)
	n.dispatcher.Subscribe(events.EventTicketSLABreached, n.handleTicketSLABreached)
	if n.forwarder != nil {
		for _, eventType := range events.AllTypes {
			n.dispatcher.Subscribe(eventType, n.forwarder.PublishEvent)
		}
	}
}

func (n *NotificationService) handlePolicyUpserted(ctx context.Context, event events.Event) error {
	n.logger.Info("SLAPolicyUpserted", zap.String("sector_id", event.SectorID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleDeadlineOverridden(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketDeadlineOverridden", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketSLABreached(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketSLABreached", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("sector_id", event.SectorID),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
