package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-request-service/internal/config"
	"github.com/spec-kit/support-request-service/internal/events"
)

// NotificationService consumes lifecycle and message events and hands
// them to the external delivery collaborator. Delivery itself is stubbed;
// the event contract and the in-flight bound are the real surface.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	inFlight   chan struct{}
}

// NewNotificationService creates the service. MaxInFlight bounds how many
// notices are being rendered/delivered at once.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		inFlight:   make(chan struct{}, maxInFlight),
	}
}

// RegisterHandlers subscribes to the event types the dispatcher emits.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.handle("RequestAssigned"))
	n.dispatcher.Subscribe(events.EventRequestCompleted, n.handle("RequestCompleted"))
	n.dispatcher.Subscribe(events.EventRequestReopened, n.handle("RequestReopened"))
	n.dispatcher.Subscribe(events.EventRequestClosed, n.handle("RequestClosed"))
	n.dispatcher.Subscribe(events.EventRequestPriorityChanged, n.handle("RequestPriorityChanged"))
	n.dispatcher.Subscribe(events.EventMessagePosted, n.handle("MessagePosted"))
}

func (n *NotificationService) handle(name string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		select {
		case n.inFlight <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		defer func() { <-n.inFlight }()

		n.logger.Info(name,
			zap.String("request_id", event.RequestID),
			zap.String("channel", n.cfg.Channel),
			zap.Duration("display_duration", time.Duration(n.cfg.DurationSeconds)*time.Second),
			zap.Any("payload", event.Payload))
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
		return nil
	}
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}
