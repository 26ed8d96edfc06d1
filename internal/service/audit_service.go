package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/user-management-service/internal/events"
)

// AuditService records auth lifecycle events to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to auth events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleEvent)
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handleEvent)
	a.dispatcher.Subscribe(events.EventTokenRefreshed, a.handleEvent)
	a.dispatcher.Subscribe(events.EventTokenPersistFailed, a.handleFailure)
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event", string(event.Type)),
		zap.String("username", event.Username),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleFailure(ctx context.Context, event events.Event) error {
	a.logger.Warn("audit",
		zap.String("event", string(event.Type)),
		zap.String("username", event.Username),
		zap.Any("payload", event.Payload))
	return nil
}
