package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/classhub/subject-service/internal/events"
	"github.com/classhub/subject-service/internal/observability"
)

// AuditService renders the security audit trail. It subscribes to auth
// events and turns them into structured log records and metrics. The event
// payload structs have no password or secret fields, so nothing sensitive
// can reach a sink through this path.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to every audit-relevant event type.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventLoginThrottled, a.handleLoginThrottled)
	a.dispatcher.Subscribe(events.EventLogout, a.handleInfo("Logout"))
	a.dispatcher.Subscribe(events.EventTokenRejected, a.handleTokenRejected)
	a.dispatcher.Subscribe(events.EventAccessDenied, a.handleWarn("AccessDenied"))
	a.dispatcher.Subscribe(events.EventAccountCreated, a.handleInfo("AccountCreated"))
	a.dispatcher.Subscribe(events.EventAccountRoleChanged, a.handleInfo("AccountRoleChanged"))
	a.dispatcher.Subscribe(events.EventAccountStatusChanged, a.handleInfo("AccountStatusChanged"))
	a.dispatcher.Subscribe(events.EventAccountDeleted, a.handleInfo("AccountDeleted"))
	a.dispatcher.Subscribe(events.EventPasswordChanged, a.handleInfo("PasswordChanged"))
}

func (a *AuditService) handleLoginSucceeded(ctx context.Context, event events.Event) error {
	a.metrics.RecordLogin("succeeded")
	a.logger.Info("LoginSucceeded", auditFields(event)...)
	return nil
}

func (a *AuditService) handleLoginFailed(ctx context.Context, event events.Event) error {
	a.metrics.RecordLogin("failed")
	a.logger.Warn("LoginFailed", auditFields(event)...)
	return nil
}

func (a *AuditService) handleLoginThrottled(ctx context.Context, event events.Event) error {
	a.metrics.RecordLogin("throttled")
	a.logger.Warn("LoginThrottled", auditFields(event)...)
	return nil
}

func (a *AuditService) handleTokenRejected(ctx context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.TokenRejectedPayload); ok {
		a.metrics.RecordTokenRejected(payload.Reason)
	}
	a.logger.Warn("TokenRejected", auditFields(event)...)
	return nil
}

func (a *AuditService) handleInfo(name string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		a.logger.Info(name, auditFields(event)...)
		return nil
	}
}

func (a *AuditService) handleWarn(name string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		a.logger.Warn(name, auditFields(event)...)
		return nil
	}
}

func auditFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Time("event_time", event.Timestamp),
		zap.Any("payload", event.Payload),
	}
	if event.Username != "" {
		fields = append(fields, zap.String("username", event.Username))
	}
	if event.Actor.AccountID != "" {
		fields = append(fields,
			zap.String("actor_id", event.Actor.AccountID),
			zap.String("actor_username", event.Actor.Username),
			zap.String("actor_role", string(event.Actor.Role)),
		)
	}
	return fields
}
