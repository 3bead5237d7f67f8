package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/areti-alliance/crm-gateway/internal/events"
	"github.com/areti-alliance/crm-gateway/internal/observability"
)

// AuditService writes the gateway's audit trail. Provider outages and real
// auth failures both reach clients as 401; this is where operators can tell
// them apart.
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

// RegisterHandlers subscribes to audit events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleIssued)
	a.dispatcher.Subscribe(events.EventTokenExchanged, a.handleIssued)
	a.dispatcher.Subscribe(events.EventTokenRefreshed, a.handleIssued)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventProviderUnreachable, a.handleProviderUnreachable)
	a.dispatcher.Subscribe(events.EventRosterSynced, a.handleRosterSynced)
}

func (a *AuditService) handleIssued(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("subject", event.Subject),
		zap.String("source", event.Source),
		zap.String("remote_ip", event.RemoteIP),
		zap.Any("payload", event.Payload),
	)
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("login failed",
		zap.String("remote_ip", event.RemoteIP),
		zap.Any("payload", event.Payload),
	)
	if payload, ok := event.Payload.(events.LoginFailedPayload); ok {
		a.metrics.RecordDenial(payload.Reason)
	}
	return nil
}

func (a *AuditService) handleProviderUnreachable(_ context.Context, event events.Event) error {
	a.logger.Error("identity provider unreachable",
		zap.String("remote_ip", event.RemoteIP),
		zap.Any("payload", event.Payload),
	)
	a.metrics.RecordDenial("provider_unavailable")
	return nil
}

func (a *AuditService) handleRosterSynced(_ context.Context, event events.Event) error {
	a.logger.Info("roster synced",
		zap.String("subject", event.Subject),
		zap.Any("payload", event.Payload),
	)
	return nil
}
