package events

import (
	"context"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/config"
	"github.com/boxscan/scan-service/pkg/httputil"
	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/boxscan/scan-service/pkg/messaging"
	"github.com/boxscan/scan-service/pkg/tenant"
)

// Sink is where events end up; *messaging.Publisher in production
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ScanEventPublisher publishes scan outcome events
type ScanEventPublisher struct {
	publisher Sink
	logger    *logger.Logger
}

// NewScanEventPublisher creates a publisher on the scan events exchange
func NewScanEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*ScanEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeScanEvents, config.ServiceName, log)
	if err != nil {
		return nil, err
	}

	return NewScanEventPublisherWithSink(publisher, log), nil
}

// NewScanEventPublisherWithSink creates a publisher over any sink
func NewScanEventPublisherWithSink(sink Sink, log *logger.Logger) *ScanEventPublisher {
	return &ScanEventPublisher{
		publisher: sink,
		logger:    log,
	}
}

// PublishScanResult publishes the event matching the result, if any.
// Publishing failures are logged and never reach the caller.
func (p *ScanEventPublisher) PublishScanResult(ctx context.Context, sessionID string, result domain.ScanResult) {
	if p == nil {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)

	var (
		eventType string
		data      interface{}
	)
	switch result.Kind {
	case domain.ResultAutoCheckInSucceeded:
		eventType = messaging.EventBoxCheckedIn
		data = messaging.BoxCheckedInEvent{
			SessionID: sessionID,
			BoxCode:   result.BoxCode,
			StoreID:   deref(result.StoreID),
			TenantID:  tenantID,
		}
	case domain.ResultAutoCheckInFallback:
		eventType = messaging.EventBoxCheckInFailed
		data = messaging.BoxCheckInFailedEvent{
			SessionID: sessionID,
			BoxCode:   result.BoxCode,
			StoreID:   deref(result.StoreID),
			Reason:    result.Reason,
			TenantID:  tenantID,
		}
	case domain.ResultStockOutCompleted:
		ev := messaging.StockOutCompletedEvent{
			SessionID:      sessionID,
			BoxCode:        result.BoxCode,
			StoreID:        deref(result.StoreID),
			ManualFallback: result.ManualFallback,
			TenantID:       tenantID,
		}
		if result.Outcome != nil {
			ev.SuccessCount = result.Outcome.SuccessCount
			ev.FailureCount = result.Outcome.FailureCount
			ev.MovedQuantity = result.Outcome.MovedQuantity()
		}
		eventType, data = messaging.EventStockOutCompleted, ev
	case domain.ResultTransferOffered:
		eventType = messaging.EventTransferOffered
		data = messaging.TransferOfferedEvent{
			SessionID:   sessionID,
			BoxCode:     result.BoxCode,
			FromStoreID: deref(result.FromStoreID),
			ToStoreID:   deref(result.StoreID),
			Mismatch:    result.Advisory != "",
			TenantID:    tenantID,
		}
	default:
		return
	}

	// events raised by an HTTP request carry its request ID
	if messaging.CorrelationID(ctx) == "" {
		ctx = messaging.WithCorrelationID(ctx, httputil.GetRequestID(ctx))
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Str("box_code", result.BoxCode).Msg("failed to publish scan event")
	}
}

func deref(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
