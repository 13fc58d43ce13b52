package consumers

import (
	"context"

	"github.com/boxscan/scan-service/pkg/config"
	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/boxscan/scan-service/pkg/messaging"
)

// StoreCache is the part of the store cache that store events touch
type StoreCache interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// StoreEventConsumer drops cached store lists when the store directory changes
type StoreEventConsumer struct {
	consumer *messaging.Consumer
	cache    StoreCache
	logger   *logger.Logger
}

// NewStoreEventConsumer creates a new store event consumer
func NewStoreEventConsumer(rmq *messaging.RabbitMQ, cache StoreCache, log *logger.Logger) (*StoreEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, config.ServiceName+".store-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeStoreEvents, "store.#"); err != nil {
		return nil, err
	}

	c := &StoreEventConsumer{
		consumer: consumer,
		cache:    cache,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventStoreCreated, c.HandleStoreChanged)
	consumer.RegisterHandler(messaging.EventStoreUpdated, c.HandleStoreChanged)
	consumer.RegisterHandler(messaging.EventStoreDeactivated, c.HandleStoreChanged)

	return c, nil
}

// NewStoreEventHandler returns a consumer with no broker attached; only
// HandleStoreChanged is usable.
func NewStoreEventHandler(cache StoreCache, log *logger.Logger) *StoreEventConsumer {
	return &StoreEventConsumer{cache: cache, logger: log}
}

// Start starts consuming messages
func (c *StoreEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// HandleStoreChanged invalidates the tenant's cached store list
func (c *StoreEventConsumer) HandleStoreChanged(ctx context.Context, event *messaging.Event) error {
	var data messaging.StoreChangedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("event_type", event.Type).
		Int64("store_id", data.StoreID).
		Str("tenant_id", data.TenantID).
		Msg("received store event, invalidating store cache")

	return c.cache.InvalidateTenant(ctx, data.TenantID)
}
