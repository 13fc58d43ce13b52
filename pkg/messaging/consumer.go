package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boxscan/scan-service/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// maxRetries is how often a failing message is requeued before it is dead-lettered
const maxRetries = 1

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	logger    *logger.Logger
}

// NewConsumer creates a new consumer for the given queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return newConsumer(rmq, queueName, log), nil
}

func newConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) *Consumer {
	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}
}

// Subscribe subscribes to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start starts consuming messages from the queue. When the channel closes
// underneath it (broker restart) it resumes on the reconnected channel.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.consume()
	if err != nil {
		return err
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if ok {
					c.handleMessage(ctx, msg)
					continue
				}

				c.logger.Warn().Str("queue", c.queueName).Msg("message channel closed, resuming")
				msgs = c.resume(ctx)
				if msgs == nil {
					return
				}
			}
		}
	}()

	return nil
}

func (c *Consumer) consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) resume(ctx context.Context) <-chan amqp.Delivery {
	delay := c.rmq.config.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		msgs, err := c.consume()
		if err == nil {
			return msgs
		}
		c.logger.Debug().Err(err).Msg("consumer not resumed yet")
	}
}

// ackAction is what to do with a delivery once its handler returned
type ackAction int

const (
	actionAck ackAction = iota
	actionRequeue
	actionReject
)

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	switch c.process(ctx, msg.Body, deliveryCount(msg)) {
	case actionAck:
		msg.Ack(false)
	case actionRequeue:
		msg.Nack(false, true)
	default:
		// dead-lettered through the queue's DLX
		msg.Reject(false)
	}
}

// process runs the registered handler and decides the delivery's fate.
// deliveries counts earlier attempts at this message.
func (c *Consumer) process(ctx context.Context, body []byte, deliveries int) ackAction {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		return actionReject
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		return actionAck
	}

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("failed to process event")

		if deliveries >= maxRetries {
			c.logger.Warn().
				Str("event_id", event.ID).
				Int("retries", deliveries).
				Msg("max retries exceeded, sending to DLQ")
			return actionReject
		}
		return actionRequeue
	}

	return actionAck
}

// deliveryCount estimates how often msg was delivered before. A plain
// requeue only sets Redelivered; dead-letter cycles are counted in x-death.
func deliveryCount(msg amqp.Delivery) int {
	count := 0
	if msg.Redelivered {
		count = 1
	}

	if deaths, ok := msg.Headers["x-death"].([]interface{}); ok {
		for _, death := range deaths {
			if d, ok := death.(amqp.Table); ok {
				if n, ok := d["count"].(int64); ok && int(n) > count {
					count = int(n)
				}
			}
		}
	}

	return count
}
