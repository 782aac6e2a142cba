package rabbitmq

import (
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery and reports whether it may be acked.
// Returning false re-queues the message.
type Handler func(body []byte) bool

type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

func NewConsumer(amqpURL string, logger *slog.Logger) (*Consumer, error) {
	conn, err := dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch, logger: logger.With("component", "rabbitmq_consumer")}, nil
}

// ConsumeWithBindings binds queueName to exchange once per routing key and
// dispatches deliveries to the matching handler in a background goroutine.
func (c *Consumer) ConsumeWithBindings(exchange, queueName string, bindings map[string]Handler) error {
	if len(bindings) == 0 {
		return errors.New("no bindings provided")
	}

	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := c.ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	handlers := make(map[string]Handler)
	for routingKey, handler := range bindings {
		if handler == nil {
			continue
		}
		handlers[routingKey] = handler
		if err := c.ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return err
		}
	}

	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			dispatch(c.logger, handlers, d)
		}
	}()

	return nil
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func dispatch(logger *slog.Logger, handlers map[string]Handler, d amqp.Delivery) {
	settle(logger, handlers, d.RoutingKey, d.Body, d)
}

func settle(logger *slog.Logger, handlers map[string]Handler, routingKey string, body []byte, ack acknowledger) {
	handler, ok := handlers[routingKey]
	if !ok {
		logger.Warn("no handler for routing key; acknowledging to drop", "routing_key", routingKey)
		ack.Ack(false)
		return
	}
	if handler(body) {
		ack.Ack(false)
		return
	}
	logger.Warn("handler failed; re-queuing", "routing_key", routingKey)
	ack.Nack(false, true)
}

func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
