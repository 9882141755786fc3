package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ErrBadMessage marks a delivery that can never be processed. Handlers wrap
// it to make the consume loop drop the message instead of requeueing it.
var ErrBadMessage = errors.New("malformed message")

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
}

func NewClient(url, exchangeName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// DeclareQueue declares a durable queue and binds it to every routing key in
// keys. Declarations are idempotent, so consumers call this on every start.
func (c *Client) DeclareQueue(queueName string, keys ...string) error {
	_, err := c.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range keys {
		err = c.channel.QueueBind(
			queueName,      // queue name
			key,            // routing key
			c.exchangeName, // exchange
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}

	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	slog.InfoContext(ctx, "Published message",
		"routing_key", routingKey,
		"exchange", c.exchangeName)

	return nil
}

// PublishExpenseRecorded publishes an expense recorded event
func (c *Client) PublishExpenseRecorded(ctx context.Context, msg *ExpenseRecordedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, KeyExpenseRecorded, body)
}

// PublishExpenseRemoved publishes an expense removed event
func (c *Client) PublishExpenseRemoved(ctx context.Context, msg *ExpenseRemovedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, KeyExpenseRemoved, body)
}

// PublishBudgetChanged publishes a budget changed event
func (c *Client) PublishBudgetChanged(ctx context.Context, msg *BudgetChangedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, KeyBudgetChanged, body)
}

// PublishBudgetAlert publishes a budget alert event
func (c *Client) PublishBudgetAlert(ctx context.Context, msg *BudgetAlertMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, KeyBudgetAlert, body)
}

// Consume delivers messages from queueName to handler one at a time with
// manual acks. A handler error requeues the delivery unless it wraps
// ErrBadMessage, which drops it. Blocks until ctx is done or the channel
// closes.
func (c *Client) Consume(ctx context.Context, queueName string, handler func(ctx context.Context, routingKey string, body []byte) error) error {
	msgs, err := c.channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack (we want manual ack)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			if err := handler(ctx, delivery.RoutingKey, delivery.Body); err != nil {
				if errors.Is(err, ErrBadMessage) {
					slog.ErrorContext(ctx, "Dropping message",
						"routing_key", delivery.RoutingKey,
						"error", err)
					delivery.Nack(false, false) // reject and don't requeue
					continue
				}

				slog.ErrorContext(ctx, "Failed to handle message",
					"routing_key", delivery.RoutingKey,
					"error", err)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false) // acknowledge successful processing
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
