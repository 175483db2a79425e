package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"dividi/internal/log"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
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
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
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

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishExpenseRecorded publishes an expense-recorded event.
func (c *Client) PublishExpenseRecorded(ctx context.Context, expenseID, groupID string) error {
	msg := NewExpenseRecordedMessage(expenseID, groupID)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published expense recorded message",
		log.FieldExpenseID, expenseID,
		log.FieldGroupID, groupID,
		log.FieldComponent, log.ComponentAMQP,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishShareSettled publishes a share-settled event.
func (c *Client) PublishShareSettled(ctx context.Context, shareID, expenseID string) error {
	msg := NewShareSettledMessage(shareID, expenseID)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published share settled message",
		log.FieldShareID, shareID,
		log.FieldExpenseID, expenseID,
		log.FieldComponent, log.ComponentAMQP,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Consume dispatches queue messages to the matching handler until ctx is
// cancelled. Malformed messages are rejected without requeue; handler
// errors requeue the delivery.
func (c *Client) Consume(ctx context.Context, onExpense func(context.Context, *ExpenseRecordedMessage) error, onSettled func(context.Context, *ShareSettledMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			if err := c.dispatch(ctx, delivery.Body, onExpense, onSettled); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
				log.FieldError, err,
				log.FieldComponent, log.ComponentAMQP)
				delivery.Nack(false, !isPermanent(err)) // requeue unless permanent
				continue
			}
			delivery.Ack(false)
		}
	}
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func isPermanent(err error) bool {
	_, ok := err.(permanentError)
	return ok
}

func (c *Client) dispatch(ctx context.Context, body []byte, onExpense func(context.Context, *ExpenseRecordedMessage) error, onSettled func(context.Context, *ShareSettledMessage) error) error {
	switch messageType(body) {
	case TypeExpenseRecorded:
		msg, err := ExpenseRecordedMessageFromJSON(body)
		if err != nil {
			return permanentError{fmt.Errorf("unmarshal expense message: %w", err)}
		}
		return onExpense(ctx, msg)
	case TypeShareSettled:
		msg, err := ShareSettledMessageFromJSON(body)
		if err != nil {
			return permanentError{fmt.Errorf("unmarshal settled message: %w", err)}
		}
		return onSettled(ctx, msg)
	default:
		return permanentError{fmt.Errorf("unknown message type %q", messageType(body))}
	}
}

// exponentialBackoff returns the wait before reconnect attempt n, capped
// at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << attempt
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// isConnectionError reports whether an error looks like a broken AMQP
// connection worth a reconnect.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "channel/connection is not open")
}

// ConsumeWithReconnect keeps the consume loop alive across broken
// connections, redialling with exponential backoff.
func ConsumeWithReconnect(ctx context.Context, url, exchange, queue string, onExpense func(context.Context, *ExpenseRecordedMessage) error, onSettled func(context.Context, *ShareSettledMessage) error) error {
	attempt := 0
	for {
		client, err := NewClient(url, exchange, queue)
		if err != nil {
			if !isConnectionError(err) {
				return err
			}
			wait := exponentialBackoff(attempt)
			attempt++
			slog.WarnContext(ctx, "AMQP connect failed, retrying",
				"error", err, "wait", wait, "attempt", attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		attempt = 0
		err = client.Consume(ctx, onExpense, onSettled)
		client.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) && err.Error() != "message channel closed" {
			return err
		}
		slog.WarnContext(ctx, "AMQP consume interrupted, reconnecting", "error", err)
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
