package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	publishRetries = 3
)

// Client publishes domain events to a durable direct exchange. A dropped
// connection is re-dialed lazily on the next publish.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	dial         func(url string) (*amqp091.Connection, error)

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         amqp091.Dial,
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if _, err := client.connectLocked(); err != nil {
		return nil, err
	}
	return client, nil
}

// connectLocked dials, opens a channel and declares the topology. c.mu must be held.
func (c *Client) connectLocked() (*amqp091.Channel, error) {
	conn, err := c.dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn, c.channel = conn, channel
	return channel, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	// Declare exchange
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = ch.QueueDeclare(
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

	// Bind queue to exchange
	err = ch.QueueBind(
		queueName,    // queue name
		queueName,    // routing key (same as queue name for direct exchange)
		exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishImportCompleted publishes an import summary.
func (c *Client) PublishImportCompleted(ctx context.Context, msg ImportCompletedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeImportCompleted, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published import completed message",
		"import_id", msg.ImportID,
		"families", msg.Families,
		"transactions", msg.Transactions,
		"exchange", c.exchangeName)
	return nil
}

// PublishTransactionCreated publishes a newly stored transaction.
func (c *Client) PublishTransactionCreated(ctx context.Context, msg TransactionCreatedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeTransactionCreated, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published transaction created message",
		"id", msg.ID,
		"family_id", msg.FamilyID,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	op := func() error {
		ch, err := c.currentChannel()
		if err != nil {
			return err
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		err = ch.PublishWithContext(
			pubCtx,
			c.exchangeName, // exchange
			c.queueName,    // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				Type:         msgType,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		if err == nil {
			return nil
		}
		if !isConnectionError(err) {
			return backoff.Permanent(err)
		}
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting", "error", err)
		c.reset()
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newPublishBackOff(), publishRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func newPublishBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// currentChannel returns the open channel, re-dialing if it was closed.
func (c *Client) currentChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	return c.connectLocked()
}

func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func isConnectionError(err error) bool {
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	var aerr *amqp091.Error
	if errors.As(err, &aerr) {
		switch aerr.Code {
		case amqp091.ChannelError, amqp091.ConnectionForced, amqp091.FrameError:
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}
