package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"signin_service/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrChannelClosed = errors.New("delivery channel closed")
	ErrNotConfirmed  = errors.New("message was not confirmed by broker")
)

// prefetch ограничивает число неподтвержденных писем у одного потребителя.
const prefetch = 10

// Client публикует письма в очередь и читает их оттуда.
// Канал работает в режиме publisher confirms.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func New(url string, queueName string) (*Client, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: open channel: %w", op, err)
	}

	c := &Client{conn: conn, channel: ch}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: declare queue %q: %w", op, queueName, err)
	}
	c.queue = q.Name

	if err := ch.Confirm(false); err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: enable confirms: %w", op, err)
	}

	return c, nil
}

// * SendMessage публикует письмо и ждет подтверждения брокера
func (c *Client) SendMessage(ctx context.Context, msg models.Message) error {
	const op = "rabbitmq.SendMessage"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	confirm, err := c.channel.PublishWithDeferredConfirmWithContext(ctx, "", c.queue, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Type:         msg.Purpose,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !acked {
		return fmt.Errorf("%s: %w", op, ErrNotConfirmed)
	}

	return nil
}

// * StartReading читает очередь до отмены контекста.
// Сообщение подтверждается, если handler вернул nil, иначе отклоняется без повторной постановки.
func (c *Client) StartReading(ctx context.Context, handler func(body []byte) error) error {
	const op = "rabbitmq.StartReading"

	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("%s: qos: %w", op, err)
	}

	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: %w", op, ErrChannelClosed)
			}

			if err := handler(d.Body); err != nil {
				_ = d.Nack(false, false)
				continue
			}

			_ = d.Ack(false)
		}
	}
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	_ = c.conn.Close()
}
