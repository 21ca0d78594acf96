package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// Publisher publishes messages to RabbitMQ.  It dials per publish, which
// keeps it free of connection state; confirmations are rare compared to
// lookups.  It implements booking.Dispatcher.
type Publisher struct {
	url         string
	dialTimeout time.Duration
}

// defaultDialTimeout bounds connection setup when ctx has no deadline.
const defaultDialTimeout = 5 * time.Second

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, dialTimeout: defaultDialTimeout}
}

// Dispatch publishes a booking.confirmed message.
func (p *Publisher) Dispatch(ctx context.Context, ev model.ConfirmedEvent) error {
	return p.publish(ctx, BookingConfirmedQueue, ev)
}

// ReportFailure publishes a booking.notification_failed message.
func (p *Publisher) ReportFailure(ctx context.Context, f model.NotificationFailed) error {
	return p.publish(ctx, NotificationFailedQueue, f)
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", queue, err)
	}

	timeout := dialTimeout(ctx, p.dialTimeout)
	if timeout <= 0 {
		return fmt.Errorf("rabbitmq dial: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, queue); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if id := log.CorrelationIDFromContext(ctx); id != "" {
		pub.CorrelationId = id
		pub.Headers = amqp.Table{correlationHeader: id}
	}

	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", queue, err)
	}
	log.FromContext(ctx).WithField("queue", queue).Debug("Message published")
	return nil
}

// dialTimeout is the smaller of limit and the time left before ctx's
// deadline.
func dialTimeout(ctx context.Context, limit time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < limit {
			return left
		}
	}
	return limit
}

// declare ensures the queue exists.  Durable so messages survive broker
// restarts.
func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}
	return nil
}
