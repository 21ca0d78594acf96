package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/lithammer/shortuuid/v3"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// Worker consumes booking.confirmed and hands every message to a
// ConfirmationHandler.
type Worker struct {
	url      string
	handler  *ConfirmationHandler
	prefetch int
}

func NewWorker(url string, h *ConfirmationHandler) *Worker {
	return &Worker{url: url, handler: h, prefetch: 10}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-established with exponential backoff.
func (w *Worker) Run(ctx context.Context) error {
	logger := log.FromContext(ctx).WithField("queue", BookingConfirmedQueue)
	backoff := time.Second
	for {
		conn, err := amqp.Dial(w.url)
		if err != nil {
			logger.WithError(err).Warnf("Failed to dial broker, retrying in %s", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = w.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		logger.WithError(err).Warn("Consume loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (w *Worker) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if err := declare(ch, BookingConfirmedQueue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			w.deliver(ctx, d)
		}
	}
}

// acknowledger is the part of amqp.Delivery the worker needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (w *Worker) deliver(ctx context.Context, d amqp.Delivery) {
	id, _ := d.Headers[correlationHeader].(string)
	if id == "" {
		id = d.CorrelationId
	}
	w.process(ctx, id, d.Body, d)
}

// process handles one message body and settles it.  Malformed messages
// are rejected without requeue to avoid tight redelivery loops.
func (w *Worker) process(ctx context.Context, correlationID string, body []byte, ack acknowledger) {
	if correlationID == "" {
		correlationID = shortuuid.New()
	}
	ctx = log.ToContext(ctx, logrus.WithFields(logrus.Fields{"correlation_id": correlationID}))
	ctx = log.ContextWithCorrelationID(ctx, correlationID)
	logger := log.FromContext(ctx)

	var ev model.ConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.WithError(err).Error("Malformed booking.confirmed message")
		_ = ack.Nack(false, false)
		return
	}
	if err := w.handler.Handle(ctx, ev); err != nil {
		logger.WithError(err).Error("Rejected booking.confirmed message")
		_ = ack.Nack(false, false)
		return
	}
	_ = ack.Ack(false)
}
