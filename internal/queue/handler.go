package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/metrics"
	"github.com/iliyamo/eventlink-tickets/internal/model"
	"github.com/iliyamo/eventlink-tickets/internal/notify"
	"github.com/iliyamo/eventlink-tickets/internal/ticket"
)

// TicketStore keeps rendered documents.
type TicketStore interface {
	Save(doc ticket.Document) (string, error)
}

// FailureReporter is told about confirmations that could not be
// delivered.
type FailureReporter interface {
	ReportFailure(ctx context.Context, f model.NotificationFailed) error
}

// LogReporter reports failures to the log only.
type LogReporter struct{}

func (LogReporter) ReportFailure(ctx context.Context, f model.NotificationFailed) error {
	log.FromContext(ctx).WithFields(logrus.Fields{
		"booking_code": f.BookingCode,
		"email":        f.Email,
		"reason":       f.Reason,
	}).Warn("Booking notification failed")
	return nil
}

// ConfirmationHandler renders the ticket of a confirmed booking, keeps a
// copy and mails it to the buyer.  None of its failures touch the
// booking: a failed render still produces a degraded ticket and a failed
// delivery is reported as a NotificationFailed message.
type ConfirmationHandler struct {
	renderer booking.Renderer
	tickets  TicketStore
	sender   notify.Sender
	failures FailureReporter
	now      func() time.Time
	timeout  time.Duration
}

// DefaultHandleTimeout bounds the processing of one confirmation.  Mail
// relays that accept the connection and then stall would otherwise hold
// a worker slot until shutdown.
const DefaultHandleTimeout = 2 * time.Minute

// reportTimeout bounds publishing a failure report.  It starts after the
// handling deadline may already have passed.
const reportTimeout = 10 * time.Second

func NewConfirmationHandler(renderer booking.Renderer, tickets TicketStore, sender notify.Sender, failures FailureReporter) *ConfirmationHandler {
	if renderer == nil || tickets == nil || sender == nil || failures == nil {
		panic("nil dependency passed to queue.NewConfirmationHandler")
	}
	return &ConfirmationHandler{
		renderer: renderer,
		tickets:  tickets,
		sender:   sender,
		failures: failures,
		now:      func() time.Time { return time.Now().UTC() },
		timeout:  DefaultHandleTimeout,
	}
}

// Handle processes one confirmation.  It only returns an error for
// payloads that can never succeed; everything else is logged, counted
// and reported.
func (h *ConfirmationHandler) Handle(ctx context.Context, ev model.ConfirmedEvent) error {
	b := ev.Booking
	if b.Code == "" || b.Status != model.StatusConfirmed {
		return fmt.Errorf("confirmation payload for %q has status %q", b.Code, b.Status)
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"booking_code": b.Code,
		"event_id":     b.EventID,
	})

	doc, err := h.renderer.Render(b, ev.Event)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("render").Inc()
		logger.WithError(err).Error("Could not render ticket")
		h.report(ctx, b, fmt.Errorf("render: %w", err))
		return nil
	}
	if doc.Degraded {
		metrics.RenderDegraded.Inc()
		logger.WithError(booking.ErrRenderDegraded).Warn("Ticket rendered without QR code")
	}

	if path, err := h.tickets.Save(doc); err != nil {
		metrics.NotificationFailures.WithLabelValues("store").Inc()
		logger.WithError(err).Warn("Could not store ticket")
	} else {
		logger.WithField("path", path).Info("Ticket stored")
	}

	msg, err := notify.ConfirmationMessage(ev, doc)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("compose").Inc()
		h.report(ctx, b, err)
		return nil
	}

	err = h.sender.Send(ctx, msg)
	if err != nil && len(msg.Attachments) > 0 {
		logger.WithError(err).Warn("Sending with ticket attached failed, retrying without attachment")
		msg.Attachments = nil
		err = h.sender.Send(ctx, msg)
	}
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("send").Inc()
		logger.WithError(err).Error("Could not send confirmation")
		h.report(ctx, b, err)
		return nil
	}

	logger.Info("Confirmation sent")
	return nil
}

func (h *ConfirmationHandler) report(ctx context.Context, b model.Booking, cause error) {
	f := model.NotificationFailed{
		BookingCode: b.Code,
		Email:       b.Buyer.Email,
		Reason:      errors.Join(booking.ErrNotificationFailure, cause).Error(),
		FailedAt:    h.now(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	if err := h.failures.ReportFailure(ctx, f); err != nil {
		log.FromContext(ctx).WithError(err).WithField("booking_code", b.Code).Error("Could not report notification failure")
	}
}
