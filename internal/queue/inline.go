package queue

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// InlineDispatcher runs the confirmation handler in a goroutine of the
// current process.  It is used when no broker is configured.
type InlineDispatcher struct {
	handler *ConfirmationHandler
	wg      sync.WaitGroup
}

func NewInlineDispatcher(h *ConfirmationHandler) *InlineDispatcher {
	return &InlineDispatcher{handler: h}
}

// Dispatch starts handling ev and returns immediately.
func (d *InlineDispatcher) Dispatch(ctx context.Context, ev model.ConfirmedEvent) error {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.handler.Handle(ctx, ev); err != nil {
			log.FromContext(ctx).WithError(err).Error("Could not handle confirmation")
		}
	}()
	return nil
}

// Wait blocks until every dispatched confirmation has been handled.
func (d *InlineDispatcher) Wait() { d.wg.Wait() }
