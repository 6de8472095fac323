package dispatcher

import (
	"context"
	"log"

	"github.com/allylab/notify/internal/domain"
)

// Run consumes notification events from the channel until the context is
// cancelled, then drains remaining buffered events with a timeout. Each
// event's fan-out is awaited before the next is taken so shutdown has a
// bounded amount of in-flight work.
func (d *Dispatcher) Run(ctx context.Context, ch <-chan domain.NotificationEvent) {
	for {
		select {
		case <-ctx.Done():
			d.drain(ch)
			return
		case event := <-ch:
			d.Trigger(ctx, event.Kind, event.Data).Wait()
		}
	}
}

// drain processes events left in the channel buffer after the shutdown
// signal. Uses a background context since the main context is already
// cancelled.
func (d *Dispatcher) drain(ch <-chan domain.NotificationEvent) {
	drainCtx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			log.Printf("dispatcher: drain timeout, processed %d events", count)
			return
		case event, ok := <-ch:
			if !ok {
				log.Printf("dispatcher: drain complete, processed %d events", count)
				return
			}
			d.Trigger(drainCtx, event.Kind, event.Data).Wait()
			count++
		default:
			if count > 0 {
				log.Printf("dispatcher: drain complete, processed %d events", count)
			}
			return
		}
	}
}
