package livesync

import (
	"context"

	"github.com/aura-webinar/liveclass/internal/models"
)

// Reactions are invoked on status edges. Either may be nil.
type Reactions struct {
	// OnLive runs when a course goes ACTIVE, including when first observed ACTIVE.
	OnLive func(Event)
	// OnEnded runs when an ACTIVE course goes IDLE.
	OnEnded func(Event)
}

// Watch dispatches sub's edges until the subscription ends or ctx is done. Edges are
// handled in delivery order; a missed intermediate state has no effect.
func Watch(ctx context.Context, sub Subscription, r Reactions) error {
	defer sub.Close()
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch {
			case ev.To == models.LiveStatusActive && ev.From != models.LiveStatusActive:
				if r.OnLive != nil {
					r.OnLive(ev)
				}
			case ev.To == models.LiveStatusIdle && ev.From == models.LiveStatusActive:
				if r.OnEnded != nil {
					r.OnEnded(ev)
				}
			}
		}
	}
}
