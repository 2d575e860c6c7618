package backend

import (
	"context"

	"github.com/osaurus-ai/osaurus/internal/wire"
)

// Fake replays a fixed sequence of events, honoring ctx cancellation.
// Used by pipeline and handler tests in place of a real inference
// runtime, which is out of scope for this core (§1).
type Fake struct {
	Events []wire.BackendEvent
}

func (f Fake) Generate(ctx context.Context, _ wire.Request) (<-chan wire.BackendEvent, error) {
	out := make(chan wire.BackendEvent)
	go func() {
		defer close(out)
		for _, ev := range f.Events {
			select {
			case <-ctx.Done():
				return
			case out <- ev:
			}
		}
	}()
	return out, nil
}
