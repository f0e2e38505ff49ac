package generate

import (
	"context"
	"time"
)

// animate drives the cosmetic progress value: +1 per tick, capped at 100.
// The value carries no relationship to real remote progress; it only keeps
// the waiting UI moving. The ticker is released when the run context ends,
// which the session guarantees happens exactly once per run.
func (e *Engine) animate(ctx context.Context, s *Session, r *run) {
	ticker := time.NewTicker(e.opts.ProgressTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.bump(r)
		}
	}
}
