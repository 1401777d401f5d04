package app

import (
	"context"
	"time"
)

// RunCountdown ticks the session's countdown every step until the first card
// is active, reporting each remaining count (3, 2, 1, then 0 for "Go!").
// A non-positive step ticks without waiting.
func RunCountdown(ctx context.Context, s *Session, step time.Duration, onTick func(remaining int)) error {
	if onTick == nil {
		onTick = func(int) {}
	}
	onTick(s.Snapshot().Countdown)

	var tick <-chan time.Time
	if step > 0 {
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		remaining, err := s.TickCountdown()
		if err != nil {
			return err
		}
		onTick(remaining)
		if remaining == 0 {
			return nil
		}
	}
}
