package trace

import (
	"context"
	"time"
)

// Replay feeds ticks to fn in order. With realtime set it waits between
// ticks for the recorded spacing, otherwise ticks are delivered immediately.
// It stops at the first error from fn or when ctx is done.
func Replay(ctx context.Context, ticks []Tick, realtime bool, fn func(Tick) error) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for i, tick := range ticks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if realtime && i > 0 {
			if wait := tick.Offset() - ticks[i-1].Offset(); wait > 0 {
				if timer == nil {
					timer = time.NewTimer(wait)
				} else {
					timer.Reset(wait)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err := fn(tick); err != nil {
			return err
		}
	}
	return nil
}
