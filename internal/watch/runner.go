package watch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/trace"
)

// Source is a named stream of readings for one game.
type Source struct {
	Name  string
	Ticks []trace.Tick
	// Realtime paces delivery with the recorded tick spacing.
	Realtime bool
}

// Run watches a single source until its readings run out or ctx is done.
// The returned results cover every run finished while watching.
func Run(ctx context.Context, src Source, cfg Config) ([]RunResult, error) {
	if len(src.Ticks) == 0 {
		return nil, fmt.Errorf("source %s has no readings", src.Name)
	}
	p, err := game.Lookup(string(src.Ticks[0].Game))
	if err != nil {
		return nil, err
	}
	w := New(p, src.Name, cfg)
	w.Attach()
	replayErr := trace.Replay(ctx, src.Ticks, src.Realtime, func(t trace.Tick) error {
		return w.Step(ctx, t)
	})
	if errors.Is(replayErr, context.Canceled) {
		replayErr = nil
	}
	// Persist an interrupted session even after cancellation.
	closeErr := w.Close(context.WithoutCancel(ctx))
	return w.Results(), errors.Join(replayErr, closeErr)
}

// RunAll watches several sources concurrently. Each source gets its own
// watcher; the tracker, store and observer in cfg are shared. Sources fail
// independently and their errors are joined.
func RunAll(ctx context.Context, sources []Source, cfg Config) ([]RunResult, error) {
	results := make([][]RunResult, len(sources))
	errs := make([]error, len(sources))
	// A plain Group, not WithContext: one failure must not stop the rest,
	// so goroutines report through errs and always return nil.
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			res, err := Run(ctx, src, cfg)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("source %s: %w", src.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	var out []RunResult
	for _, r := range results {
		out = append(out, r...)
	}
	return out, errors.Join(errs...)
}
