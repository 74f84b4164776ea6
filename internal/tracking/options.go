package tracking

import (
	"errors"
	"log/slog"
	"time"

	"github.com/stmobo/thstat-sub001/internal/logging"
	"github.com/stmobo/thstat-sub001/internal/model"
)

// ErrAlreadyFinished is returned when a recorder is finished twice.
var ErrAlreadyFinished = errors.New("recorder already finished")

// AttemptSink receives the attempts of a finished session.
type AttemptSink interface {
	RecordAll(attempts []model.KeyedAttempt)
}

// RunSink receives a finished run.
type RunSink interface {
	RecordRun(run model.Run)
}

type options struct {
	dwell       time.Duration
	logger      *slog.Logger
	attemptSink AttemptSink
	runSink     RunSink
}

// Option configures a recorder.
type Option func(*options)

// WithDwell overrides MinDwell.
func WithDwell(d time.Duration) Option {
	return func(o *options) { o.dwell = d }
}

// WithLogger sets the recorder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAttemptSink forwards finished attempts to s.
func WithAttemptSink(s AttemptSink) Option {
	return func(o *options) { o.attemptSink = s }
}

// WithRunSink forwards the finished run to s.
func WithRunSink(s RunSink) Option {
	return func(o *options) { o.runSink = s }
}

func buildOptions(opts []Option) options {
	o := options{dwell: MinDwell}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrDiscard(o.logger)
	return o
}
