package core

import (
	"context"
	"time"

	"multicompare/pkg/domain"
)

// Logger is the structured logging contract used by the runner. Arguments are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for run records.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder observes operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts spans around runner operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan ends a span started by a Tracer.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// AssignmentWriter renders one classified sequence. Implementations live in
// the report package.
type AssignmentWriter interface {
	WriteAssignment(c domain.Classification, threshold float64) error
}

// Option configures a Runner.
type Option func(*runnerOptions)

type runnerOptions struct {
	clock      Clock
	logger     Logger
	metrics    MetricsRecorder
	tracer     Tracer
	writer     AssignmentWriter
	confidence float64
	root       domain.Taxon
	workers    int
	batchSize  int
}

const defaultBatchSize = 256

func defaultRunnerOptions() runnerOptions {
	return runnerOptions{
		clock:      ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:     noopLogger{},
		metrics:    noopMetricsRecorder{},
		tracer:     noopTracer{},
		confidence: domain.DefaultConfidence,
		root:       domain.DefaultRoot,
		workers:    1,
		batchSize:  defaultBatchSize,
	}
}

// WithClock overrides the clock used for run timestamps.
func WithClock(clock Clock) Option {
	return func(o *runnerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(o *runnerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *runnerOptions) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *runnerOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithAssignmentWriter sets the per-sequence output writer. Nil disables output.
func WithAssignmentWriter(w AssignmentWriter) Option {
	return func(o *runnerOptions) { o.writer = w }
}

// WithConfidence sets the confidence threshold. Values outside [0,1] are ignored.
func WithConfidence(conf float64) Option {
	return func(o *runnerOptions) {
		if conf >= 0 && conf <= 1 {
			o.confidence = conf
		}
	}
}

// WithRoot sets the taxon used as tree root.
func WithRoot(root domain.Taxon) Option {
	return func(o *runnerOptions) {
		if root.ID != "" {
			o.root = root
		}
	}
}

// WithWorkers sets how many sequences are classified concurrently.
// Folding into the tree stays sequential and in input order.
func WithWorkers(n int) Option {
	return func(o *runnerOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithBatchSize sets how many sequences are read ahead per worker batch.
func WithBatchSize(n int) Option {
	return func(o *runnerOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}
