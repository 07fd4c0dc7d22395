package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
	"github.com/JonMunkholm/EmployeeImport/internal/logging"
)

// Outcome is what the transport should do after an attempt.
type Outcome int

const (
	Succeeded Outcome = iota // Done; acknowledge
	Retry                    // Run again after Decision.Delay
	Failed                   // Attempts exhausted; failure handler already ran
	Abandoned                // Shutdown interrupted the attempt; it does not count
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Retry:
		return "retry"
	case Failed:
		return "failed"
	case Abandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision is the result of one attempt.
type Decision struct {
	Outcome Outcome
	Delay   time.Duration // Set for Retry
	Err     error         // Attempt error, nil for Succeeded
}

// AttemptRecorder receives one observation per attempt.
type AttemptRecorder interface {
	ObserveAttempt(outcome string)
}

type nopAttemptRecorder struct{}

func (nopAttemptRecorder) ObserveAttempt(string) {}

var tracer = otel.Tracer("github.com/JonMunkholm/EmployeeImport/internal/jobs")

// failureHandlerTimeout bounds the terminal failure notification.
const failureHandlerTimeout = 30 * time.Second

// Executor runs job attempts under a Policy.
type Executor struct {
	policy    Policy
	handler   Handler
	onFailure FailureHandler
	recorder  AttemptRecorder
	logger    *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithAttemptRecorder sets the measurement sink.
func WithAttemptRecorder(r AttemptRecorder) ExecutorOption {
	return func(e *Executor) { e.recorder = r }
}

// WithExecutorLogger sets the base logger.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an Executor. onFailure may be nil.
func NewExecutor(policy Policy, handler Handler, onFailure FailureHandler, opts ...ExecutorOption) (*Executor, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job policy: %w", err)
	}
	if handler == nil {
		return nil, errors.New("job handler is required")
	}

	e := &Executor{
		policy:    policy,
		handler:   handler,
		onFailure: onFailure,
		recorder:  nopAttemptRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the executor's retry policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Attempt runs attempt number attempt (1-based) of job.
//
// The handler gets a context that expires after Policy.Timeout. A handler
// that returns an error, overruns its budget or panics fails the attempt.
// A failed attempt with attempts left yields Retry; the last one runs the
// failure handler and yields Failed. When ctx itself is cancelled the
// attempt is Abandoned and nothing else happens.
func (e *Executor) Attempt(ctx context.Context, job ImportJob, attempt int) Decision {
	ctx = logging.ContextWithJob(ctx, job.FilePath, job.OwnerUserID, attempt)
	logger := logging.Enrich(ctx, e.logger)

	if ctx.Err() != nil {
		return e.decide(Decision{Outcome: Abandoned, Err: ctx.Err()})
	}

	ctx, span := tracer.Start(ctx, "jobs.Executor.Attempt", trace.WithAttributes(
		attribute.String("import.file_path", job.FilePath),
		attribute.Int64("import.owner_user_id", job.OwnerUserID),
		attribute.Int("job.attempt", attempt),
	))
	defer span.End()

	logger.Info("import attempt started", "max_attempts", e.policy.MaxAttempts)
	start := time.Now()

	err := e.run(ctx, job)
	if err == nil {
		logger.Info("import attempt succeeded", "duration", time.Since(start))
		return e.decide(Decision{Outcome: Succeeded})
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if ctx.Err() != nil && !errors.Is(err, core.ErrAttemptTimeout) {
		logger.Warn("import attempt abandoned", "error", err)
		return e.decide(Decision{Outcome: Abandoned, Err: err})
	}

	if attempt < e.policy.MaxAttempts {
		delay := e.policy.Delay(attempt)
		logger.Warn("import attempt failed, will retry", "error", err, "retry_in", delay)
		return e.decide(Decision{Outcome: Retry, Delay: delay, Err: err})
	}

	logger.Error("import failed after all attempts", "error", err)
	e.fail(ctx, logger, job, err)
	return e.decide(Decision{Outcome: Failed, Err: err})
}

// run executes the handler with the attempt budget. The handler is expected
// to honour its context; if it does not, the attempt still ends when the
// budget runs out and the handler is left to finish in the background.
func (e *Executor) run(parent context.Context, job ImportJob) error {
	ctx, cancel := context.WithTimeout(parent, e.policy.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("import handler panic: %v\n%s", r, debug.Stack())
			}
		}()
		done <- e.handler(ctx, job)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w after %s: %v", core.ErrAttemptTimeout, e.policy.Timeout, err)
	}
	return err
}

// fail runs the failure handler. It gets its own budget because the
// attempt context may already be spent.
func (e *Executor) fail(ctx context.Context, logger *slog.Logger, job ImportJob, cause error) {
	if e.onFailure == nil {
		return
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureHandlerTimeout)
	defer cancel()

	if err := e.onFailure(fctx, job, cause); err != nil {
		logger.Error("import failure handler failed", "error", err)
	}
}

func (e *Executor) decide(d Decision) Decision {
	e.recorder.ObserveAttempt(d.Outcome.String())
	return d
}

// Run drives job through all of its attempts, sleeping between them with
// sleep. It returns nil when the job succeeded or failed terminally, and
// the context error when shut down.
func (e *Executor) Run(ctx context.Context, job ImportJob, sleep Sleeper) error {
	if sleep == nil {
		sleep = sleepWithContext
	}

	for attempt := 1; ; attempt++ {
		d := e.Attempt(ctx, job, attempt)
		switch d.Outcome {
		case Succeeded, Failed:
			return nil
		case Abandoned:
			return ctx.Err()
		case Retry:
			if err := sleep(ctx, d.Delay); err != nil {
				return err
			}
		}
	}
}
