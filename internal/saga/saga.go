// Package saga runs multi-step writes with a stack of compensating actions.
//
// Each step that succeeds pushes its undo action. When a later step fails the
// stack is unwound in reverse order. Undo failures are logged and counted but
// never replace the error of the failed step.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"training-planner-backend/internal/metrics"
)

// Action is a forward step or a compensation.
type Action func(ctx context.Context) error

// StepError reports which step of a saga failed.
type StepError struct {
	Saga string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s: step %s: %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type compensation struct {
	step string
	undo Action
}

// Saga is a single run. It is not safe for concurrent use.
type Saga struct {
	id        string
	name      string
	log       *slog.Logger
	stack     []compensation
	completed []string
}

// New starts a saga run with a fresh correlation id.
func New(name string) *Saga {
	id := uuid.NewString()
	return &Saga{
		id:   id,
		name: name,
		log:  slog.Default().With("saga", name, "saga_id", id),
	}
}

// ID returns the correlation id of the run.
func (s *Saga) ID() string { return s.id }

// Logger returns a logger carrying the saga attributes.
func (s *Saga) Logger() *slog.Logger { return s.log }

// Completed lists the steps that succeeded, in order.
func (s *Saga) Completed() []string {
	out := make([]string, len(s.completed))
	copy(out, s.completed)
	return out
}

// Pending returns the number of compensations waiting on the stack.
func (s *Saga) Pending() int { return len(s.stack) }

// Step runs do. On success undo (if any) is pushed onto the stack. On failure
// the returned error is a *StepError and nothing is pushed.
func (s *Saga) Step(ctx context.Context, step string, do Action, undo Action) error {
	if err := do(ctx); err != nil {
		return &StepError{Saga: s.name, Step: step, Err: err}
	}
	s.completed = append(s.completed, step)
	if undo != nil {
		s.stack = append(s.stack, compensation{step: step, undo: undo})
	}
	s.log.Debug("saga step done", "step", step)
	return nil
}

// Compensate unwinds the stack in reverse order and returns the joined undo
// errors. The stack is empty afterwards.
func (s *Saga) Compensate(ctx context.Context) error {
	var errs []error
	for i := len(s.stack) - 1; i >= 0; i-- {
		c := s.stack[i]
		if err := c.undo(ctx); err != nil {
			s.log.Error("compensation failed", "step", c.step, "error", err)
			metrics.Compensations.WithLabelValues(s.name, "failed").Inc()
			errs = append(errs, fmt.Errorf("undo %s: %w", c.step, err))
			continue
		}
		metrics.Compensations.WithLabelValues(s.name, "ok").Inc()
		s.log.Info("compensated step", "step", c.step)
	}
	s.stack = nil
	return errors.Join(errs...)
}

// Fail compensates and returns the original error. Undo errors are only logged.
func (s *Saga) Fail(ctx context.Context, err error) error {
	s.log.Warn("saga failed, compensating", "error", err, "completed", s.completed)
	_ = s.Compensate(ctx)
	metrics.SagaRuns.WithLabelValues(s.name, "compensated").Inc()
	return err
}

// Abandon drops the stack without running it and returns err. Used when an
// enclosing database transaction is rolled back instead.
func (s *Saga) Abandon(err error) error {
	s.log.Warn("saga failed, leaving cleanup to transaction rollback", "error", err, "completed", s.completed)
	s.stack = nil
	metrics.SagaRuns.WithLabelValues(s.name, "rolled_back").Inc()
	return err
}

// Commit drops the stack. Compensations are not run after a commit.
func (s *Saga) Commit() {
	s.stack = nil
	metrics.SagaRuns.WithLabelValues(s.name, "committed").Inc()
	s.log.Info("saga committed", "steps", len(s.completed))
}

// Reject records a saga that stopped before writing anything.
func (s *Saga) Reject(reason string) {
	metrics.SagaRuns.WithLabelValues(s.name, "rejected").Inc()
	s.log.Info("saga rejected", "reason", reason)
}
