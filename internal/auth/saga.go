// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/spademh/spade/internal/observability"
)

// Compensation retry defaults.
const (
	defaultCompensationAttempts = 3
	compensationBaseDelay       = 50 * time.Millisecond
	compensationTimeout         = 5 * time.Second
)

// sagaStep is one forward action of a cross-store operation and its undo.
// undo must be idempotent: undoing an already-undone step succeeds.
type sagaStep struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// saga runs steps in order. When a step fails, the undo actions of the
// steps that already completed run in reverse order and the step's error
// is returned unchanged. Undo failures are logged, never returned.
type saga struct {
	name     string
	logger   *slog.Logger
	attempts uint64
	steps    []sagaStep
}

func newSaga(name string, logger *slog.Logger, attempts uint64) *saga {
	if attempts == 0 {
		attempts = defaultCompensationAttempts
	}
	return &saga{name: name, logger: logger, attempts: attempts}
}

func (s *saga) step(name string, do, undo func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, do: do, undo: undo})
	return s
}

func (s *saga) run(ctx context.Context) error {
	for i, st := range s.steps {
		if err := st.do(ctx); err != nil {
			s.compensate(ctx, s.steps[:i])
			return err
		}
	}
	return nil
}

// compensate runs on a context detached from the caller's cancellation so a
// cancelled request still restores the cross-store invariant.
func (s *saga) compensate(ctx context.Context, done []sagaStep) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if st.undo == nil {
			continue
		}

		backoff := retry.WithMaxRetries(s.attempts-1, retry.NewExponential(compensationBaseDelay))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := st.undo(ctx); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			observability.RecordCompensation(s.name, st.name, "failed")
			s.logger.WarnContext(ctx, "best-effort compensation failed",
				"saga", s.name,
				"operation", st.name,
				"attempts", s.attempts,
				"error", err)
			continue
		}
		observability.RecordCompensation(s.name, st.name, "succeeded")
		s.logger.InfoContext(ctx, "compensation applied", "saga", s.name, "operation", st.name)
	}
}

// ignoreNotFound makes a delete-style undo idempotent.
func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
