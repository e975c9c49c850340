package chain

import (
	"context"
	"errors"
	"log/slog"
)

// Worker drains the scheduler and dispatches stage messages one at a
// time, preserving emission order. A failed stage is logged and dropped —
// its chain halts with whatever its earlier stages already settled, and
// recovery is a fresh mint request.
type Worker struct {
	eng *Engine
}

// NewWorker creates a worker bound to an engine.
func NewWorker(eng *Engine) *Worker {
	return &Worker{eng: eng}
}

// Run blocks until ctx is done. Must be called in a goroutine.
func (w *Worker) Run(ctx context.Context) {
	for {
		msg, err := w.eng.sched.Dequeue(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if err != nil {
			slog.Error("scheduler dequeue failed", "err", err)
			continue
		}

		if err := w.eng.Dispatch(ctx, msg); err != nil {
			slog.Error("stage dispatch failed", "stage", msg.Stage, "err", err)
		}
	}
}
