package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Cooperative scheduler
// ============================================================================
//
// One control loop, two tasks sharing the command queue:
//   - the event translator (encoder polling)
//   - the dispatcher (queue draining and actuator timing)
//
// Each tick runs both tasks once, round-robin, then yields until the next
// tick. Neither task blocks, so the other is never starved for longer than
// one scheduling slice. The button edge handler is not scheduled here; input
// sources call it from their own goroutines.
//
// ============================================================================

// cooperativeTask is one unit of bounded work per scheduling turn.
type cooperativeTask interface {
	turn(now time.Time)
}

type translatorTask struct{ t *EventTranslator }

func (tt translatorTask) turn(now time.Time) { tt.t.PollEncoder(now) }

type dispatcherTask struct{ d *Dispatcher }

func (dt dispatcherTask) turn(now time.Time) { dt.d.Step(now) }

// scheduler runs a fixed set of cooperative tasks round-robin.
type scheduler struct {
	tasks  []cooperativeTask
	slice  time.Duration
	logger *slog.Logger

	turns   uint64
	overrun uint64
}

func newScheduler(slice time.Duration, logger *slog.Logger, tasks ...cooperativeTask) *scheduler {
	if slice <= 0 {
		slice = time.Duration(defaultSliceMS) * time.Millisecond
	}
	return &scheduler{
		tasks:  tasks,
		slice:  slice,
		logger: logger.With("component", "scheduler"),
	}
}

// tick runs every task once with the same timestamp.
func (s *scheduler) tick(now time.Time) {
	for _, task := range s.tasks {
		task.turn(now)
	}
	s.turns++
}

// run drives the tasks until ctx is canceled.
func (s *scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.slice)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "slice", s.slice, "tasks", len(s.tasks))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping (context canceled)", "turns", s.turns, "overruns", s.overrun)
			return

		case <-ticker.C:
			start := time.Now()
			s.tick(start)
			if elapsed := time.Since(start); elapsed > s.slice {
				s.overrun++
				s.logger.Warn("scheduling turn exceeded slice", "elapsed", elapsed, "slice", s.slice)
			}
		}
	}
}
