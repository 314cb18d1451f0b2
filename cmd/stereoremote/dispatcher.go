package main

import (
	"log/slog"
	"time"
)

// DispatcherConfig holds the dispatcher's timing budget.
type DispatcherConfig struct {
	// InterItemWait follows an unrecognized queue entry. Shorter than Settle.
	InterItemWait time.Duration

	// Settle is waited after the primary instruction and again after the release.
	Settle time.Duration

	// DisplayVisible is how long dispatch pauses after a command that opens
	// the receiver's overlay.
	DisplayVisible time.Duration

	// DisplayCooldown is the spacing between display-triggering commands
	// before a new overlay is considered necessary. It is also the idle time
	// after which the command sequence is considered over.
	DisplayCooldown time.Duration
}

// Dispatcher drains the command queue one entry at a time and drives the
// actuator through each command's timing budget.
//
// Step is called once per scheduling turn, performs bounded work and returns.
// Waits are deadline checks against the monotonic clock, never sleeps.
//
// Cycle per recognized command:
//
//	Draining  -> primary instruction -> Settling
//	Settling  -> (settle elapsed) release instruction -> Settling
//	Settling  -> (settle elapsed) [HoldingForDisplay ->] Draining
//	Draining  -> Idle when the queue is empty
type Dispatcher struct {
	queue  *CommandQueue
	act    Actuator
	cfg    DispatcherConfig
	logger *slog.Logger

	state DispatcherState

	// Pending ordinal range being drained
	next uint64
	end  uint64

	// Command in flight
	current    LogicalCommand
	ins        Instruction
	recognized bool
	step       actuatorStep
	wait       time.Duration
	mark       time.Time
	issuedAt   time.Time

	// Display bookkeeping
	sequenceActive bool
	displaySeen    bool
	lastDisplayAt  time.Time
	lastDispatchAt time.Time

	dispatched   uint64
	unrecognized uint64
	displayHolds uint64

	snap snapshotBox
}

// NewDispatcher creates an idle dispatcher.
func NewDispatcher(queue *CommandQueue, act Actuator, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		queue:  queue,
		act:    act,
		cfg:    cfg,
		logger: logger.With("component", "dispatcher"),
		state:  StateIdle,
	}
	d.publish()
	return d
}

// State returns the current state. Dispatcher goroutine only.
func (d *Dispatcher) State() DispatcherState {
	return d.state
}

// Snapshot returns a copy of the dispatcher state as of the last completed turn.
// Safe to call from any goroutine.
func (d *Dispatcher) Snapshot() DispatcherSnapshot {
	return d.snap.load()
}

// Step runs one dispatcher turn.
func (d *Dispatcher) Step(now time.Time) {
	switch d.state {
	case StateIdle:
		d.stepIdle(now)
	case StateDraining:
		d.stepDraining(now)
	case StateSettlingAfterCommand:
		d.stepSettling(now)
	case StateHoldingForDisplay:
		d.stepHolding(now)
	}
	d.publish()
}

func (d *Dispatcher) stepIdle(now time.Time) {
	start, end := d.queue.AvailableRange()
	if start == end {
		// Nothing pending: end the command sequence once the receiver's
		// overlay is certainly gone.
		if d.sequenceActive && deadlinePassed(now, d.lastDispatchAt, d.cfg.DisplayCooldown) {
			d.sequenceActive = false
			d.logger.Debug("command sequence ended", "idle_for", now.Sub(d.lastDispatchAt))
		}
		return
	}

	d.next, d.end = start, end
	d.transition(StateDraining)
	d.stepDraining(now)
}

func (d *Dispatcher) stepDraining(now time.Time) {
	if d.next >= d.end {
		start, end := d.queue.AvailableRange()
		if start == end {
			d.transition(StateIdle)
			return
		}
		d.next, d.end = start, end
	}

	seq := d.next
	d.next++
	cmd := d.queue.Take(seq)
	d.queue.MarkConsumed(seq + 1)

	if cmd == CmdNone {
		d.logger.Debug("empty slot skipped", "ordinal", seq)
		return
	}

	ins, ok := instructionFor(cmd)
	d.current = cmd
	d.ins = ins
	d.recognized = ok
	d.issuedAt = now

	if !ok {
		d.logger.Warn("unrecognized command, restoring rest", "command", cmd.String(), "ordinal", seq)
		runEffect(d.act, stepRelease, ins, d.logger)
		d.beginSettle(now, stepRelease, d.cfg.InterItemWait)
		return
	}

	d.logger.Info("dispatching command", "command", cmd.String(), "ordinal", seq, "channel", ins.Channel, "resistance_pct", ins.ResistancePct)
	runEffect(d.act, stepPrimary, ins, d.logger)
	d.beginSettle(now, stepPrimary, d.cfg.Settle)
}

func (d *Dispatcher) stepSettling(now time.Time) {
	if !deadlinePassed(now, d.mark, d.wait) {
		return
	}

	if d.step == stepPrimary {
		runEffect(d.act, stepRelease, d.ins, d.logger)
		d.step = stepRelease
		d.mark = now
		d.logger.Debug("released", "command", d.current.String())
		return
	}

	d.finishCommand(now)
}

func (d *Dispatcher) stepHolding(now time.Time) {
	if !deadlinePassed(now, d.mark, d.cfg.DisplayVisible) {
		return
	}
	d.transition(StateDraining)
}

func (d *Dispatcher) beginSettle(now time.Time, step actuatorStep, wait time.Duration) {
	d.step = step
	d.wait = wait
	d.mark = now
	d.transition(StateSettlingAfterCommand)
}

// finishCommand runs once the command's last settle window has elapsed.
func (d *Dispatcher) finishCommand(now time.Time) {
	d.lastDispatchAt = now

	if !d.recognized {
		d.unrecognized++
		d.transition(StateDraining)
		return
	}
	d.dispatched++

	hold := false
	if d.current.TriggersDisplay() {
		// A new overlay is needed unless one was triggered recently within
		// the same command sequence.
		hold = !d.sequenceActive || !d.displaySeen || deadlinePassed(d.issuedAt, d.lastDisplayAt, d.cfg.DisplayCooldown)
		d.lastDisplayAt = d.issuedAt
		d.displaySeen = true
	}
	d.sequenceActive = true

	if hold {
		d.displayHolds++
		d.mark = now
		d.transition(StateHoldingForDisplay)
		return
	}
	d.transition(StateDraining)
}

func (d *Dispatcher) transition(to DispatcherState) {
	if d.state == to {
		return
	}
	d.logger.Debug("state transition", "from", d.state.String(), "to", to.String())
	d.state = to
}

func (d *Dispatcher) publish() {
	last := ""
	if d.current != CmdNone {
		last = d.current.String()
	}
	d.snap.store(DispatcherSnapshot{
		State:          d.state.String(),
		Dispatched:     d.dispatched,
		Unrecognized:   d.unrecognized,
		DisplayHolds:   d.displayHolds,
		Pending:        d.queue.Len(),
		Capacity:       d.queue.Cap(),
		Dropped:        d.queue.Dropped(),
		SequenceActive: d.sequenceActive,
		LastCommand:    last,
		LastDispatchAt: d.lastDispatchAt,
	})
}

// deadlinePassed reports whether more than d has elapsed since mark.
func deadlinePassed(now, mark time.Time, d time.Duration) bool {
	return now.Sub(mark) > d
}
