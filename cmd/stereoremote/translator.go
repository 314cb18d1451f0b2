package main

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// EncoderSource reports the current raw encoder position.
// The position is a signed counter; its absolute value is meaningless, only deltas matter.
type EncoderSource interface {
	Position() int64
}

// ButtonSink receives asynchronous input edges. Input sources call it from
// their own goroutines.
type ButtonSink interface {
	ButtonPressed(now time.Time)
	Inject(cmd LogicalCommand) error
}

// TranslatorConfig holds the filtering parameters of the event translator.
type TranslatorConfig struct {
	// EncoderThreshold: a delta must be strictly greater than this (or less
	// than its negation) to produce a volume command.
	EncoderThreshold int64

	// ButtonDebounce: presses closer than this to the previous accepted press are discarded.
	ButtonDebounce time.Duration

	// TripleClickWindow: if > 0, the third accepted press within this window
	// produces TripleClick instead of Mute.
	TripleClickWindow time.Duration
}

// EventTranslator converts raw encoder positions and button edges into
// logical commands written to the queue.
//
// Ownership:
//   - PollEncoder runs on the scheduler goroutine and owns the encoder state.
//   - ButtonPressed runs in the edge context (an input goroutine) and only
//     touches the queue, the press timestamp and the click window. It never
//     logs and never blocks beyond the queue's producer critical section.
//   - Counters are atomics so the scheduler goroutine can report them.
type EventTranslator struct {
	queue   *CommandQueue
	encoder EncoderSource
	cfg     TranslatorConfig
	logger  *slog.Logger

	// Monotonic base for press timestamps stored in atomics
	epoch time.Time

	// Encoder state (scheduler goroutine only)
	lastPosition int64

	// Button state (edge context)
	pressSeen   atomic.Bool
	lastPressAt atomic.Int64 // nanoseconds since epoch
	clicks      clickWindow

	accepted  atomic.Uint64
	discarded atomic.Uint64
	last      atomic.Int32 // last enqueued LogicalCommand

	// Reporting state (scheduler goroutine only)
	reportedAccepted  uint64
	reportedDiscarded uint64
}

// NewEventTranslator creates a translator. The encoder's current position is
// taken as the initial accepted position. encoder may be nil for button-only setups.
func NewEventTranslator(queue *CommandQueue, encoder EncoderSource, cfg TranslatorConfig, logger *slog.Logger, now time.Time) *EventTranslator {
	t := &EventTranslator{
		queue:   queue,
		encoder: encoder,
		cfg:     cfg,
		logger:  logger.With("component", "translator"),
		epoch:   now,
	}
	if encoder != nil {
		t.lastPosition = encoder.Position()
	}
	return t
}

// PollEncoder runs one translator turn: compares the encoder position with
// the last accepted position and enqueues at most one volume command.
// Returns the command enqueued, or CmdNone.
func (t *EventTranslator) PollEncoder(now time.Time) LogicalCommand {
	t.reportButton()

	if t.encoder == nil {
		return CmdNone
	}

	pos := t.encoder.Position()
	delta := pos - t.lastPosition

	var cmd LogicalCommand
	switch {
	case delta > t.cfg.EncoderThreshold:
		cmd = CmdVolumeUp
	case delta < -t.cfg.EncoderThreshold:
		cmd = CmdVolumeDown
	default:
		return CmdNone
	}

	t.lastPosition = pos
	t.enqueue(cmd)
	t.logger.Debug("encoder event", "command", cmd.String(), "delta", delta, "position", pos)
	return cmd
}

// ButtonPressed handles one rising edge from the button.
// Safe to call from the input goroutine; must not be called concurrently with itself.
func (t *EventTranslator) ButtonPressed(now time.Time) {
	at := now.Sub(t.epoch)

	if t.pressSeen.Load() && at-time.Duration(t.lastPressAt.Load()) < t.cfg.ButtonDebounce {
		t.discarded.Add(1)
		return
	}

	cmd := CmdMute
	if t.cfg.TripleClickWindow > 0 && t.clicks.addClick(at, t.cfg.TripleClickWindow) == len(t.clicks.recent) {
		cmd = CmdTripleClick
	}

	t.lastPressAt.Store(int64(at))
	t.pressSeen.Store(true)
	t.enqueue(cmd)
	t.accepted.Add(1)
}

// Inject enqueues a command that did not come from the encoder or the button
// (IPC requests, media keys).
func (t *EventTranslator) Inject(cmd LogicalCommand) error {
	if !cmd.Valid() {
		return fmt.Errorf("inject %s: %w", cmd, errInvalidCommand)
	}
	t.enqueue(cmd)
	return nil
}

// LastCommand returns the most recently enqueued command.
func (t *EventTranslator) LastCommand() LogicalCommand {
	return LogicalCommand(t.last.Load())
}

// Presses returns the accepted and discarded press counts.
func (t *EventTranslator) Presses() (accepted, discarded uint64) {
	return t.accepted.Load(), t.discarded.Load()
}

func (t *EventTranslator) enqueue(cmd LogicalCommand) {
	t.queue.Enqueue(cmd)
	t.last.Store(int32(cmd))
}

// reportButton logs press activity recorded by the edge handler since the
// previous turn. Logging here keeps the edge handler free of I/O.
func (t *EventTranslator) reportButton() {
	accepted, discarded := t.Presses()
	if accepted != t.reportedAccepted {
		t.logger.Debug("button press accepted", "count", accepted-t.reportedAccepted, "last_command", t.LastCommand().String())
		t.reportedAccepted = accepted
	}
	if discarded != t.reportedDiscarded {
		t.logger.Debug("button press debounced", "count", discarded-t.reportedDiscarded)
		t.reportedDiscarded = discarded
	}
}
