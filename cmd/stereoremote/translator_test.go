package main

import (
	"errors"
	"testing"
	"time"
)

// fakeEncoder is a test double for EncoderSource
type fakeEncoder struct {
	pos int64
}

func (f *fakeEncoder) Position() int64 { return f.pos }

func newTestTranslator(enc EncoderSource, cfg TranslatorConfig) (*EventTranslator, *CommandQueue, time.Time) {
	q := NewCommandQueue(16)
	t0 := time.Unix(1700000000, 0)
	return NewEventTranslator(q, enc, cfg, testLogger(), t0), q, t0
}

// TestEventTranslator_EncoderThreshold tests the +1, +1, -3 rotation with threshold 1
func TestEventTranslator_EncoderThreshold(t *testing.T) {
	enc := &fakeEncoder{}
	tr, q, t0 := newTestTranslator(enc, TranslatorConfig{EncoderThreshold: 1})

	enc.pos = 1
	if got := tr.PollEncoder(t0); got != CmdNone {
		t.Errorf("delta 1: expected no command, got %s", got)
	}

	enc.pos = 2
	if got := tr.PollEncoder(t0.Add(time.Millisecond)); got != CmdVolumeUp {
		t.Errorf("delta 2: expected volume_up, got %s", got)
	}

	enc.pos = -1
	if got := tr.PollEncoder(t0.Add(2 * time.Millisecond)); got != CmdVolumeDown {
		t.Errorf("delta -3: expected volume_down, got %s", got)
	}

	got := drainQueue(q)
	if len(got) != 2 || got[0] != CmdVolumeUp || got[1] != CmdVolumeDown {
		t.Errorf("expected [volume_up volume_down], got %v", got)
	}
}

// TestEventTranslator_ThresholdZero tests that every step emits a command
func TestEventTranslator_ThresholdZero(t *testing.T) {
	enc := &fakeEncoder{}
	tr, q, t0 := newTestTranslator(enc, TranslatorConfig{EncoderThreshold: 0})

	for i := 1; i <= 3; i++ {
		enc.pos = int64(i)
		tr.PollEncoder(t0)
	}
	enc.pos = 2
	tr.PollEncoder(t0)

	got := drainQueue(q)
	want := []LogicalCommand{CmdVolumeUp, CmdVolumeUp, CmdVolumeUp, CmdVolumeDown}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestEventTranslator_SubThresholdAccumulates tests that small steps add up
// against the last accepted position
func TestEventTranslator_SubThresholdAccumulates(t *testing.T) {
	enc := &fakeEncoder{pos: 10}
	tr, q, t0 := newTestTranslator(enc, TranslatorConfig{EncoderThreshold: 2})

	// Initial position is the baseline, not zero
	tr.PollEncoder(t0)
	if q.Len() != 0 {
		t.Fatalf("expected no command at baseline, got len=%d", q.Len())
	}

	enc.pos = 12
	tr.PollEncoder(t0)
	enc.pos = 13
	if got := tr.PollEncoder(t0); got != CmdVolumeUp {
		t.Errorf("expected volume_up after accumulating 3 steps, got %s", got)
	}
}

// TestEventTranslator_NilEncoder tests button-only setups
func TestEventTranslator_NilEncoder(t *testing.T) {
	tr, q, t0 := newTestTranslator(nil, TranslatorConfig{})

	if got := tr.PollEncoder(t0); got != CmdNone {
		t.Errorf("expected none, got %s", got)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got len=%d", q.Len())
	}
}

// TestEventTranslator_ButtonDebounce tests that presses inside the debounce window are discarded
func TestEventTranslator_ButtonDebounce(t *testing.T) {
	tr, q, t0 := newTestTranslator(nil, TranslatorConfig{ButtonDebounce: 100 * time.Millisecond})

	tr.ButtonPressed(t0)
	tr.ButtonPressed(t0.Add(50 * time.Millisecond))  // bounce
	tr.ButtonPressed(t0.Add(150 * time.Millisecond)) // new press
	tr.ButtonPressed(t0.Add(250 * time.Millisecond)) // exactly one window later

	accepted, discarded := tr.Presses()
	if accepted != 3 || discarded != 1 {
		t.Errorf("expected accepted=3 discarded=1, got accepted=%d discarded=%d", accepted, discarded)
	}

	got := drainQueue(q)
	if len(got) != 3 {
		t.Fatalf("expected 3 commands, got %v", got)
	}
	for i, c := range got {
		if c != CmdMute {
			t.Errorf("index %d: expected mute, got %s", i, c)
		}
	}

	if tr.LastCommand() != CmdMute {
		t.Errorf("expected last command mute, got %s", tr.LastCommand())
	}
}

// TestEventTranslator_FirstPressAlwaysAccepted tests that a press right at the epoch is not debounced
func TestEventTranslator_FirstPressAlwaysAccepted(t *testing.T) {
	tr, q, t0 := newTestTranslator(nil, TranslatorConfig{ButtonDebounce: time.Second})

	tr.ButtonPressed(t0)

	if got := drainQueue(q); len(got) != 1 || got[0] != CmdMute {
		t.Errorf("expected [mute], got %v", got)
	}
}

// TestEventTranslator_TripleClick tests the opt-in triple click gesture
func TestEventTranslator_TripleClick(t *testing.T) {
	tr, q, t0 := newTestTranslator(nil, TranslatorConfig{
		ButtonDebounce:    100 * time.Millisecond,
		TripleClickWindow: 600 * time.Millisecond,
	})

	tr.ButtonPressed(t0)
	tr.ButtonPressed(t0.Add(200 * time.Millisecond))
	tr.ButtonPressed(t0.Add(400 * time.Millisecond))
	tr.ButtonPressed(t0.Add(600 * time.Millisecond)) // starts a new gesture

	got := drainQueue(q)
	want := []LogicalCommand{CmdMute, CmdMute, CmdTripleClick, CmdMute}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestEventTranslator_TripleClickWindowExpired tests that slow presses stay mutes
func TestEventTranslator_TripleClickWindowExpired(t *testing.T) {
	tr, q, t0 := newTestTranslator(nil, TranslatorConfig{
		ButtonDebounce:    100 * time.Millisecond,
		TripleClickWindow: 600 * time.Millisecond,
	})

	for i := 0; i < 4; i++ {
		tr.ButtonPressed(t0.Add(time.Duration(i) * 400 * time.Millisecond))
	}

	for i, c := range drainQueue(q) {
		if c == CmdTripleClick {
			t.Errorf("index %d: unexpected triple click", i)
		}
	}
}

// TestEventTranslator_Inject tests injecting commands from IPC or media keys
func TestEventTranslator_Inject(t *testing.T) {
	tr, q, _ := newTestTranslator(nil, TranslatorConfig{})

	if err := tr.Inject(CmdTrackBack); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := tr.Inject(CmdNone)
	if !errors.Is(err, errInvalidCommand) {
		t.Errorf("expected errInvalidCommand for none, got %v", err)
	}
	if err := tr.Inject(LogicalCommand(42)); !errors.Is(err, errInvalidCommand) {
		t.Errorf("expected errInvalidCommand for unknown value, got %v", err)
	}

	got := drainQueue(q)
	if len(got) != 1 || got[0] != CmdTrackBack {
		t.Errorf("expected [track_back], got %v", got)
	}
}
