package main

import (
	"context"
	"testing"
	"time"
)

// orderTask records the order tasks run in
type orderTask struct {
	name string
	log  *[]string
}

func (o orderTask) turn(now time.Time) { *o.log = append(*o.log, o.name) }

// TestScheduler_TickRoundRobin tests that every task runs once per tick, in order
func TestScheduler_TickRoundRobin(t *testing.T) {
	var log []string
	s := newScheduler(time.Millisecond, testLogger(), orderTask{"a", &log}, orderTask{"b", &log})

	s.tick(time.Now())
	s.tick(time.Now())

	want := []string{"a", "b", "a", "b"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], log[i])
		}
	}
	if s.turns != 2 {
		t.Errorf("expected 2 turns, got %d", s.turns)
	}
}

// TestScheduler_DefaultSlice tests the slice floor
func TestScheduler_DefaultSlice(t *testing.T) {
	s := newScheduler(0, testLogger())
	if s.slice != time.Duration(defaultSliceMS)*time.Millisecond {
		t.Errorf("expected default slice, got %v", s.slice)
	}
}

// TestScheduler_RunStopsOnCancel tests that run returns once ctx is canceled
func TestScheduler_RunStopsOnCancel(t *testing.T) {
	var log []string
	s := newScheduler(time.Millisecond, testLogger(), orderTask{"a", &log})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}
	if len(log) == 0 {
		t.Error("expected at least one turn before cancel")
	}
}

// TestScheduler_EncoderToActuator tests the translator and dispatcher sharing one tick
func TestScheduler_EncoderToActuator(t *testing.T) {
	q := NewCommandQueue(8)
	enc := &fakeEncoder{}
	t0 := time.Unix(1700000000, 0)
	tr := NewEventTranslator(q, enc, TranslatorConfig{EncoderThreshold: 1}, testLogger(), t0)
	act := &recordingActuator{}
	d := NewDispatcher(q, act, testDispatcherConfig, testLogger())
	s := newScheduler(time.Millisecond, testLogger(), translatorTask{tr}, dispatcherTask{d})

	enc.pos = 2
	act.now = t0
	s.tick(t0)

	if len(act.calls) != 1 || act.calls[0].label != "volume_up" {
		t.Fatalf("expected volume_up applied in the same tick, got %+v", act.calls)
	}

	// A button edge from another goroutine is picked up on a later tick
	tr.ButtonPressed(t0.Add(5 * time.Millisecond))
	now := t0
	for i := 0; i < 2000 && len(act.applies()) < 2; i++ {
		now = now.Add(time.Millisecond)
		act.now = now
		s.tick(now)
	}

	applies := act.applies()
	if len(applies) != 2 || applies[1].label != "att" {
		t.Fatalf("expected [volume_up att], got %+v", applies)
	}
}
