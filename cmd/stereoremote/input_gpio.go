package main

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// inputPin is the part of rpio.Pin the GPIO input source reads.
type inputPin interface {
	Read() rpio.State
	EdgeDetected() bool
}

// quadratureTable maps (previous AB << 2 | current AB) to a step.
// Invalid transitions (both lines changed) count as no movement.
var quadratureTable = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// quadratureDecoder accumulates Gray-code transitions into a position.
// Swap the A and B pins to reverse the direction.
type quadratureDecoder struct {
	last uint8
}

// update returns the step for the new AB sample.
func (q *quadratureDecoder) update(a, b rpio.State) int8 {
	cur := uint8(a)<<1 | uint8(b)
	step := quadratureTable[q.last<<2|cur]
	q.last = cur
	return step
}

// gpioSource reads a mechanical rotary encoder and its push button directly
// from GPIO. The encoder lines are sampled on a fast poll; the button pin is
// armed for rising-edge detection (pulled up, like the encoder module's own
// switch), and each detected edge is delivered to the sink from the poll
// goroutine, which is the edge context.
type gpioSource struct {
	pinA, pinB inputPin
	button     inputPin
	poll       time.Duration
	sink       ButtonSink
	logger     *slog.Logger

	decoder  quadratureDecoder
	position atomic.Int64
	invalid  atomic.Uint64
}

func newGPIOSource(pinA, pinB, button inputPin, poll time.Duration, logger *slog.Logger) *gpioSource {
	s := &gpioSource{
		pinA:   pinA,
		pinB:   pinB,
		button: button,
		poll:   poll,
		logger: logger.With("component", "input", "kind", "gpio"),
	}
	s.decoder.last = uint8(pinA.Read())<<1 | uint8(pinB.Read())
	return s
}

// openGPIOSource configures the pins from cfg and returns a source reading them.
// The caller must call the returned release function when done.
func openGPIOSource(cfg GPIOInputConfig, logger *slog.Logger) (*gpioSource, func() error, error) {
	if err := acquireGPIO(); err != nil {
		return nil, nil, err
	}

	a := rpio.Pin(uint8(cfg.EncoderPinA))
	b := rpio.Pin(uint8(cfg.EncoderPinB))
	btn := rpio.Pin(uint8(cfg.ButtonPin))
	for _, p := range []rpio.Pin{a, b, btn} {
		p.Input()
		p.PullUp()
	}
	btn.Detect(rpio.RiseEdge)

	release := func() error {
		btn.Detect(rpio.NoEdge)
		return releaseGPIO()
	}

	poll := time.Duration(cfg.PollUS) * time.Microsecond
	return newGPIOSource(a, b, btn, poll, logger), release, nil
}

// Position implements EncoderSource.
func (s *gpioSource) Position() int64 {
	return s.position.Load()
}

func (s *gpioSource) setSink(sink ButtonSink) {
	s.sink = sink
}

// sample reads the pins once.
func (s *gpioSource) sample(now time.Time) {
	a, b := s.pinA.Read(), s.pinB.Read()
	prev := s.decoder.last
	step := s.decoder.update(a, b)
	if step != 0 {
		s.position.Add(int64(step))
	} else if prev != s.decoder.last {
		s.invalid.Add(1)
	}

	if s.button != nil && s.button.EdgeDetected() && s.sink != nil {
		s.sink.ButtonPressed(now)
	}
}

// run polls the pins until ctx is canceled.
func (s *gpioSource) run(ctx context.Context) error {
	if s.poll <= 0 {
		s.poll = time.Duration(defaultGPIOPollUS) * time.Microsecond
	}
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	s.logger.Info("polling gpio input", "interval", s.poll)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("gpio input stopping (context canceled)", "invalid_transitions", s.invalid.Load())
			return nil
		case now := <-ticker.C:
			s.sample(now)
		}
	}
}
