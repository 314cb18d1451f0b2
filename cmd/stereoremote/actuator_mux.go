package main

import (
	"fmt"
	"log/slog"

	"github.com/stianeikeland/go-rpio/v4"
)

// outputPin is the part of rpio.Pin the multiplexer needs.
type outputPin interface {
	Write(state rpio.State)
}

// muxActuator drives an 8:1 analog multiplexer (CD4051 style). Each channel
// connects one resistor of the ladder to the receiver's remote input; the
// three select lines carry the channel number, S0 being the least significant bit.
type muxActuator struct {
	pins    [muxSelectLines]outputPin
	logger  *slog.Logger
	closeFn func() error
	current uint8
}

// openMuxActuator maps GPIO memory and configures the select lines as outputs.
func openMuxActuator(cfg MuxConfig, logger *slog.Logger) (*muxActuator, error) {
	if len(cfg.SelectPins) != muxSelectLines {
		return nil, fmt.Errorf("multiplexer needs %d select pins, got %d", muxSelectLines, len(cfg.SelectPins))
	}
	for _, n := range cfg.SelectPins {
		if n < 0 || n > maxBCMPin {
			return nil, fmt.Errorf("multiplexer select pin %d is not a BCM pin", n)
		}
	}

	if err := acquireGPIO(); err != nil {
		return nil, err
	}

	var pins [muxSelectLines]outputPin
	for i, n := range cfg.SelectPins {
		p := rpio.Pin(uint8(n))
		p.Output()
		pins[i] = p
	}

	a := newMuxActuator(pins, logger, releaseGPIO)
	if err := a.RestoreRest(); err != nil {
		_ = releaseGPIO()
		return nil, err
	}
	a.logger.Info("multiplexer ready", "s0", cfg.SelectPins[0], "s1", cfg.SelectPins[1], "s2", cfg.SelectPins[2])
	return a, nil
}

func newMuxActuator(pins [muxSelectLines]outputPin, logger *slog.Logger, closeFn func() error) *muxActuator {
	return &muxActuator{
		pins:    pins,
		logger:  logger.With("component", "actuator", "kind", ActuatorMux),
		closeFn: closeFn,
	}
}

func (a *muxActuator) Apply(ins Instruction) error {
	return a.selectChannel(ins.Channel)
}

func (a *muxActuator) RestoreRest() error {
	return a.selectChannel(restInstruction.Channel)
}

func (a *muxActuator) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

func (a *muxActuator) selectChannel(ch uint8) error {
	if int(ch) >= muxChannels {
		return fmt.Errorf("multiplexer channel %d out of range [0,%d)", ch, muxChannels)
	}
	for i, p := range a.pins {
		if ch&(1<<i) != 0 {
			p.Write(rpio.High)
		} else {
			p.Write(rpio.Low)
		}
	}
	a.logger.Debug("channel selected", "channel", ch, "previous", a.current)
	a.current = ch
	return nil
}
