package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/davecheney/i2c"
)

// digipotActuator drives a single-channel I2C digital potentiometer wired as
// a variable resistor in place of the ladder. Instructions are converted from
// a percentage of the ladder into a wiper position; the wiper register is
// written as a single byte (MCP4017/4018/4019 family).
type digipotActuator struct {
	dev    io.WriteCloser
	steps  int
	logger *slog.Logger
	wiper  int
}

// openDigipotActuator opens the I2C device at cfg.Address on cfg.Bus.
func openDigipotActuator(cfg DigipotConfig, logger *slog.Logger) (*digipotActuator, error) {
	dev, err := i2c.New(cfg.Address, cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %d addr 0x%02x: %w", cfg.Bus, cfg.Address, err)
	}

	a := newDigipotActuator(dev, cfg.Steps, logger)
	if err := a.RestoreRest(); err != nil {
		_ = dev.Close()
		return nil, err
	}
	a.logger.Info("digital potentiometer ready", "bus", cfg.Bus, "address", fmt.Sprintf("0x%02x", cfg.Address), "steps", cfg.Steps)
	return a, nil
}

func newDigipotActuator(dev io.WriteCloser, steps int, logger *slog.Logger) *digipotActuator {
	return &digipotActuator{
		dev:    dev,
		steps:  steps,
		logger: logger.With("component", "actuator", "kind", ActuatorDigipot),
	}
}

func (a *digipotActuator) Apply(ins Instruction) error {
	return a.setWiper(wiperPosition(ins.ResistancePct, a.steps))
}

func (a *digipotActuator) RestoreRest() error {
	return a.setWiper(a.steps)
}

func (a *digipotActuator) Close() error {
	return a.dev.Close()
}

func (a *digipotActuator) setWiper(pos int) error {
	if _, err := a.dev.Write([]byte{byte(pos)}); err != nil {
		return fmt.Errorf("write wiper %d: %w", pos, err)
	}
	a.logger.Debug("wiper set", "position", pos, "previous", a.wiper)
	a.wiper = pos
	return nil
}

// wiperPosition converts a resistance percentage into the nearest wiper step,
// clamped to [0, steps].
func wiperPosition(pct float64, steps int) int {
	pos := int(math.Round(pct / 100 * float64(steps)))
	if pos < 0 {
		return 0
	}
	if pos > steps {
		return steps
	}
	return pos
}
