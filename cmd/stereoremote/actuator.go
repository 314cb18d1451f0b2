package main

import (
	"fmt"
	"log/slog"
	"strings"
)

// Actuator executes one primitive instruction against the receiver's wired
// remote input. Calls return immediately; there is no acknowledgment, so the
// caller must wait out the settle duration before issuing the next instruction.
type Actuator interface {
	Apply(ins Instruction) error
	RestoreRest() error
	Close() error
}

// ActuatorKind selects the electrical realization of a command.
type ActuatorKind string

const (
	ActuatorMux     ActuatorKind = "mux"
	ActuatorDigipot ActuatorKind = "digipot"
	ActuatorDryRun  ActuatorKind = "dryrun"
)

func parseActuatorKind(s string) (ActuatorKind, error) {
	switch ActuatorKind(strings.ToLower(s)) {
	case ActuatorMux:
		return ActuatorMux, nil
	case ActuatorDigipot:
		return ActuatorDigipot, nil
	case ActuatorDryRun:
		return ActuatorDryRun, nil
	default:
		return "", fmt.Errorf("invalid actuator kind: %s (must be mux, digipot, or dryrun)", s)
	}
}

// openActuator builds the actuator selected by cfg.
func openActuator(cfg ActuatorConfig, logger *slog.Logger) (Actuator, error) {
	kind, err := parseActuatorKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case ActuatorMux:
		a, err := openMuxActuator(cfg.Mux, logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	case ActuatorDigipot:
		a, err := openDigipotActuator(cfg.Digipot, logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return newDryRunActuator(logger), nil
	}
}

// ============================================================================
// Dry-run actuator
// ============================================================================

// dryRunActuator logs each primitive instead of driving hardware.
type dryRunActuator struct {
	logger *slog.Logger
}

func newDryRunActuator(logger *slog.Logger) *dryRunActuator {
	return &dryRunActuator{logger: logger.With("component", "actuator", "kind", ActuatorDryRun)}
}

func (a *dryRunActuator) Apply(ins Instruction) error {
	a.logger.Info("apply", "label", ins.Label, "channel", ins.Channel, "ohms", ins.Ohms())
	return nil
}

func (a *dryRunActuator) RestoreRest() error {
	a.logger.Debug("restore rest")
	return nil
}

func (a *dryRunActuator) Close() error { return nil }

// ============================================================================
// Effects
// ============================================================================

// actuatorStep identifies which primitive the dispatcher is issuing.
type actuatorStep int

const (
	stepPrimary actuatorStep = iota
	stepRelease
)

func (s actuatorStep) String() string {
	if s == stepPrimary {
		return "primary"
	}
	return "release"
}

// runEffect issues one primitive against the actuator.
//
// Timing is open-loop: a failed write cannot be retried meaningfully because
// the receiver never confirms anything. Failures are logged and the caller
// proceeds with its settle wait as if the write had happened.
func runEffect(act Actuator, step actuatorStep, ins Instruction, logger *slog.Logger) {
	if act == nil {
		logger.Error("actuator effect without actuator", "error", errNoActuator{}, "step", step.String())
		return
	}

	var err error
	switch step {
	case stepPrimary:
		err = act.Apply(ins)
	default:
		err = act.RestoreRest()
	}
	if err != nil {
		logger.Error("actuator write failed", "error", err, "step", step.String(), "instruction", ins.String())
	}
}

// errNoActuator indicates the dispatcher was asked to act without an actuator.
type errNoActuator struct{}

func (errNoActuator) Error() string { return "no actuator" }
