package main

import "fmt"

// Instruction is one primitive the actuator can execute. It carries both
// realizations of a wired-remote button: the multiplexer channel whose
// resistor emulates the button, and the same resistance expressed as a
// percentage of the full ladder for a digital potentiometer.
type Instruction struct {
	Channel       uint8
	ResistancePct float64
	Label         string
}

func (i Instruction) String() string {
	return fmt.Sprintf("Instruction(%s channel=%d resistance=%.2f%%)", i.Label, i.Channel, i.ResistancePct)
}

// Ohms returns the emulated resistance.
func (i Instruction) Ohms() float64 {
	return ladderTotalOhms * i.ResistancePct / 100
}

// restInstruction is channel 0: the full ladder, no button pressed.
var restInstruction = Instruction{Channel: 0, ResistancePct: 100, Label: "rest"}

// instructionTable maps each command to the resistor the receiver expects.
// Channel 2 (5.75 kOhm, display/song tag) is wired but no command drives it.
var instructionTable = map[LogicalCommand]Instruction{
	CmdMute:         {Channel: 1, ResistancePct: 3.5, Label: "att"},
	CmdTrackForward: {Channel: 3, ResistancePct: 8, Label: "next"},
	CmdTrackBack:    {Channel: 4, ResistancePct: 11.25, Label: "prev"},
	CmdVolumeUp:     {Channel: 5, ResistancePct: 16, Label: "volume_up"},
	CmdVolumeDown:   {Channel: 6, ResistancePct: 24, Label: "volume_down"},
	CmdTripleClick:  {Channel: 7, ResistancePct: 62.75, Label: "band"},
}

// instructionFor maps a command to its actuator instruction.
// Unrecognized values map to the rest instruction and ok=false.
func instructionFor(c LogicalCommand) (Instruction, bool) {
	ins, ok := instructionTable[c]
	if !ok {
		return restInstruction, false
	}
	return ins, true
}
