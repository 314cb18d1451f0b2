package main

import (
	"errors"
	"fmt"
	"strings"
)

// ==============================
// Logical commands
// ==============================

// LogicalCommand is a user intent independent of its electrical realization.
// The zero value is the empty queue slot sentinel.
type LogicalCommand int32

const (
	CmdNone LogicalCommand = iota
	CmdVolumeUp
	CmdVolumeDown
	CmdMute
	CmdTrackForward
	CmdTrackBack
	CmdTripleClick
)

var commandNames = map[LogicalCommand]string{
	CmdVolumeUp:     "volume_up",
	CmdVolumeDown:   "volume_down",
	CmdMute:         "mute",
	CmdTrackForward: "track_forward",
	CmdTrackBack:    "track_back",
	CmdTripleClick:  "triple_click",
}

// Valid reports whether c is one of the recognized, non-empty commands.
func (c LogicalCommand) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// TriggersDisplay reports whether the receiver shows an on-screen overlay
// when it registers c. Track commands never do.
func (c LogicalCommand) TriggersDisplay() bool {
	switch c {
	case CmdVolumeUp, CmdVolumeDown, CmdMute:
		return true
	default:
		return false
	}
}

func (c LogicalCommand) String() string {
	if c == CmdNone {
		return "none"
	}
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int32(c))
}

// ParseCommand converts a wire name (as used by IPC and the ctl tool) into a command.
// Dashes are accepted in place of underscores.
func ParseCommand(s string) (LogicalCommand, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for c, n := range commandNames {
		if n == name {
			return c, nil
		}
	}
	return CmdNone, errUnknownCommand{name: s}
}

// errInvalidCommand is returned when an unrecognized or empty command is injected.
var errInvalidCommand = errors.New("invalid command")

type errUnknownCommand struct {
	name string
}

func (e errUnknownCommand) Error() string { return fmt.Sprintf("unknown command: %q", e.name) }
