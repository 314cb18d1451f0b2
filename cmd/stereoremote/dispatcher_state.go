package main

import (
	"sync"
	"time"
)

// DispatcherState is the dispatcher's position in its command cycle.
// It is owned and mutated only by the dispatcher task.
type DispatcherState int

const (
	StateIdle DispatcherState = iota
	StateDraining
	StateSettlingAfterCommand
	StateHoldingForDisplay
)

func (s DispatcherState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateSettlingAfterCommand:
		return "settling"
	case StateHoldingForDisplay:
		return "holding_for_display"
	default:
		return "unknown"
	}
}

// DispatcherSnapshot is a copy of the dispatcher's externally interesting
// state. It is what IPC clients see; the dispatcher itself is never exposed
// to other goroutines.
type DispatcherSnapshot struct {
	State          string    `json:"state"`
	Dispatched     uint64    `json:"dispatched"`
	Unrecognized   uint64    `json:"unrecognized"`
	DisplayHolds   uint64    `json:"display_holds"`
	Pending        int       `json:"pending"`
	Capacity       int       `json:"capacity"`
	Dropped        uint64    `json:"dropped"`
	SequenceActive bool      `json:"sequence_active"`
	LastCommand    string    `json:"last_command"`
	LastDispatchAt time.Time `json:"last_dispatch_at"`
}

// snapshotBox hands snapshots from the dispatcher goroutine to readers.
type snapshotBox struct {
	mu   sync.Mutex
	snap DispatcherSnapshot
}

func (b *snapshotBox) store(s DispatcherSnapshot) {
	b.mu.Lock()
	b.snap = s
	b.mu.Unlock()
}

func (b *snapshotBox) load() DispatcherSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}
