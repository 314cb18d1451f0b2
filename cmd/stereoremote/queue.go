package main

import (
	"sync"
	"sync/atomic"
)

// CommandQueue is a bounded ring of logical commands shared between the
// producers (button edge handler, translator task, IPC) and the single
// consumer (dispatcher task).
//
// Cursors are monotonically increasing ordinals; the slot for ordinal n is
// n % capacity. The producer side owns writeIndex and the consumer owns
// lastProcessed. Slots between the two cursors hold undispatched commands,
// every other slot holds CmdNone.
//
// Overflow policy is drop-oldest: when producers lap the consumer, the
// consumer skips forward to the newest capacity entries the next time it asks
// for the available range. Nothing blocks and nothing fails.
type CommandQueue struct {
	slots    []atomic.Int32
	capacity uint64

	// Serializes producers, and the consumer's slot read in Take. Each
	// critical section is a few loads and stores, so holding it from the
	// edge handler is bounded.
	produceMu  sync.Mutex
	writeIndex atomic.Uint64

	lastProcessed atomic.Uint64
	dropped       atomic.Uint64
}

// NewCommandQueue creates a queue with the given capacity (minimum 1).
func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &CommandQueue{
		slots:    make([]atomic.Int32, capacity),
		capacity: uint64(capacity),
	}
}

// Enqueue writes cmd at the write cursor and advances it.
// Safe to call from any goroutine.
func (q *CommandQueue) Enqueue(cmd LogicalCommand) {
	q.produceMu.Lock()
	w := q.writeIndex.Load()
	q.slots[w%q.capacity].Store(int32(cmd))
	q.writeIndex.Store(w + 1)
	q.produceMu.Unlock()
}

// AvailableRange returns the half-open ordinal range [start, end) of commands
// pending dispatch. If the writer has lapped the reader, the read cursor first
// moves to end-capacity and the skipped entries are counted as dropped.
//
// Consumer only.
func (q *CommandQueue) AvailableRange() (start, end uint64) {
	end = q.writeIndex.Load()
	start = q.lastProcessed.Load()
	if end-start > q.capacity {
		newStart := end - q.capacity
		q.dropped.Add(newStart - start)
		q.lastProcessed.Store(newStart)
		start = newStart
	}
	return start, end
}

// Take reads the command at ordinal seq and clears its slot to CmdNone.
// If the slot was overwritten by a lap that happened after the range was
// computed, the entry belongs to a newer ordinal; Take returns CmdNone and
// counts the loss.
//
// Consumer only.
func (q *CommandQueue) Take(seq uint64) LogicalCommand {
	// A producer stores the slot before it publishes the cursor, so the slot
	// and writeIndex are only consistent under produceMu.
	q.produceMu.Lock()
	defer q.produceMu.Unlock()

	if q.writeIndex.Load()-seq > q.capacity {
		q.dropped.Add(1)
		return CmdNone
	}
	slot := &q.slots[seq%q.capacity]
	return LogicalCommand(slot.Swap(int32(CmdNone)))
}

// MarkConsumed advances the read cursor to uptoExclusive. Moving backwards is ignored.
//
// Consumer only.
func (q *CommandQueue) MarkConsumed(uptoExclusive uint64) {
	if uptoExclusive > q.lastProcessed.Load() {
		q.lastProcessed.Store(uptoExclusive)
	}
}

// Len returns the number of pending commands, never more than Cap.
func (q *CommandQueue) Len() int {
	r := q.lastProcessed.Load()
	n := q.writeIndex.Load() - r
	if n > q.capacity {
		n = q.capacity
	}
	return int(n)
}

// Cap returns the queue capacity.
func (q *CommandQueue) Cap() int {
	return int(q.capacity)
}

// Dropped returns how many commands were overwritten before being dispatched,
// including an overflow the consumer has not observed yet.
func (q *CommandQueue) Dropped() uint64 {
	d := q.dropped.Load()
	r := q.lastProcessed.Load()
	if n := q.writeIndex.Load() - r; n > q.capacity {
		d += n - q.capacity
	}
	return d
}
