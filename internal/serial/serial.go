// Package serial implements the monotonic submit/completion timeline that
// the queue uses to sequence GPU work and gate deferred cleanup.
package serial

import "sync/atomic"

// Serial identifies a position on a queue's submission timeline. Zero is a
// valid serial: it is the value a queue starts at before anything has been
// submitted.
type Serial uint64

// Invalid is returned by APIs that have no meaningful serial to report yet.
const Invalid Serial = 0

// Timeline tracks completedSerial and lastSubmittedSerial as described by the
// queue's serial model: completed never exceeds lastSubmitted, and the
// pending submit serial is always lastSubmitted+1.
type Timeline struct {
	completed     atomic.Uint64
	lastSubmitted atomic.Uint64
}

// Completed returns the highest serial known to have finished on the GPU.
func (t *Timeline) Completed() Serial {
	return Serial(t.completed.Load())
}

// LastSubmitted returns the highest serial assigned to a submission so far.
func (t *Timeline) LastSubmitted() Serial {
	return Serial(t.lastSubmitted.Load())
}

// PendingSubmit returns the serial that the next Submit call will assign.
func (t *Timeline) PendingSubmit() Serial {
	return Serial(t.lastSubmitted.Load() + 1)
}

// NextSubmitSerial increments lastSubmitted and returns the serial assigned
// to the submission that just happened.
func (t *Timeline) NextSubmitSerial() Serial {
	return Serial(t.lastSubmitted.Add(1))
}

// CheckAndUpdateCompleted promotes the completed serial to reported if
// reported is higher than the current value, using a CAS loop so concurrent
// callers never regress it. Returns the resulting completed serial.
func (t *Timeline) CheckAndUpdateCompleted(reported Serial) Serial {
	for {
		cur := t.completed.Load()
		if uint64(reported) <= cur {
			return Serial(cur)
		}
		if t.completed.CompareAndSwap(cur, uint64(reported)) {
			return reported
		}
	}
}
