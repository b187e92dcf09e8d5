// internal/status/tracker.go
package status

import "sync"

// Tracker owns the live Snapshot. Poll outcomes feed Observe, a 1 Hz
// clock feeds Tick. Every method reports whether the snapshot changed.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Observe records one outcome. code 0 means success: health goes OK and
// the error fields reset. A non-zero code sets Error and the code; the
// seconds counter only moves on Tick.
func (t *Tracker) Observe(code uint16) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap
	if code == 0 {
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.SecondsInError = 0
	} else {
		t.snap.Health = HealthError
		t.snap.LastErrorCode = code
	}
	return t.snap, t.snap != prev
}

// Tick advances seconds_in_error while not OK, saturating at MaxSecondsInError.
func (t *Tracker) Tick() (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Health == HealthOK || t.snap.SecondsInError >= MaxSecondsInError {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}

// SetSessionState records the device session state.
func (t *Tracker) SetSessionState(st uint16) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := t.snap.SessionState != st
	t.snap.SessionState = st
	return t.snap, changed
}

// SetArmed records the trigger armed flag.
func (t *Tracker) SetArmed(armed bool) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := t.snap.Armed != armed
	t.snap.Armed = armed
	return t.snap, changed
}

// CountWaveform increments the streamed-record counter.
func (t *Tracker) CountWaveform() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Waveforms++
	return t.snap
}
