// internal/scope/acquisition.go
package scope

import (
	"time"

	"github.com/tamzrod/vds-bridge/internal/acquire"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

const (
	runStopRun  uint8 = 0
	runStopStop uint8 = 1
)

// Start lets the device acquire.
func (s *Session) Start() error {
	if err := s.requireConfigured(); err != nil {
		return err
	}
	_, err := s.exchange(wire.Cmd8(wire.RegRunStop, runStopRun))
	return err
}

// Stop halts acquisition.
func (s *Session) Stop() error {
	if err := s.requireConfigured(); err != nil {
		return err
	}
	_, err := s.exchange(wire.Cmd8(wire.RegRunStop, runStopStop))
	return err
}

// ForceTrigger triggers an acquisition regardless of the trigger condition.
func (s *Session) ForceTrigger() error {
	if err := s.requireConfigured(); err != nil {
		return err
	}
	_, err := s.exchange(wire.Cmd8(wire.RegForceTrigger, wire.ForceTriggerValue))
	return err
}

// Poll runs one data poll as a single transaction. A timed-out poll is
// not an error; only acquire.TransportError carries one.
func (s *Session) Poll(timeout time.Duration, f *acquire.Frame) (acquire.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Configured {
		return acquire.TransportError, ErrNotReady
	}
	out, err := acquire.Poll(s.t, timeout, s.pollBuf, f)
	if err != nil {
		return out, &TransportError{Op: "poll", Err: err}
	}
	return out, nil
}
