// internal/bridge/waveform.go
package bridge

import (
	"github.com/tamzrod/vds-bridge/internal/acquire"
	"github.com/tamzrod/vds-bridge/internal/poller"
	"github.com/tamzrod/vds-bridge/internal/scope"
	"github.com/tamzrod/vds-bridge/internal/writer"
)

// onPoll runs on the waveform task for every poll result.
func (s *Server) onPoll(res poller.PollResult) {
	if s.tracker != nil {
		s.tracker.Observe(scope.ErrorCode(res.Err))
	}

	if res.Outcome != acquire.Ready || !s.armed.Load() {
		return
	}

	if err := s.wave.Write(res); err != nil {
		s.log.Warn().Err(err).Msg("bridge: waveform write failed")
	}
	if s.tracker != nil {
		for i := writer.Records(res); i > 0; i-- {
			s.tracker.CountWaveform()
		}
	}

	// one-shot: first delivered waveform disarms
	if _, err := s.finishSingle(); err != nil {
		s.log.Warn().Err(err).Msg("bridge: stop after single failed")
	}
}

func (s *Server) arm(single bool) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.sess.Start(); err != nil {
		return err
	}
	s.single.Store(single)
	s.setArmed(true)
	return nil
}

func (s *Server) disarm() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.single.Store(false)
	s.setArmed(false)
	return s.sess.Stop()
}

// finishSingle stops acquisition if a SINGLE is still pending. A START
// or STOP that ran first has already cleared it, so the stop is skipped.
func (s *Server) finishSingle() (bool, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.single.Load() {
		return false, nil
	}
	s.single.Store(false)
	s.setArmed(false)
	return true, s.sess.Stop()
}

func (s *Server) setArmed(on bool) {
	s.armed.Store(on)
	if s.tracker != nil {
		s.tracker.SetArmed(on)
	}
}
