// internal/scope/sampling.go
package scope

import (
	"github.com/tamzrod/vds-bridge/internal/acquire"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

// SampleRates lists the supported sample rates in Hz.
var SampleRates = []uint64{
	25, 50, 125, 250, 500,
	1_250, 2_500, 5_000, 12_500, 25_000, 50_000,
	125_000, 250_000, 1_250_000, 2_500_000, 5_000_000,
	12_500_000, 25_000_000, 50_000_000, 100_000_000,
}

// SampleDepths lists the supported memory depths in samples.
var SampleDepths = []uint64{acquire.AcquiredSamples}

// deepMemoryWords is the stored sample count including the guard bands.
const deepMemoryWords = acquire.SampleBufferSize

// TimebaseDivisor returns the timebase register value for hz.
// It rejects rates outside SampleRates and rates that do not divide the clock.
func TimebaseDivisor(hz uint64) (uint32, error) {
	supported := false
	for _, r := range SampleRates {
		if r == hz {
			supported = true
			break
		}
	}
	if !supported {
		return 0, rejectf("sample rate %d Hz not supported", hz)
	}
	clk := uint64(wire.TimebaseClockHz)
	if clk%hz != 0 {
		return 0, rejectf("sample rate %d Hz does not divide %d Hz", hz, clk)
	}
	return uint32(clk / hz), nil
}

// SetSampleRate pushes the sampling config: timebase, roll mode off and
// the current peak-detect setting.
func (s *Session) SetSampleRate(hz uint64) error {
	div, err := TimebaseDivisor(hz)
	if err != nil {
		return err
	}
	if err := s.requireConfigured(); err != nil {
		return err
	}

	s.mu.Lock()
	peak := s.peak
	s.mu.Unlock()

	if err := s.run(samplingCommands(div, peak)); err != nil {
		return err
	}

	s.mu.Lock()
	s.rate = hz
	s.mu.Unlock()
	return nil
}

// SetPeakDetect toggles min/max interleaved acquisition.
func (s *Session) SetPeakDetect(on bool) error {
	if err := s.requireConfigured(); err != nil {
		return err
	}
	if _, err := s.exchange(wire.Cmd8(wire.RegPeakMode, boolByte(on))); err != nil {
		return err
	}

	s.mu.Lock()
	s.peak = on
	s.mu.Unlock()
	return nil
}

// SampleRate returns the last rate set, or 0 while the power-on timebase is active.
func (s *Session) SampleRate() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// SetSampleDepth accepts only the fixed depth the device supports.
func (s *Session) SetSampleDepth(depth uint64) error {
	if depth != acquire.AcquiredSamples {
		return rejectf("sample depth %d not supported", depth)
	}
	if err := s.requireConfigured(); err != nil {
		return err
	}
	_, err := s.exchange(wire.Cmd16(wire.RegDeepMemory, deepMemoryWords))
	return err
}

func samplingCommands(div uint32, peak bool) []wire.Command {
	return []wire.Command{
		wire.Cmd32(wire.RegTimebase, div),
		wire.Cmd8(wire.RegRollMode, 0),
		wire.Cmd8(wire.RegPeakMode, boolByte(peak)),
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
