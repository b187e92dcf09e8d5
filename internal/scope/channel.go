// internal/scope/channel.go
package scope

import (
	"math"
	"strings"

	"github.com/tamzrod/vds-bridge/internal/flash"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

// Channel config byte layout.
const (
	chanBitAttenuation byte = 1 << 1
	chanCouplingShift       = 5
	chanCouplingMask   byte = 0x3 << chanCouplingShift
	chanBitOn          byte = 1 << 7
)

// countsPerDiv is the ADC span of one vertical division (250 counts / 10 div).
const countsPerDiv = 25

var (
	chanConfigReg = [flash.Channels]uint32{wire.RegChannelCH1, wire.RegChannelCH2}
	voltGainReg   = [flash.Channels]uint32{wire.RegVoltGainCH1, wire.RegVoltGainCH2}
	zeroOffReg    = [flash.Channels]uint32{wire.RegZeroOffsetCH1, wire.RegZeroOffsetCH2}
)

// Coupling is the analog input coupling.
type Coupling byte

const (
	CouplingDC  Coupling = 0
	CouplingAC  Coupling = 1
	CouplingGND Coupling = 2
)

func (c Coupling) String() string {
	switch c {
	case CouplingDC:
		return "DC1M"
	case CouplingAC:
		return "AC1M"
	case CouplingGND:
		return "GND"
	default:
		return "?"
	}
}

// ParseCoupling accepts DC, DC1M, AC, AC1M and GND (any case).
func ParseCoupling(s string) (Coupling, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DC", "DC1M":
		return CouplingDC, nil
	case "AC", "AC1M":
		return CouplingAC, nil
	case "GND":
		return CouplingGND, nil
	default:
		return 0, rejectf("unknown coupling %q", s)
	}
}

// ChannelState is the cached setting of one analog channel.
type ChannelState struct {
	Enabled  bool
	Coupling Coupling
	Range    flash.Range
	// FullScale is the last requested range in volts; 0 until set.
	FullScale float64
	Offset    float64
}

// Channel returns the cached settings of ch.
func (s *Session) Channel(ch int) (ChannelState, error) {
	if err := checkChannel(ch); err != nil {
		return ChannelState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.chanCfg[ch]
	return ChannelState{
		Enabled:   cfg&chanBitOn != 0,
		Coupling:  Coupling((cfg & chanCouplingMask) >> chanCouplingShift),
		Range:     s.chanRange[ch],
		FullScale: s.chanVolts[ch],
		Offset:    s.chanOffset[ch],
	}, nil
}

// SetChannelEnabled switches ch on or off and updates the channel-on mask.
func (s *Session) SetChannelEnabled(ch int, on bool) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if err := s.requireConfigured(); err != nil {
		return err
	}

	s.mu.Lock()
	cfg := withBit(s.chanCfg[ch], chanBitOn, on)
	var mask uint8
	for i, c := range s.chanCfg {
		if i == ch {
			c = cfg
		}
		if c&chanBitOn != 0 {
			mask |= 1 << i
		}
	}
	s.mu.Unlock()

	if err := s.run([]wire.Command{
		wire.Cmd8(chanConfigReg[ch], cfg),
		wire.Cmd8(wire.RegChannelOn, mask),
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.chanCfg[ch] = withBit(s.chanCfg[ch], chanBitOn, on)
	s.mu.Unlock()
	return nil
}

// SetChannelCoupling sets the input coupling of ch.
func (s *Session) SetChannelCoupling(ch int, c Coupling) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if c > CouplingGND {
		return rejectf("coupling %d", c)
	}
	if err := s.requireConfigured(); err != nil {
		return err
	}

	s.mu.Lock()
	cfg := withCoupling(s.chanCfg[ch], c)
	s.mu.Unlock()

	if _, err := s.exchange(wire.Cmd8(chanConfigReg[ch], cfg)); err != nil {
		return err
	}

	s.mu.Lock()
	s.chanCfg[ch] = withCoupling(s.chanCfg[ch], c)
	s.mu.Unlock()
	return nil
}

// SetChannelRange selects the smallest calibrated range covering fullScale
// volts over ten divisions, then writes its gain, the channel config and
// the re-derived zero offset.
func (s *Session) SetChannelRange(ch int, fullScale float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if !(fullScale > 0) || math.IsInf(fullScale, 0) {
		return rejectf("range %g V", fullScale)
	}
	if err := s.requireConfigured(); err != nil {
		return err
	}

	r := flash.RangeFor(fullScale / 10)

	atten := r >= flash.Range1V

	s.mu.Lock()
	cal := s.info.Calibration[ch]
	cfg := withBit(s.chanCfg[ch], chanBitAttenuation, atten)
	zero := ZeroOffsetWord(cal, r, s.chanOffset[ch])
	s.mu.Unlock()

	s.log.Debug().Int("ch", ch).Str("range", r.String()).Uint16("gain", cal.Gain[r]).Msg("scope: range")

	if err := s.run([]wire.Command{
		wire.Cmd16(voltGainReg[ch], cal.Gain[r]),
		wire.Cmd8(chanConfigReg[ch], cfg),
		wire.Cmd16(zeroOffReg[ch], zero),
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.chanRange[ch] = r
	s.chanVolts[ch] = fullScale
	s.chanCfg[ch] = withBit(s.chanCfg[ch], chanBitAttenuation, atten)
	s.mu.Unlock()
	return nil
}

// SetChannelOffset moves the trace by volts using the current range's calibration.
func (s *Session) SetChannelOffset(ch int, volts float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if math.IsNaN(volts) || math.IsInf(volts, 0) {
		return rejectf("offset %g V", volts)
	}
	if err := s.requireConfigured(); err != nil {
		return err
	}

	s.mu.Lock()
	zero := ZeroOffsetWord(s.info.Calibration[ch], s.chanRange[ch], volts)
	s.mu.Unlock()

	if _, err := s.exchange(wire.Cmd16(zeroOffReg[ch], zero)); err != nil {
		return err
	}

	s.mu.Lock()
	s.chanOffset[ch] = volts
	s.mu.Unlock()
	return nil
}

func withBit(cfg, bit byte, on bool) byte {
	if on {
		return cfg | bit
	}
	return cfg &^ bit
}

func withCoupling(cfg byte, c Coupling) byte {
	return cfg&^chanCouplingMask | byte(c)<<chanCouplingShift
}

// ZeroOffsetWord shifts the calibrated compensation of range r by the
// offset expressed in ADC counts, scaled by the calibrated amplitude
// (amplitude is counts per 100 compensation steps).
func ZeroOffsetWord(cal flash.Calibration, r flash.Range, volts float64) uint16 {
	comp := float64(cal.Compensation[r])
	counts := volts / r.VoltsPerDiv() * countsPerDiv

	amp := float64(cal.Amplitude[r])
	if amp == 0 {
		amp = 100
	}
	v := math.Round(comp - counts*amp/100)
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}
