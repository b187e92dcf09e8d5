// internal/trigger/encode.go
package trigger

import "math"

// Trigger register bit layout (bit 0 = LSB).
// Every bit written by Encode is named here.
const (
	// BitExternal selects the EXT input instead of a channel.
	BitExternal uint16 = 1 << 0

	// Pulse/slope timing condition, single-source words.
	timingShift        = 5
	timingMask  uint16 = 0x7 << timingShift

	// BitPulse and BitSlope mark the mode of a single-source word.
	BitPulse uint16 = 1 << 8
	BitSlope uint16 = 1 << 14

	// BitACCoupling is the trigger-path coupling, always DC here.
	BitACCoupling uint16 = 1 << 9

	// Sweep mode, single-source words only.
	sweepShift        = 10
	sweepMask  uint16 = 0x3 << sweepShift

	// BitFalling selects the falling edge in edge mode.
	BitFalling uint16 = 1 << 12

	// BitChannelB selects CH2 as the single source.
	BitChannelB uint16 = 1 << 13

	// Alternate words carry the mode in bits 13 and 8. Direction and
	// timing condition use the single-source fields; sweep is not sent.
	BitAltPulse uint16 = 1 << 8
	BitAltSlope uint16 = 1 << 13

	// BitAltChannelB marks the CH2 word of an alternate pair.
	BitAltChannelB uint16 = 1 << 14

	// BitAlternate marks an alternate-mode word.
	BitAlternate uint16 = 1 << 15
)

// Encode maps a Config to trigger register words: one word for single and
// external kinds, two words (CH1 then CH2) for Alternate.
func Encode(c Config) ([]uint16, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.Kind == Alternate {
		return []uint16{
			alternateWord(SourceA, c.Sources[SourceA]),
			alternateWord(SourceB, c.Sources[SourceB]),
		}, nil
	}

	return []uint16{singleWord(c.Kind, c.Sources[c.Primary()])}, nil
}

func singleWord(k Kind, cc ChannelConfig) uint16 {
	var w uint16

	switch k {
	case External:
		w |= BitExternal
	case SingleOnB:
		w |= BitChannelB
	}

	w |= (uint16(cc.Sweep) << sweepShift) & sweepMask

	switch cc.Mode {
	case Edge:
		if cc.Condition == Fall {
			w |= BitFalling
		}
	case Pulse:
		w |= BitPulse
		w |= (cc.Condition.timingIndex() << timingShift) & timingMask
	case Slope:
		w |= BitSlope
		w |= (cc.Condition.timingIndex() << timingShift) & timingMask
	}

	return w
}

func alternateWord(src Source, cc ChannelConfig) uint16 {
	w := BitAlternate
	if src == SourceB {
		w |= BitAltChannelB
	}

	switch cc.Mode {
	case Edge:
		if cc.Condition == Fall {
			w |= BitFalling
		}
	case Pulse:
		w |= BitAltPulse
		w |= (cc.Condition.timingIndex() << timingShift) & timingMask
	case Slope:
		w |= BitAltSlope
		w |= (cc.Condition.timingIndex() << timingShift) & timingMask
	}
	return w
}

// ---- companion registers ----

// edgeHysteresis is the half-width, in ADC counts, of the edge window.
const edgeHysteresis = 5

// adcSpan is the ADC count span mapped onto the normalized level [0,1].
const adcSpan = 250

// LevelCounts maps a normalized level onto signed ADC counts (-125..125).
func LevelCounts(level float64) int8 {
	return clampInt8(math.Round(level*adcSpan) - adcSpan/2)
}

// EdgeLevelWord packs the upper threshold in the low byte and the lower
// threshold in the high byte, each a signed 8-bit ADC count.
func EdgeLevelWord(level float64) uint16 {
	c := int(LevelCounts(level))
	hi := clampInt8(float64(c + edgeHysteresis))
	lo := clampInt8(float64(c - edgeHysteresis))
	return uint16(uint8(lo))<<8 | uint16(uint8(hi))
}

// SlopeThresholdWord packs the two slope levels the same way as EdgeLevelWord.
func SlopeThresholdWord(low, high float64) uint16 {
	return uint16(uint8(LevelCounts(low)))<<8 | uint16(uint8(LevelCounts(high)))
}

// HoldoffWord encodes a holdoff in 100ps units as a 10-bit mantissa with a
// base-10 exponent in the upper six bits.
func HoldoffWord(seconds float64) uint16 {
	units := math.Round(seconds / 100e-12)
	if units <= 0 {
		return 0
	}
	var exp uint16
	for units > 0x3ff && exp < 0x3f {
		units = math.Round(units / 10)
		exp++
	}
	if units > 0x3ff {
		units = 0x3ff
	}
	return exp<<10 | uint16(units)
}

// WidthCounts converts a pulse width to 10ns counts.
func WidthCounts(seconds float64) uint32 {
	c := math.Round(seconds / 10e-9)
	if c <= 0 {
		return 0
	}
	if c > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(c)
}

func clampInt8(v float64) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}
