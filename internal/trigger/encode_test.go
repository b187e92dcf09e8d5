// internal/trigger/encode_test.go
package trigger

import (
	"testing"

	"gotest.tools/v3/assert"
)

func edgeA(cond Condition, sweep Sweep) Config {
	var c Config
	c.Kind = SingleOnA
	c.Sources[SourceA] = ChannelConfig{Mode: Edge, Condition: cond, Sweep: sweep, Level: 0.5}
	return c
}

func encodeOne(t *testing.T, c Config) uint16 {
	t.Helper()
	words, err := Encode(c)
	assert.NilError(t, err)
	assert.Equal(t, len(words), 1)
	return words[0]
}

func TestEncode_SingleEdgeRiseAuto(t *testing.T) {
	w := encodeOne(t, edgeA(Rise, Auto))

	assert.Equal(t, w&BitExternal, uint16(0))
	assert.Equal(t, w&BitAlternate, uint16(0))
	assert.Equal(t, w&BitFalling, uint16(0))
	assert.Equal(t, w&sweepMask, uint16(0))
	assert.Equal(t, w, uint16(0))
}

func TestEncode_FallFlipsOnlyBit12(t *testing.T) {
	rise := encodeOne(t, edgeA(Rise, Auto))
	fall := encodeOne(t, edgeA(Fall, Auto))
	assert.Equal(t, rise^fall, uint16(1<<12))
}

func TestEncode_SweepBits(t *testing.T) {
	assert.Equal(t, encodeOne(t, edgeA(Rise, Normal)), uint16(1<<10))
	assert.Equal(t, encodeOne(t, edgeA(Rise, Once)), uint16(2<<10))
}

func TestEncode_ChannelBAndExternal(t *testing.T) {
	c := edgeA(Fall, Auto)
	c.Kind = SingleOnB
	c.Sources[SourceB] = c.Sources[SourceA]
	assert.Equal(t, encodeOne(t, c), BitChannelB|BitFalling)

	var ext Config
	ext.Kind = External
	ext.Sources[SourceExt] = ChannelConfig{Mode: Edge, Condition: Rise, Sweep: Normal}
	assert.Equal(t, encodeOne(t, ext), BitExternal|uint16(1<<10))
}

func TestEncode_PulseCondition(t *testing.T) {
	var c Config
	c.Kind = SingleOnA
	c.Sources[SourceA] = ChannelConfig{Mode: Pulse, Condition: FallEqual, Sweep: Normal, Width: 1e-6}

	w := encodeOne(t, c)
	assert.Equal(t, (w&timingMask)>>timingShift, uint16(4))
	assert.Equal(t, w&BitPulse, BitPulse)
	assert.Equal(t, w&sweepMask, uint16(1<<10))
	assert.Equal(t, w&BitFalling, uint16(0))
}

func TestEncode_AlternateProducesTwoWords(t *testing.T) {
	var c Config
	c.Kind = Alternate
	c.Sources[SourceA] = ChannelConfig{Mode: Edge, Condition: Rise}
	c.Sources[SourceB] = ChannelConfig{Mode: Slope, Condition: RiseLess, Level: 0.2, LevelHigh: 0.8}

	words, err := Encode(c)
	assert.NilError(t, err)
	assert.Equal(t, len(words), 2)

	assert.Equal(t, words[0], BitAlternate)
	assert.Equal(t, words[1], BitAlternate|BitAltChannelB|BitAltSlope|uint16(2<<timingShift))
}

func TestEncode_AlternateSharesSingleSourceFields(t *testing.T) {
	var c Config
	c.Kind = Alternate
	c.Sources[SourceA] = ChannelConfig{Mode: Edge, Condition: Fall, Sweep: Normal}
	c.Sources[SourceB] = ChannelConfig{Mode: Slope, Condition: FallLess, Level: 0.2, LevelHigh: 0.8}

	words, err := Encode(c)
	assert.NilError(t, err)

	// falling edge is bit 12 as in single-source words; sweep is not sent
	assert.Equal(t, words[0], BitAlternate|BitFalling)

	// slope in bit 13, timing index 5 (Fall<) in bits 5-7, coupling bit 9 clear
	assert.Equal(t, words[1], BitAlternate|BitAltChannelB|BitAltSlope|uint16(5<<timingShift))
	assert.Equal(t, words[1]&BitACCoupling, uint16(0))

	c.Sources[SourceB] = ChannelConfig{Mode: Pulse, Condition: RiseEqual}
	words, err = Encode(c)
	assert.NilError(t, err)
	assert.Equal(t, words[1], BitAlternate|BitAltChannelB|BitAltPulse|uint16(1<<timingShift))
}

func TestEncode_Rejects(t *testing.T) {
	t.Run("external slope", func(t *testing.T) {
		var c Config
		c.Kind = External
		c.Sources[SourceExt] = ChannelConfig{Mode: Slope, Condition: RiseGreater, LevelHigh: 1}
		_, err := Encode(c)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("edge with timing condition", func(t *testing.T) {
		_, err := Encode(edgeA(RiseEqual, Auto))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("pulse with plain edge", func(t *testing.T) {
		var c Config
		c.Sources[SourceA] = ChannelConfig{Mode: Pulse, Condition: Rise}
		_, err := Encode(c)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("level out of range", func(t *testing.T) {
		c := edgeA(Rise, Auto)
		c.Sources[SourceA].Level = 1.5
		_, err := Encode(c)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("slope high below low", func(t *testing.T) {
		var c Config
		c.Sources[SourceA] = ChannelConfig{Mode: Slope, Condition: RiseGreater, Level: 0.6, LevelHigh: 0.4}
		_, err := Encode(c)
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestEdgeLevelWord(t *testing.T) {
	// level 0.508 -> 2 counts -> window [-3, 7], the power-on default.
	assert.Equal(t, EdgeLevelWord(127.0/250.0), uint16(0xfd07))
	assert.Equal(t, EdgeLevelWord(0.5), uint16(0xfb05))
	assert.Equal(t, LevelCounts(0), int8(-125))
	assert.Equal(t, LevelCounts(1), int8(125))
}

func TestHoldoffWord(t *testing.T) {
	assert.Equal(t, HoldoffWord(0), uint16(0))
	assert.Equal(t, HoldoffWord(100e-9), uint16(1000))
	// 1us = 10000 units -> 1000 * 10^1
	assert.Equal(t, HoldoffWord(1e-6), uint16(1<<10|1000))
}

func TestWidthCounts(t *testing.T) {
	assert.Equal(t, WidthCounts(1e-6), uint32(100))
	assert.Equal(t, WidthCounts(-1), uint32(0))
}
