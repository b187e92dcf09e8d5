// internal/writer/waveform_test.go
package writer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tamzrod/vds-bridge/internal/acquire"
	"github.com/tamzrod/vds-bridge/internal/poller"
)

func readyResult(present ...int) poller.PollResult {
	f := &acquire.Frame{}
	for _, ch := range present {
		f.Present[ch] = true
		f.Channels[ch].TimeSum = uint32(1000 + ch)
		f.Channels[ch].PeriodNum = 7
		f.Channels[ch].Cursor = uint16(ch + 1)
		f.Channels[ch].Samples[acquire.PreSamples] = byte(0x10 + ch)
	}
	return poller.PollResult{Outcome: acquire.Ready, Frame: f}
}

func TestWaveformWriterEmitsOneRecordPerChannel(t *testing.T) {
	var out bytes.Buffer
	w := NewWaveformWriter(&out)

	res := readyResult(0, 1)
	assert.NilError(t, w.Write(res))
	assert.Equal(t, Records(res), 2)

	b := out.Bytes()
	assert.Equal(t, len(b), 2*RecordSize)

	for ch := 0; ch < 2; ch++ {
		rec := b[ch*RecordSize : (ch+1)*RecordSize]
		assert.Equal(t, rec[0], byte(ch))
		assert.Equal(t, binary.LittleEndian.Uint32(rec[1:]), uint32(1000+ch))
		assert.Equal(t, binary.LittleEndian.Uint32(rec[5:]), uint32(7))
		assert.Equal(t, binary.LittleEndian.Uint16(rec[9:]), uint16(ch+1))
		assert.Equal(t, rec[111+acquire.PreSamples], byte(0x10+ch))
	}
}

func TestWaveformWriterSkipsAbsentChannel(t *testing.T) {
	var out bytes.Buffer
	w := NewWaveformWriter(&out)

	assert.NilError(t, w.Write(readyResult(1)))
	assert.Equal(t, out.Len(), RecordSize)
	assert.Equal(t, out.Bytes()[0], byte(1))
}

func TestWaveformWriterIgnoresNonReady(t *testing.T) {
	var out bytes.Buffer
	w := NewWaveformWriter(&out)

	for _, res := range []poller.PollResult{
		{Outcome: acquire.NotReady},
		{Outcome: acquire.TimedOut},
		{Outcome: acquire.TransportError, Err: errors.New("boom")},
		{Outcome: acquire.Ready},
	} {
		assert.NilError(t, w.Write(res))
		assert.Equal(t, Records(res), 0)
	}
	assert.Equal(t, out.Len(), 0)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWaveformWriterReportsSinkError(t *testing.T) {
	w := NewWaveformWriter(failingWriter{})
	err := w.Write(readyResult(0))
	assert.ErrorContains(t, err, "ch=0")
}
