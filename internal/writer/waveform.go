// internal/writer/waveform.go
package writer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tamzrod/vds-bridge/internal/acquire"
	"github.com/tamzrod/vds-bridge/internal/poller"
)

// Waveform record (LOCKED).
//
// One record per present channel per Ready poll, in channel order.
// The layout is the device channel block:
//
//	0      channel index (0 = CH1, 1 = CH2)
//	1-4    time_sum   (LE u32)
//	5-8    period_num (LE u32)
//	9-10   cursor     (LE u16)
//	11-110 trigger buffer
//	111-   5100 samples (50 pre, 5000, 50 post)
const RecordSize = acquire.ChannelBlockSize

// WaveformWriter streams Ready frames as fixed-size records.
// It is used from a single goroutine.
type WaveformWriter struct {
	out io.Writer
	buf [RecordSize]byte
}

var _ Writer = (*WaveformWriter)(nil)

// NewWaveformWriter writes records to out.
func NewWaveformWriter(out io.Writer) *WaveformWriter {
	return &WaveformWriter{out: out}
}

// Write emits one record per present channel. Non-Ready results are ignored.
func (w *WaveformWriter) Write(res poller.PollResult) error {
	if res.Err != nil || res.Outcome != acquire.Ready || res.Frame == nil {
		return nil
	}

	var errs []string
	for ch, present := range res.Frame.Present {
		if !present {
			continue
		}
		rec := acquire.EncodeBlock(w.buf[:], uint8(ch), &res.Frame.Channels[ch])
		if err := writeAll(w.out, rec); err != nil {
			errs = append(errs, fmt.Sprintf("ch=%d err=%v", ch, err))
		}
	}

	if len(errs) > 0 {
		return errors.New("writer: waveform: " + strings.Join(errs, " | "))
	}
	return nil
}

// Records returns how many records a result produces.
func Records(res poller.PollResult) int {
	if res.Err != nil || res.Outcome != acquire.Ready || res.Frame == nil {
		return 0
	}
	n := 0
	for _, p := range res.Frame.Present {
		if p {
			n++
		}
	}
	return n
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
