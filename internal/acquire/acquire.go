// internal/acquire/acquire.go
package acquire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/tamzrod/vds-bridge/internal/transport"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

// Channel block layout.
// These values define the device protocol and MUST NOT be configurable.
//
//	Offset  Size  Field
//	0       1     channel (CH1=0x00 CH2=0x01)
//	1       4     time_sum (frequency meter)
//	5       4     period_num (frequency meter)
//	9       2     cursor (samples counted from the right)
//	11      100   ADC trigger buffer
//	111     5100  ADC buffer (50 pre + 5000 samples + 50 post)
const (
	ChannelBlockSize  = 5211
	TriggerBufferSize = 100
	SampleBufferSize  = 5100

	PreSamples      = 50
	AcquiredSamples = 5000
	PostSamples     = 50

	// NotReadySize is the length of the short reply sent while no data is available.
	NotReadySize = 5

	// Channels is the maximum number of channel blocks in one reply.
	Channels = 2

	// ReadBufferSize holds a full two-channel reply.
	ReadBufferSize = ChannelBlockSize * Channels

	offChannel   = 0
	offTimeSum   = 1
	offPeriodNum = 5
	offCursor    = 9
	offTrigger   = 11
	offSamples   = 111
)

// ChannelData is one channel's acquisition.
type ChannelData struct {
	TimeSum       uint32
	PeriodNum     uint32
	Cursor        uint16
	TriggerBuffer [TriggerBufferSize]byte
	Samples       [SampleBufferSize]byte
}

// Acquired returns the 5000 samples between the pre and post guard bands.
func (c *ChannelData) Acquired() []byte {
	return c.Samples[PreSamples : PreSamples+AcquiredSamples]
}

// Frame is a caller-owned, reusable decode target.
type Frame struct {
	Channels [Channels]ChannelData
	Present  [Channels]bool
}

// Outcome classifies one poll.
type Outcome int

const (
	Ready Outcome = iota
	NotReady
	TimedOut
	TransportError
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case NotReady:
		return "not-ready"
	case TimedOut:
		return "timed-out"
	case TransportError:
		return "transport-error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Poll requests waveform data and decodes the reply into f.
// buf must hold at least ReadBufferSize bytes; it is reused across polls.
// Only TransportError carries a non-nil error. Access to t must be
// serialized by the caller for the whole call.
func Poll(t transport.Transport, timeout time.Duration, buf []byte, f *Frame) (Outcome, error) {
	if len(buf) < ReadBufferSize {
		return TransportError, fmt.Errorf("acquire: read buffer too small: got=%d want=%d", len(buf), ReadBufferSize)
	}

	var req [16]byte
	cmd := wire.Cmd16(wire.RegGetData, wire.DataChannelMask).AppendEncode(req[:0])
	if _, err := t.Write(cmd, timeout); err != nil {
		if transport.IsTimeout(err) {
			return TimedOut, nil
		}
		return TransportError, fmt.Errorf("acquire: request: %w", err)
	}

	n, err := t.Read(buf[:ReadBufferSize], timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return TimedOut, nil
		}
		return TransportError, fmt.Errorf("acquire: read: %w", err)
	}

	return Decode(buf[:n], f)
}

// Decode classifies a raw data reply and fills f for each channel block present.
// It never reads past len(raw).
func Decode(raw []byte, f *Frame) (Outcome, error) {
	f.Present = [Channels]bool{}

	switch {
	case len(raw) == NotReadySize:
		return NotReady, nil
	case len(raw) < ChannelBlockSize:
		return TransportError, fmt.Errorf("acquire: truncated reply: got=%d want>=%d", len(raw), ChannelBlockSize)
	}

	for off := 0; off+ChannelBlockSize <= len(raw); off += ChannelBlockSize {
		block := raw[off : off+ChannelBlockSize]
		ch := int(block[offChannel])
		if ch >= Channels {
			return TransportError, fmt.Errorf("acquire: invalid channel id %d at offset %d", ch, off)
		}

		d := &f.Channels[ch]
		d.TimeSum = binary.LittleEndian.Uint32(block[offTimeSum:])
		d.PeriodNum = binary.LittleEndian.Uint32(block[offPeriodNum:])
		d.Cursor = binary.LittleEndian.Uint16(block[offCursor:])
		copy(d.TriggerBuffer[:], block[offTrigger:offTrigger+TriggerBufferSize])
		copy(d.Samples[:], block[offSamples:offSamples+SampleBufferSize])
		f.Present[ch] = true
	}

	return Ready, nil
}

// EncodeBlock writes one channel block in device layout into dst, which
// must hold ChannelBlockSize bytes. It returns dst[:ChannelBlockSize].
func EncodeBlock(dst []byte, ch uint8, d *ChannelData) []byte {
	dst = dst[:ChannelBlockSize]
	dst[offChannel] = ch
	binary.LittleEndian.PutUint32(dst[offTimeSum:], d.TimeSum)
	binary.LittleEndian.PutUint32(dst[offPeriodNum:], d.PeriodNum)
	binary.LittleEndian.PutUint16(dst[offCursor:], d.Cursor)
	copy(dst[offTrigger:], d.TriggerBuffer[:])
	copy(dst[offSamples:], d.Samples[:])
	return dst
}
