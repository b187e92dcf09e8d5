// internal/fpga/upload.go
//
// Package fpga uploads an FPGA bitstream to the VDS1022 in acknowledged
// frames. Nothing in the bridge calls it: a failed upload can leave the
// instrument unusable, so loading the FPGA is left to the vendor software.
package fpga

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vds-bridge/internal/transport"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

// frameHeaderSize is the little-endian frame index preceding each payload.
const frameHeaderSize = 4

// CodeFrameAck is the status code reported for a rejected frame.
const CodeFrameAck uint16 = 0x0007

// ErrNoFrameSize is returned when the device refuses the upload.
var ErrNoFrameSize = errors.New("fpga: device negotiated no usable frame size")

// FrameAckError is a frame reply other than 'S' with the frame index.
type FrameAckError struct {
	Index uint32
	Reply wire.Reply
}

func (e *FrameAckError) Error() string {
	return fmt.Sprintf("fpga: frame %d not acknowledged: reply=%s", e.Index, e.Reply)
}

func (e *FrameAckError) Code() uint16 { return CodeFrameAck }

// Progress is reported after each acknowledged frame.
type Progress struct {
	Frame  uint32
	Frames uint32
	Bytes  int
}

// Config holds upload settings.
type Config struct {
	Logger   zerolog.Logger
	Timeout  time.Duration
	Progress func(Progress)
}

// Option configures Upload.
type Option func(*Config)

// WithLogger sets the upload logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithTimeout bounds each write and each reply read.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithProgress sets a callback run after each acknowledged frame.
func WithProgress(fn func(Progress)) Option {
	return func(c *Config) { c.Progress = fn }
}

// Plan describes how an image is split into frames.
type Plan struct {
	FrameSize uint32
	Payload   uint32
	Frames    uint32
}

// PlanFrames splits length bytes into frames of frameSize bytes.
func PlanFrames(length int, frameSize uint32) (Plan, error) {
	if frameSize <= frameHeaderSize {
		return Plan{}, fmt.Errorf("%w: frame_size=%d", ErrNoFrameSize, frameSize)
	}
	payload := frameSize - frameHeaderSize
	frames := (uint32(length) + payload - 1) / payload
	return Plan{FrameSize: frameSize, Payload: payload, Frames: frames}, nil
}

// Upload sends image to the device. The caller must hold exclusive access
// to t for the whole call. Any failure aborts without sending further frames.
func Upload(t transport.Transport, image []byte, opts ...Option) error {
	cfg := Config{Logger: zerolog.Nop(), Timeout: time.Second}
	for _, o := range opts {
		o(&cfg)
	}
	if len(image) == 0 {
		return errors.New("fpga: empty image")
	}

	begin := wire.Cmd32(wire.RegLoadFPGA, uint32(len(image)))
	r, err := exchange(t, begin.Encode(), cfg.Timeout)
	if err != nil {
		return fmt.Errorf("fpga: begin load: %w", err)
	}

	plan, err := PlanFrames(len(image), r.Value)
	if err != nil {
		return err
	}
	cfg.Logger.Info().
		Int("bytes", len(image)).
		Uint32("frame_size", plan.FrameSize).
		Uint32("frames", plan.Frames).
		Msg("fpga: upload start")

	frame := make([]byte, plan.FrameSize)
	for i := uint32(0); i < plan.Frames; i++ {
		start := int(i * plan.Payload)
		end := start + int(plan.Payload)
		if end > len(image) {
			end = len(image)
		}

		binary.LittleEndian.PutUint32(frame, i)
		n := copy(frame[frameHeaderSize:], image[start:end])
		clear(frame[frameHeaderSize+n:])

		r, err := exchange(t, frame, cfg.Timeout)
		if err != nil {
			return fmt.Errorf("fpga: frame %d: %w", i, err)
		}
		if r.Status != wire.StatusSuccess || r.Value != i {
			return &FrameAckError{Index: i, Reply: r}
		}

		if cfg.Progress != nil {
			cfg.Progress(Progress{Frame: i + 1, Frames: plan.Frames, Bytes: end})
		}
	}

	cfg.Logger.Info().Uint32("frames", plan.Frames).Msg("fpga: upload done")
	return nil
}

func exchange(t transport.Transport, p []byte, timeout time.Duration) (wire.Reply, error) {
	if _, err := t.Write(p, timeout); err != nil {
		return wire.Reply{}, err
	}
	var buf [wire.ReplySize]byte
	n, err := t.Read(buf[:], timeout)
	if err != nil {
		return wire.Reply{}, err
	}
	return wire.DecodeReply(buf[:n])
}
