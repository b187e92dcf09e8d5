// internal/transport/transporttest/device.go
//
// Package transporttest provides a scripted VDS1022 that speaks the wire
// protocol over the transport.Transport interface.
package transporttest

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/vds-bridge/internal/acquire"
	"github.com/tamzrod/vds-bridge/internal/transport"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

// ErrInjected is returned by writes to the address configured in FailOn.
var ErrInjected = errors.New("transporttest: injected failure")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("transporttest: closed")

// Device is a fake VDS1022.
//
// Every write is answered the way the hardware does: a 5-byte reply for
// ordinary commands, the raw flash image for the flash read, and scripted
// payloads for data polls. A write issued while a reply is still unread,
// or two calls overlapping in time, are recorded as violations.
type Device struct {
	// Model is the identify reply value.
	Model uint32
	// Flash is returned for the flash read.
	Flash []byte
	// FPGALoaded is the readiness reply.
	FPGALoaded bool
	// FrameSize is the reply to the FPGA load request.
	FrameSize uint32
	// NackFrame, when >= 0, makes that upload frame reply with status 'E'.
	NackFrame int
	// FailOn makes writes to this address fail (0 disables).
	FailOn uint32
	// Delay is held inside every call to widen overlap windows.
	Delay time.Duration

	active     int32
	violations int32

	mu        sync.Mutex
	closed    bool
	cmds      []wire.Command
	regs      map[uint32]uint32
	pending   [][]byte
	data      [][]byte
	frames    [][]byte
	remaining int
	writes    int
}

// timeoutReply marks a pending read that times out.
var timeoutReply = []byte(nil)

// New returns a healthy VDS1022 with FPGA loaded and the given flash image.
func New(flashImage []byte) *Device {
	return &Device{
		Model:      wire.ModelVDS1022,
		Flash:      flashImage,
		FPGALoaded: true,
		NackFrame:  -1,
		regs:       make(map[uint32]uint32),
	}
}

var _ transport.Transport = (*Device)(nil)

func (d *Device) enter() {
	if atomic.AddInt32(&d.active, 1) > 1 {
		atomic.AddInt32(&d.violations, 1)
	}
	if d.Delay > 0 {
		time.Sleep(d.Delay)
	}
}

func (d *Device) leave() {
	atomic.AddInt32(&d.active, -1)
}

// Write accepts one command or, during an FPGA upload, one frame.
func (d *Device) Write(p []byte, _ time.Duration) (int, error) {
	d.enter()
	defer d.leave()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}
	d.writes++
	if len(d.pending) > 0 {
		atomic.AddInt32(&d.violations, 1)
		d.pending = nil
	}

	if d.remaining > 0 {
		d.acceptFrame(p)
		return len(p), nil
	}

	cmd, err := wire.DecodeCommand(p)
	if err != nil {
		return 0, fmt.Errorf("transporttest: %w", err)
	}
	if d.FailOn != 0 && cmd.Addr == d.FailOn {
		return 0, ErrInjected
	}

	d.cmds = append(d.cmds, cmd)
	if d.regs == nil {
		d.regs = make(map[uint32]uint32)
	}
	d.regs[cmd.Addr] = cmd.Value

	switch cmd.Addr {
	case wire.RegMachine:
		d.reply(wire.StatusSuccess, d.Model)
	case wire.RegReadFlash:
		d.pending = append(d.pending, append([]byte(nil), d.Flash...))
	case wire.RegQueryFPGA:
		var v uint32
		if d.FPGALoaded {
			v = 1
		}
		d.reply(wire.StatusSuccess, v)
	case wire.RegLoadFPGA:
		d.reply(wire.StatusSuccess, d.FrameSize)
		if d.FrameSize > 4 {
			payload := d.FrameSize - 4
			d.remaining = int((cmd.Value + payload - 1) / payload)
		}
	case wire.RegGetData:
		if len(d.data) == 0 {
			d.pending = append(d.pending, NotReadyReply())
			break
		}
		next := d.data[0]
		d.data = d.data[1:]
		d.pending = append(d.pending, next)
	default:
		d.reply(wire.StatusSuccess, cmd.Value)
	}

	return len(p), nil
}

func (d *Device) acceptFrame(p []byte) {
	d.frames = append(d.frames, append([]byte(nil), p...))
	d.remaining--

	var idx uint32
	if len(p) >= 4 {
		idx = uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
	}
	status := byte(wire.StatusSuccess)
	if d.NackFrame >= 0 && int(idx) == d.NackFrame {
		status = wire.StatusError
		d.remaining = 0
	}
	d.reply(status, idx)
}

func (d *Device) reply(status byte, value uint32) {
	d.pending = append(d.pending, wire.Reply{Status: status, Value: value}.Encode())
}

// Read returns the oldest unread reply, or times out when none is queued.
func (d *Device) Read(p []byte, _ time.Duration) (int, error) {
	d.enter()
	defer d.leave()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}
	if len(d.pending) == 0 {
		return 0, fmt.Errorf("transporttest: nothing queued: %w", transport.ErrTimeout)
	}
	next := d.pending[0]
	d.pending = d.pending[1:]
	if next == nil {
		return 0, fmt.Errorf("transporttest: scripted: %w", transport.ErrTimeout)
	}
	return copy(p, next), nil
}

// Close makes further calls fail with ErrClosed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// PushData queues raw replies for upcoming data polls.
// A nil entry makes that poll time out.
func (d *Device) PushData(replies ...[]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range replies {
		if r == nil {
			d.data = append(d.data, timeoutReply)
			continue
		}
		d.data = append(d.data, append([]byte(nil), r...))
	}
}

// SetFailOn changes the failing address while the device is in use.
func (d *Device) SetFailOn(addr uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FailOn = addr
}

// Commands returns every decoded command in arrival order.
func (d *Device) Commands() []wire.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]wire.Command(nil), d.cmds...)
}

// CommandsAfter returns the commands received after the first n.
func (d *Device) CommandsAfter(n int) []wire.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n >= len(d.cmds) {
		return nil
	}
	return append([]wire.Command(nil), d.cmds[n:]...)
}

// Register returns the last value written to addr.
func (d *Device) Register(addr uint32) (uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.regs[addr]
	return v, ok
}

// Frames returns the raw FPGA upload frames received.
func (d *Device) Frames() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.frames...)
}

// Writes returns the number of write calls accepted.
func (d *Device) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// Violations counts overlapping calls and writes issued over an unread reply.
func (d *Device) Violations() int {
	return int(atomic.LoadInt32(&d.violations))
}

// NotReadyReply is the 5-byte reply sent while no waveform is available.
func NotReadyReply() []byte {
	return wire.Reply{Status: wire.StatusError}.Encode()
}

// DataReply builds a data payload holding the given channels in order.
func DataReply(channels map[uint8]*acquire.ChannelData) []byte {
	out := make([]byte, 0, acquire.ReadBufferSize)
	for ch := uint8(0); ch < acquire.Channels; ch++ {
		d, ok := channels[ch]
		if !ok {
			continue
		}
		block := make([]byte, acquire.ChannelBlockSize)
		out = append(out, acquire.EncodeBlock(block, ch, d)...)
	}
	return out
}
