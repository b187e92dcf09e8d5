// internal/wire/codec.go
package wire

import (
	"encoding/binary"
	"fmt"
)

// Width is the payload size in bytes carried by a command.
// The device interprets the payload according to this width, so it MUST
// match the register contract. A mismatch is not detectable from the bytes.
type Width uint8

const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
)

// Valid reports whether w is one of the three supported widths.
func (w Width) Valid() bool {
	return w == Width8 || w == Width16 || w == Width32
}

// Max returns the largest payload representable at this width.
func (w Width) Max() uint32 {
	switch w {
	case Width8:
		return 0xff
	case Width16:
		return 0xffff
	default:
		return 0xffffffff
	}
}

// Command is one fixed-width register write.
type Command struct {
	Addr  uint32
	Width Width
	Value uint32
}

// Cmd8, Cmd16 and Cmd32 build commands whose width is fixed by the Go type.
func Cmd8(addr uint32, v uint8) Command   { return Command{Addr: addr, Width: Width8, Value: uint32(v)} }
func Cmd16(addr uint32, v uint16) Command { return Command{Addr: addr, Width: Width16, Value: uint32(v)} }
func Cmd32(addr uint32, v uint32) Command { return Command{Addr: addr, Width: Width32, Value: v} }

// Size returns the encoded length of the command.
func (c Command) Size() int {
	return commandHeaderSize + int(c.Width)
}

const commandHeaderSize = 5

// Encode returns the wire form of the command.
//
// Layout:
//
//	0–3  address (LE)
//	4    width
//	5+   payload, width bytes (LE)
func (c Command) Encode() []byte {
	return c.AppendEncode(make([]byte, 0, c.Size()))
}

// AppendEncode appends the wire form of the command to dst.
func (c Command) AppendEncode(dst []byte) []byte {
	var hdr [commandHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], c.Addr)
	hdr[4] = byte(c.Width)
	dst = append(dst, hdr[:]...)

	for i := 0; i < int(c.Width); i++ {
		dst = append(dst, byte(c.Value>>(8*i)))
	}
	return dst
}

// DecodeCommand parses a command previously produced by Encode.
// Trailing bytes beyond the declared width are rejected.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) < commandHeaderSize {
		return Command{}, fmt.Errorf("wire: command too short: got=%d want>=%d", len(b), commandHeaderSize)
	}

	c := Command{
		Addr:  binary.LittleEndian.Uint32(b[0:4]),
		Width: Width(b[4]),
	}
	if !c.Width.Valid() {
		return Command{}, fmt.Errorf("wire: invalid width %d", b[4])
	}
	if len(b) != c.Size() {
		return Command{}, fmt.Errorf("wire: command length mismatch: got=%d want=%d", len(b), c.Size())
	}

	for i := 0; i < int(c.Width); i++ {
		c.Value |= uint32(b[commandHeaderSize+i]) << (8 * i)
	}
	return c, nil
}

// ReplySize is the length of a standard command reply.
const ReplySize = 5

// Reply status bytes. Meaning is register-specific.
const (
	StatusNone    byte = 0
	StatusDone    byte = 'D'
	StatusError   byte = 'E'
	StatusG       byte = 'G'
	StatusSuccess byte = 'S'
	StatusV       byte = 'V'
)

// Reply is the 5-byte answer to most commands.
type Reply struct {
	Status byte
	Value  uint32
}

// DecodeReply parses a reply: status byte then LE u32.
func DecodeReply(b []byte) (Reply, error) {
	if len(b) < ReplySize {
		return Reply{}, fmt.Errorf("wire: reply too short: got=%d want=%d", len(b), ReplySize)
	}
	return Reply{
		Status: b[0],
		Value:  binary.LittleEndian.Uint32(b[1:5]),
	}, nil
}

// Encode returns the wire form of the reply.
func (r Reply) Encode() []byte {
	out := make([]byte, ReplySize)
	out[0] = r.Status
	binary.LittleEndian.PutUint32(out[1:5], r.Value)
	return out
}

func (r Reply) String() string {
	if r.Status >= 0x20 && r.Status < 0x7f {
		return fmt.Sprintf("%c/%d", r.Status, r.Value)
	}
	return fmt.Sprintf("0x%02x/%d", r.Status, r.Value)
}
