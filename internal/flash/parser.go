// internal/flash/parser.go
package flash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrShortBlob        = errors.New("flash: image too short")
	ErrBadHeader        = errors.New("flash: invalid header")
	ErrBadVersion       = errors.New("flash: unsupported format version")
	ErrBadVersionString = errors.New("flash: bad firmware version string")
)

// LocaleCount is the number of named localisation flags.
const LocaleCount = 12

// Locales names the localisation flags in flash order.
var Locales = [LocaleCount]string{
	"zh_CN", "zh_TW", "en", "fr", "es", "ru", "de", "pl", "pt_BR", "it", "ja", "ko_KR",
}

// Info is the decoded flash image. Read-only after Parse.
type Info struct {
	Header        uint16
	FormatVersion byte
	Calibration   Table
	OEM           bool
	DeviceVersion string
	Serial        string
	Locales       [LocaleCount]bool
	PhaseFine     uint16

	// Legacy is true for the older board generation.
	Legacy bool
}

// Parse decodes a flash image.
// Header and format version are validated before any other field is read.
func Parse(blob []byte) (*Info, error) {
	if len(blob) < Size {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrShortBlob, len(blob), Size)
	}
	blob = blob[:Size]

	if !validHeader(blob[offHeader], blob[offHeader+1]) {
		return nil, fmt.Errorf("%w: 0x%02x%02x", ErrBadHeader, blob[offHeader], blob[offHeader+1])
	}
	if blob[offVersion] != FormatVersion {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrBadVersion, blob[offVersion], FormatVersion)
	}

	info := &Info{
		Header:        binary.LittleEndian.Uint16(blob[offHeader:]),
		FormatVersion: blob[offVersion],
		Calibration:   parseCalibration(blob),
		OEM:           blob[offOEM] != 0,
	}

	ver, next, ok := scanCString(blob, offDeviceVersion)
	if !ok {
		return nil, fmt.Errorf("%w: missing terminator", ErrBadVersionString)
	}
	if len(ver) <= minVersionLen {
		return nil, fmt.Errorf("%w: %q", ErrBadVersionString, ver)
	}
	info.DeviceVersion = ver
	info.Legacy = IsLegacy(ver)

	parseTail(blob, next, info)

	return info, nil
}

// parseTail reads serial, locales and phase fine. These fields are
// optional: an erased or malformed tail leaves them at zero values.
func parseTail(blob []byte, off int, info *Info) {
	serial, next, ok := scanCString(blob, off)
	if !ok {
		return
	}
	info.Serial = serial

	if next+localeBlockSize+2 > len(blob) {
		return
	}
	for i := 0; i < LocaleCount; i++ {
		info.Locales[i] = blob[next+i] != 0
	}
	next += localeBlockSize

	info.PhaseFine = binary.LittleEndian.Uint16(blob[next:])
}

// IsLegacy derives the board generation from the device version string.
//
// A board is legacy when the digit at index 1 lies outside (2,9] and the
// version does not start with "V2.7.0".
// NOTE: how the prefix test combines with the digit test is unconfirmed on
// hardware; TestIsLegacy pins the current behavior.
func IsLegacy(ver string) bool {
	if len(ver) < 2 {
		return true
	}
	digit := int(ver[1]) - '0'
	current := digit > 2 && digit <= 9
	return !current && !strings.HasPrefix(ver, legacyExemptPrefix)
}

func validHeader(b0, b1 byte) bool {
	for _, h := range validHeaders {
		if b0 == h[0] && b1 == h[1] {
			return true
		}
	}
	return false
}

func parseCalibration(blob []byte) Table {
	var t Table
	for ch := 0; ch < Channels; ch++ {
		for r := 0; r < Ranges; r++ {
			rel := ch*channelStride + r*rangeStride
			t[ch].Gain[r] = u16(blob, offGain+rel)
			t[ch].Amplitude[r] = u16(blob, offAmplitude+rel)
			t[ch].Compensation[r] = u16(blob, offCompensation+rel)
		}
	}
	return t
}

// u16 reads low byte at off and high byte at off+1.
func u16(b []byte, off int) uint16 {
	return uint16(b[off]) | uint16(b[off+1])<<8
}

// scanCString collects bytes from off up to the first NUL.
// The NUL is consumed but not returned. ok is false when no NUL
// exists before the end of b.
func scanCString(b []byte, off int) (s string, next int, ok bool) {
	if off >= len(b) {
		return "", off, false
	}
	var sb strings.Builder
	for i := off; i < len(b); i++ {
		if b[i] == 0 {
			return sb.String(), i + 1, true
		}
		sb.WriteByte(b[i])
	}
	return "", len(b), false
}
