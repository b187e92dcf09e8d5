// internal/flash/layout.go
package flash

// Flash image layout constants.
// These values define the device's flash format and MUST NOT be configurable.
//
//	Offset  Size        Field
//	0       uint16      header 0x55AA or 0xAA55
//	2       byte        format version (2)
//	6       uint16[10]  CH1 gain
//	26      uint16[10]  CH2 gain
//	46      uint16[10]  CH1 amplitude
//	66      uint16[10]  CH2 amplitude
//	86      uint16[10]  CH1 compensation
//	106     uint16[10]  CH2 compensation
//	206     byte        OEM flag
//	207     char*       device version, NUL terminated
//	        char*       device serial, NUL terminated
//	        byte[100]   localisation flags
//	        uint16      phase fine

// Size is the exact length of the flash image.
const Size = 2002

const (
	offHeader  = 0
	offVersion = 2

	offGain         = 6
	offAmplitude    = 46
	offCompensation = 86

	// channelStride is the distance between the CH1 and CH2 tables of one kind.
	channelStride = 20

	// rangeStride is the size of one u16 entry.
	rangeStride = 2

	offOEM           = 206
	offDeviceVersion = 207

	localeBlockSize = 100
)

// FormatVersion is the only supported flash format.
const FormatVersion = 2

// Header byte pairs accepted at offset 0.
var validHeaders = [][2]byte{
	{0xAA, 0x55},
	{0x55, 0xAA},
}

// minVersionLen is the shortest device version accepted (exclusive).
const minVersionLen = 3

// legacyExemptPrefix marks a firmware that is treated as a current board
// regardless of its minor digit.
const legacyExemptPrefix = "V2.7.0"
