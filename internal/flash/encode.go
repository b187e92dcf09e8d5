// internal/flash/encode.go
package flash

import (
	"encoding/binary"
	"fmt"
)

// Encode builds a flash image from info. Header 0 encodes as 0x55AA.
// Legacy is derived from DeviceVersion and ignored here.
func Encode(info Info) ([]byte, error) {
	need := offDeviceVersion + len(info.DeviceVersion) + 1 + len(info.Serial) + 1 + localeBlockSize + 2
	if need > Size {
		return nil, fmt.Errorf("flash: strings too long: need=%d max=%d", need, Size)
	}

	blob := make([]byte, Size)

	hdr := info.Header
	if hdr == 0 {
		hdr = 0x55AA
	}
	binary.LittleEndian.PutUint16(blob[offHeader:], hdr)

	ver := info.FormatVersion
	if ver == 0 {
		ver = FormatVersion
	}
	blob[offVersion] = ver

	for ch := 0; ch < Channels; ch++ {
		for r := 0; r < Ranges; r++ {
			rel := ch*channelStride + r*rangeStride
			binary.LittleEndian.PutUint16(blob[offGain+rel:], info.Calibration[ch].Gain[r])
			binary.LittleEndian.PutUint16(blob[offAmplitude+rel:], info.Calibration[ch].Amplitude[r])
			binary.LittleEndian.PutUint16(blob[offCompensation+rel:], info.Calibration[ch].Compensation[r])
		}
	}

	if info.OEM {
		blob[offOEM] = 1
	}

	off := offDeviceVersion
	off += copy(blob[off:], info.DeviceVersion) + 1
	off += copy(blob[off:], info.Serial) + 1

	for i, on := range info.Locales {
		if on {
			blob[off+i] = 1
		}
	}
	off += localeBlockSize

	binary.LittleEndian.PutUint16(blob[off:], info.PhaseFine)

	return blob, nil
}
