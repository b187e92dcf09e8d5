// internal/flash/calibration.go
package flash

import "fmt"

// Channels is the number of analog channels with calibration data.
const Channels = 2

// Ranges is the number of calibrated voltage ranges per channel.
const Ranges = 10

// Range indexes a calibrated vertical range (volts per division).
type Range int

const (
	Range5mV Range = iota
	Range10mV
	Range20mV
	Range50mV
	Range100mV
	Range200mV
	Range500mV
	Range1V
	Range2V
	Range5V
)

var rangeVoltsPerDiv = [Ranges]float64{
	0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5,
}

// VoltsPerDiv returns the vertical scale of the range.
func (r Range) VoltsPerDiv() float64 {
	if r < 0 || int(r) >= Ranges {
		return 0
	}
	return rangeVoltsPerDiv[r]
}

func (r Range) String() string {
	v := r.VoltsPerDiv()
	switch {
	case v == 0:
		return fmt.Sprintf("Range(%d)", int(r))
	case v < 1:
		return fmt.Sprintf("%gmV", v*1000)
	default:
		return fmt.Sprintf("%gV", v)
	}
}

// RangeFor returns the smallest range whose per-division scale covers
// voltsPerDiv. Requests above the largest range clamp to Range5V.
func RangeFor(voltsPerDiv float64) Range {
	for i, v := range rangeVoltsPerDiv {
		if voltsPerDiv <= v {
			return Range(i)
		}
	}
	return Range5V
}

// Calibration holds one channel's calibration values, indexed by Range.
type Calibration struct {
	Gain         [Ranges]uint16 `json:"gain"`
	Amplitude    [Ranges]uint16 `json:"amplitude"`
	Compensation [Ranges]uint16 `json:"compensation"`
}

// Table holds calibration for both channels.
type Table [Channels]Calibration
