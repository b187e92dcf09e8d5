// internal/trigger/trigger.go
package trigger

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned for trigger configurations the device cannot express.
var ErrInvalid = errors.New("trigger: invalid configuration")

// Kind selects the trigger source arrangement.
type Kind int

const (
	SingleOnA Kind = iota
	SingleOnB
	Alternate
	External
)

func (k Kind) String() string {
	switch k {
	case SingleOnA:
		return "single-a"
	case SingleOnB:
		return "single-b"
	case Alternate:
		return "alternate"
	case External:
		return "external"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Source indexes the per-source configurations.
type Source int

const (
	SourceA Source = iota
	SourceB
	SourceExt

	sourceCount
)

// Mode is the trigger type of one source.
type Mode int

const (
	Edge Mode = iota
	Pulse
	Slope
)

func (m Mode) String() string {
	switch m {
	case Edge:
		return "edge"
	case Pulse:
		return "pulse"
	case Slope:
		return "slope"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Condition is the edge direction (Edge mode) or the timing relation
// (Pulse and Slope modes).
type Condition int

const (
	Rise Condition = iota
	Fall
	RiseGreater
	RiseEqual
	RiseLess
	FallGreater
	FallEqual
	FallLess
)

// timing reports whether c is one of the six width-relative conditions.
func (c Condition) timing() bool {
	return c >= RiseGreater && c <= FallLess
}

// timingIndex is the 0..5 code used in bits 5-7.
func (c Condition) timingIndex() uint16 {
	return uint16(c - RiseGreater)
}

// Sweep is the re-arm policy.
type Sweep int

const (
	Auto Sweep = iota
	Normal
	Once
)

// ChannelConfig is the trigger setup of one source.
//
// Level and LevelHigh are normalized to [0,1] of the vertical span.
// Width and Holdoff are in seconds.
type ChannelConfig struct {
	Mode      Mode
	Condition Condition
	Sweep     Sweep
	Level     float64
	LevelHigh float64
	Width     float64
	Holdoff   float64
}

// Config is the complete trigger description.
type Config struct {
	Kind    Kind
	Sources [sourceCount]ChannelConfig
}

// Primary returns the source that drives a non-alternate trigger.
func (c Config) Primary() Source {
	switch c.Kind {
	case SingleOnB:
		return SourceB
	case External:
		return SourceExt
	default:
		return SourceA
	}
}

// Validate rejects combinations the device cannot express.
func (c Config) Validate() error {
	switch c.Kind {
	case SingleOnA, SingleOnB, External:
		return c.Sources[c.Primary()].validate(c.Kind)
	case Alternate:
		if err := c.Sources[SourceA].validate(c.Kind); err != nil {
			return err
		}
		return c.Sources[SourceB].validate(c.Kind)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalid, int(c.Kind))
	}
}

func (cc ChannelConfig) validate(k Kind) error {
	switch cc.Mode {
	case Edge:
		if cc.Condition != Rise && cc.Condition != Fall {
			return fmt.Errorf("%w: edge mode needs rise or fall, got condition %d", ErrInvalid, int(cc.Condition))
		}
	case Pulse, Slope:
		if k == External {
			return fmt.Errorf("%w: external source supports edge mode only, got %s", ErrInvalid, cc.Mode)
		}
		if !cc.Condition.timing() {
			return fmt.Errorf("%w: %s mode needs a timing condition, got %d", ErrInvalid, cc.Mode, int(cc.Condition))
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalid, int(cc.Mode))
	}

	switch cc.Sweep {
	case Auto, Normal, Once:
	default:
		return fmt.Errorf("%w: unknown sweep %d", ErrInvalid, int(cc.Sweep))
	}

	if cc.Level < 0 || cc.Level > 1 {
		return fmt.Errorf("%w: level %g outside [0,1]", ErrInvalid, cc.Level)
	}
	if cc.Mode == Slope && (cc.LevelHigh < 0 || cc.LevelHigh > 1 || cc.LevelHigh < cc.Level) {
		return fmt.Errorf("%w: slope high level %g invalid for low level %g", ErrInvalid, cc.LevelHigh, cc.Level)
	}
	if cc.Width < 0 || cc.Holdoff < 0 {
		return fmt.Errorf("%w: negative width or holdoff", ErrInvalid)
	}
	return nil
}
