// internal/scope/trigger.go
package scope

import (
	"fmt"
	"math"

	"github.com/tamzrod/vds-bridge/internal/trigger"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

// Multi-purpose I/O selector values.
const (
	multiTriggerOut uint8 = 0
	multiTriggerIn  uint8 = 2
)

var (
	edgeLevelReg   = [2]uint32{wire.RegEdgeLevelCH1, wire.RegEdgeLevelCH2}
	slopeLevelReg  = [2]uint32{wire.RegSlopeThresholdCH1, wire.RegSlopeThresholdCH2}
	holdoffReg     = [2]uint32{wire.RegHoldoffCH1, wire.RegHoldoffCH2}
	condGLReg      = [2]uint32{wire.RegCondGreaterLessCH1, wire.RegCondGreaterLessCH2}
	condHLReg      = [2]uint32{wire.RegCondHighLowCH1, wire.RegCondHighLowCH2}
	condEqualHiReg = [2]uint32{wire.RegCondEqualHighCH1, wire.RegCondEqualHighCH2}
	condEqualLoReg = [2]uint32{wire.RegCondEqualLowCH1, wire.RegCondEqualLowCH2}
)

// equalTolerancePct is the +/- window used for the "equal" width conditions.
const equalTolerancePct = 5

// SetTrigger validates cfg and pushes the trigger registers.
// An invalid config is rejected before anything is written.
func (s *Session) SetTrigger(cfg trigger.Config) error {
	words, err := trigger.Encode(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigRejected, err)
	}
	if err := s.requireConfigured(); err != nil {
		return err
	}

	s.mu.Lock()
	s.trig = cfg
	legacy := s.info.Legacy
	s.mu.Unlock()

	return s.run(TriggerCommands(cfg, words, legacy))
}

// Trigger returns the last trigger config pushed.
func (s *Session) Trigger() trigger.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trig
}

// TriggerCommands lists the register writes for an encoded trigger:
// the I/O selector, the trigger word(s), then per-channel levels,
// holdoff and width conditions. Width registers differ by board generation.
func TriggerCommands(cfg trigger.Config, words []uint16, legacy bool) []wire.Command {
	multi := multiTriggerOut
	if cfg.Kind == trigger.External {
		multi = multiTriggerIn
	}

	cmds := []wire.Command{wire.Cmd8(wire.RegMulti, multi)}
	for _, w := range words {
		cmds = append(cmds, wire.Cmd16(wire.RegTrigger, w))
	}

	var sources []trigger.Source
	switch cfg.Kind {
	case trigger.Alternate:
		sources = []trigger.Source{trigger.SourceA, trigger.SourceB}
	case trigger.SingleOnA, trigger.SingleOnB:
		sources = []trigger.Source{cfg.Primary()}
	}

	for _, src := range sources {
		ch := int(src)
		cc := cfg.Sources[src]

		switch cc.Mode {
		case trigger.Slope:
			cmds = append(cmds, wire.Cmd16(slopeLevelReg[ch], trigger.SlopeThresholdWord(cc.Level, cc.LevelHigh)))
		default:
			cmds = append(cmds, wire.Cmd16(edgeLevelReg[ch], trigger.EdgeLevelWord(cc.Level)))
		}
		cmds = append(cmds, wire.Cmd16(holdoffReg[ch], trigger.HoldoffWord(cc.Holdoff)))

		if cc.Mode == trigger.Edge {
			continue
		}
		width := trigger.WidthCounts(cc.Width)
		tol := uint32(uint64(width) * equalTolerancePct / 100)
		cmds = append(cmds, wire.Cmd32(condGLReg[ch], width))
		if legacy {
			cmds = append(cmds,
				wire.Cmd32(condEqualHiReg[ch], satAdd(width, tol)),
				wire.Cmd32(condEqualLoReg[ch], width-tol),
			)
		} else {
			cmds = append(cmds, wire.Cmd32(condHLReg[ch], tol))
		}
	}

	return cmds
}

func satAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}
