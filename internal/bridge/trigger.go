// internal/bridge/trigger.go
package bridge

import (
	"fmt"
	"math"
	"strings"

	"github.com/tamzrod/vds-bridge/internal/scope"
	"github.com/tamzrod/vds-bridge/internal/scpi"
	"github.com/tamzrod/vds-bridge/internal/trigger"
)

func defaultTrigger() trigger.Config {
	cfg := trigger.Config{Kind: trigger.SingleOnA}
	for i := range cfg.Sources {
		cfg.Sources[i] = trigger.ChannelConfig{
			Mode:      trigger.Edge,
			Condition: trigger.Rise,
			Sweep:     trigger.Auto,
			Level:     0.5,
			LevelHigh: 0.5,
		}
	}
	return cfg
}

// handleTrigger serves TRIG:* and TRIG:EDGE:DIR. Setters edit a copy of
// the current trigger and only keep it once the session accepted it.
func (s *Server) handleTrigger(req scpi.Request) (string, error) {
	s.trigMu.Lock()
	defer s.trigMu.Unlock()

	cfg := s.trig

	if req.Query {
		switch {
		case req.Subject == "TRIG" && req.Cmd == "SOU":
			return sourceName(cfg), nil
		case req.Subject == "TRIG" && req.Cmd == "MODE":
			return strings.ToUpper(cfg.Sources[cfg.Primary()].Mode.String()), nil
		case req.Subject == "TRIG:EDGE" && req.Cmd == "DIR":
			if falling(cfg.Sources[cfg.Primary()].Condition) {
				return "FALL", nil
			}
			return "RISE", nil
		}
		return "", unknown(req)
	}

	var err error
	switch {
	case req.Subject == "TRIG" && req.Cmd == "SOU":
		err = setSource(&cfg, req.Arg(0))
	case req.Subject == "TRIG" && req.Cmd == "LEV":
		err = s.setLevel(&cfg, req.Arg(0))
	case req.Subject == "TRIG" && req.Cmd == "MODE":
		err = setMode(&cfg, req.Arg(0))
	case req.Subject == "TRIG" && req.Cmd == "SWEEP":
		err = setSweep(&cfg, req.Arg(0))
	case req.Subject == "TRIG" && req.Cmd == "DELAY":
		err = forTargets(&cfg, req.Arg(0), func(cc *trigger.ChannelConfig, v float64) { cc.Holdoff = v })
	case req.Subject == "TRIG" && req.Cmd == "WIDTH":
		err = forTargets(&cfg, req.Arg(0), func(cc *trigger.ChannelConfig, v float64) { cc.Width = v })
	case req.Subject == "TRIG" && req.Cmd == "COND":
		err = setRelation(&cfg, req.Arg(0))
	case req.Subject == "TRIG:EDGE" && req.Cmd == "DIR":
		err = setDirection(&cfg, req.Arg(0))
	default:
		return "", unknown(req)
	}
	if err != nil {
		return "", err
	}

	if err := s.sess.SetTrigger(cfg); err != nil {
		return "", err
	}
	s.trig = cfg
	return "", nil
}

// targets are the sources a TRIG setter applies to.
func targets(cfg *trigger.Config) []trigger.Source {
	if cfg.Kind == trigger.Alternate {
		return []trigger.Source{trigger.SourceA, trigger.SourceB}
	}
	return []trigger.Source{cfg.Primary()}
}

func sourceName(cfg trigger.Config) string {
	switch cfg.Kind {
	case trigger.SingleOnB:
		return chanIDCH2
	case trigger.External:
		return chanIDExt
	case trigger.Alternate:
		return "ALT"
	default:
		return chanIDCH1
	}
}

func setSource(cfg *trigger.Config, arg string) error {
	if strings.EqualFold(arg, "ALT") {
		cfg.Kind = trigger.Alternate
		return nil
	}
	src, err := parseChannelID(arg)
	if err != nil {
		return err
	}
	switch src {
	case trigger.SourceA:
		cfg.Kind = trigger.SingleOnA
	case trigger.SourceB:
		cfg.Kind = trigger.SingleOnB
	case trigger.SourceExt:
		cfg.Kind = trigger.External
	}
	return nil
}

// setLevel converts volts at the input into the normalized trigger level
// of each target channel, using its range and offset.
func (s *Server) setLevel(cfg *trigger.Config, arg string) error {
	volts, err := parseFloat(arg)
	if err != nil {
		return err
	}
	for _, src := range targets(cfg) {
		if src == trigger.SourceExt {
			return fmt.Errorf("%w: trigger level is fixed on %s", scope.ErrConfigRejected, chanIDExt)
		}
		st, err := s.sess.Channel(int(src))
		if err != nil {
			return err
		}
		cc := &cfg.Sources[src]
		cc.Level = NormalizedLevel(volts, st.Range.VoltsPerDiv(), st.Offset)
		if cc.LevelHigh < cc.Level {
			cc.LevelHigh = cc.Level
		}
	}
	return nil
}

// NormalizedLevel maps volts onto [0,1] of a ten-division screen centred
// on zero and shifted by offset.
func NormalizedLevel(volts, voltsPerDiv, offset float64) float64 {
	if voltsPerDiv <= 0 {
		return 0.5
	}
	n := 0.5 + (volts+offset)/(10*voltsPerDiv)
	return math.Min(1, math.Max(0, n))
}

func setMode(cfg *trigger.Config, arg string) error {
	var m trigger.Mode
	switch strings.ToUpper(arg) {
	case "EDGE":
		m = trigger.Edge
	case "PULSE":
		m = trigger.Pulse
	case "SLOPE":
		m = trigger.Slope
	default:
		return fmt.Errorf("%w: unknown trigger mode %q", scope.ErrConfigRejected, arg)
	}

	for _, src := range targets(cfg) {
		cc := &cfg.Sources[src]
		fall := falling(cc.Condition)
		rel := relation(cc.Condition)
		cc.Mode = m
		cc.Condition = condition(m, fall, rel)
	}
	return nil
}

func setSweep(cfg *trigger.Config, arg string) error {
	var sw trigger.Sweep
	switch strings.ToUpper(arg) {
	case "AUTO":
		sw = trigger.Auto
	case "NORM", "NORMAL":
		sw = trigger.Normal
	case "ONCE", "SINGLE":
		sw = trigger.Once
	default:
		return fmt.Errorf("%w: unknown sweep %q", scope.ErrConfigRejected, arg)
	}
	for _, src := range targets(cfg) {
		cfg.Sources[src].Sweep = sw
	}
	return nil
}

func setDirection(cfg *trigger.Config, arg string) error {
	var fall bool
	switch strings.ToUpper(arg) {
	case "RISE", "POS":
		fall = false
	case "FALL", "NEG":
		fall = true
	default:
		return fmt.Errorf("%w: unknown edge direction %q", scope.ErrConfigRejected, arg)
	}
	for _, src := range targets(cfg) {
		cc := &cfg.Sources[src]
		cc.Condition = condition(cc.Mode, fall, relation(cc.Condition))
	}
	return nil
}

// setRelation picks the width relation (GT, EQ or LT) for pulse and slope.
func setRelation(cfg *trigger.Config, arg string) error {
	var rel int
	switch strings.ToUpper(arg) {
	case "GT":
		rel = 0
	case "EQ":
		rel = 1
	case "LT":
		rel = 2
	default:
		return fmt.Errorf("%w: unknown width condition %q", scope.ErrConfigRejected, arg)
	}
	for _, src := range targets(cfg) {
		cc := &cfg.Sources[src]
		cc.Condition = condition(cc.Mode, falling(cc.Condition), rel)
	}
	return nil
}

func forTargets(cfg *trigger.Config, arg string, set func(*trigger.ChannelConfig, float64)) error {
	v, err := parseFloat(arg)
	if err != nil {
		return err
	}
	for _, src := range targets(cfg) {
		set(&cfg.Sources[src], v)
	}
	return nil
}

func falling(c trigger.Condition) bool {
	switch c {
	case trigger.Fall, trigger.FallGreater, trigger.FallEqual, trigger.FallLess:
		return true
	}
	return false
}

// relation is 0 (greater), 1 (equal) or 2 (less); edge conditions map to 0.
func relation(c trigger.Condition) int {
	switch c {
	case trigger.RiseEqual, trigger.FallEqual:
		return 1
	case trigger.RiseLess, trigger.FallLess:
		return 2
	}
	return 0
}

func condition(m trigger.Mode, fall bool, rel int) trigger.Condition {
	if m == trigger.Edge {
		if fall {
			return trigger.Fall
		}
		return trigger.Rise
	}
	if fall {
		return trigger.FallGreater + trigger.Condition(rel)
	}
	return trigger.RiseGreater + trigger.Condition(rel)
}
