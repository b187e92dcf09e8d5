// internal/bridge/verbs.go
package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tamzrod/vds-bridge/internal/flash"
	"github.com/tamzrod/vds-bridge/internal/scope"
	"github.com/tamzrod/vds-bridge/internal/scpi"
	"github.com/tamzrod/vds-bridge/internal/trigger"
)

// Channel ids on the command protocol. EX is the external trigger input.
const (
	chanIDCH1 = "C1"
	chanIDCH2 = "C2"
	chanIDExt = "EX"
)

var _ scpi.Handler = (*Server)(nil)

// Handle executes one command-protocol request against the session.
func (s *Server) Handle(req scpi.Request) (string, error) {
	switch req.Subject {
	case "":
		return s.handleRoot(req)
	case "TRIG", "TRIG:EDGE":
		return s.handleTrigger(req)
	}

	src, err := parseChannelID(req.Subject)
	if err != nil {
		return "", unknown(req)
	}
	return s.handleChannel(src, req)
}

func (s *Server) handleRoot(req scpi.Request) (string, error) {
	if req.Query {
		switch req.Cmd {
		case "*IDN":
			id := s.sess.Identity()
			return strings.Join([]string{id.Make, id.Model, id.Serial, id.Firmware}, ","), nil
		case "CHANS":
			return strconv.Itoa(flash.Channels), nil
		case "RATES":
			return joinUints(scope.SampleRates), nil
		case "DEPTHS":
			return joinUints(scope.SampleDepths), nil
		case "RATE":
			return strconv.FormatUint(s.sess.SampleRate(), 10), nil
		case "DEPTH":
			return joinUints(scope.SampleDepths[:1]), nil
		case "ARMED":
			return boolReply(s.armed.Load()), nil
		}
		return "", unknown(req)
	}

	switch req.Cmd {
	case "RATE":
		hz, err := parseUint(req.Arg(0))
		if err != nil {
			return "", err
		}
		return "", s.sess.SetSampleRate(hz)
	case "DEPTH":
		n, err := parseUint(req.Arg(0))
		if err != nil {
			return "", err
		}
		return "", s.sess.SetSampleDepth(n)
	case "PEAK":
		on, err := parseOnOff(req.Arg(0))
		if err != nil {
			return "", err
		}
		return "", s.sess.SetPeakDetect(on)
	case "START":
		return "", s.arm(false)
	case "SINGLE":
		return "", s.arm(true)
	case "STOP":
		return "", s.disarm()
	case "FORCE":
		return "", s.sess.ForceTrigger()
	}
	return "", unknown(req)
}

func (s *Server) handleChannel(src trigger.Source, req scpi.Request) (string, error) {
	if req.Cmd == "TYPE" && req.Query {
		if src == trigger.SourceExt {
			return "EXTERNAL", nil
		}
		return "ANALOG", nil
	}
	if src == trigger.SourceExt {
		return "", fmt.Errorf("%w: %s has no %s", scope.ErrConfigRejected, chanIDExt, req.Cmd)
	}
	ch := int(src)

	if req.Query {
		st, err := s.sess.Channel(ch)
		if err != nil {
			return "", err
		}
		switch req.Cmd {
		case "ON":
			return boolReply(st.Enabled), nil
		case "COUP":
			return st.Coupling.String(), nil
		case "RANGE":
			return formatFloat(st.FullScale), nil
		case "OFFS":
			return formatFloat(st.Offset), nil
		}
		return "", unknown(req)
	}

	switch req.Cmd {
	case "ON":
		return "", s.sess.SetChannelEnabled(ch, true)
	case "OFF":
		return "", s.sess.SetChannelEnabled(ch, false)
	case "COUP":
		c, err := scope.ParseCoupling(req.Arg(0))
		if err != nil {
			return "", err
		}
		return "", s.sess.SetChannelCoupling(ch, c)
	case "RANGE":
		v, err := parseFloat(req.Arg(0))
		if err != nil {
			return "", err
		}
		return "", s.sess.SetChannelRange(ch, v)
	case "OFFS":
		v, err := parseFloat(req.Arg(0))
		if err != nil {
			return "", err
		}
		return "", s.sess.SetChannelOffset(ch, v)
	}
	return "", unknown(req)
}

// parseChannelID maps C1/C2/EX (CH1/CH2/EXT also accepted) to a trigger source.
func parseChannelID(id string) (trigger.Source, error) {
	switch strings.ToUpper(id) {
	case chanIDCH1, "CH1":
		return trigger.SourceA, nil
	case chanIDCH2, "CH2":
		return trigger.SourceB, nil
	case chanIDExt, "EXT":
		return trigger.SourceExt, nil
	}
	return 0, fmt.Errorf("%w: unknown channel %q", scope.ErrConfigRejected, id)
}

func unknown(req scpi.Request) error {
	return fmt.Errorf("%w: %s", scpi.ErrUnknownCommand, req.Header())
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", scope.ErrConfigRejected, s)
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", scope.ErrConfigRejected, s)
	}
	return v, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "ON", "1":
		return true, nil
	case "OFF", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not ON or OFF", scope.ErrConfigRejected, s)
}

func joinUints(vs []uint64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func boolReply(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
