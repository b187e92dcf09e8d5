// internal/scope/session.go
package scope

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vds-bridge/internal/acquire"
	"github.com/tamzrod/vds-bridge/internal/flash"
	"github.com/tamzrod/vds-bridge/internal/transport"
	"github.com/tamzrod/vds-bridge/internal/trigger"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

// DefaultCommandTimeout bounds one command write or reply read.
const DefaultCommandTimeout = time.Second

// State is the bring-up progress of a Session.
type State int

const (
	Disconnected State = iota
	ModelChecked
	CalibrationLoaded
	ReadinessChecked
	Configured
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case ModelChecked:
		return "model-checked"
	case CalibrationLoaded:
		return "calibration-loaded"
	case ReadinessChecked:
		return "readiness-checked"
	case Configured:
		return "configured"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session owns the device transport.
//
// mu is held for exactly one device transaction (command plus reply, the
// flash read, or one data poll) and for short reads/writes of the cached
// settings. It is never held across a whole client request.
type Session struct {
	mu sync.Mutex

	t          transport.Transport
	log        zerolog.Logger
	cmdTimeout time.Duration

	state State
	info  *flash.Info

	// cached settings
	chanCfg    [flash.Channels]byte
	chanRange  [flash.Channels]flash.Range
	chanVolts  [flash.Channels]float64
	chanOffset [flash.Channels]float64
	rate       uint64
	peak       bool
	trig       trigger.Config

	pollBuf []byte
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithCommandTimeout bounds each command write and reply read.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.cmdTimeout = d
		}
	}
}

// New wraps t. The session is Disconnected until BringUp succeeds.
func New(t transport.Transport, opts ...Option) *Session {
	s := &Session{
		t:          t,
		log:        zerolog.Nop(),
		cmdTimeout: DefaultCommandTimeout,
		pollBuf:    make([]byte, acquire.ReadBufferSize),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current bring-up state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a copy of the parsed flash image, or nil before it was loaded.
func (s *Session) Info() *flash.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return nil
	}
	cp := *s.info
	return &cp
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) requireConfigured() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Configured {
		return fmt.Errorf("%w (state=%s)", ErrNotReady, s.state)
	}
	return nil
}

// exchange runs one command/reply transaction under the lock.
func (s *Session) exchange(cmd wire.Command) (wire.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchangeLocked(cmd)
}

func (s *Session) exchangeLocked(cmd wire.Command) (wire.Reply, error) {
	if err := s.writeLocked(cmd); err != nil {
		return wire.Reply{}, err
	}

	var buf [wire.ReplySize]byte
	n, err := s.t.Read(buf[:], s.cmdTimeout)
	if err != nil {
		return wire.Reply{}, &TransportError{Op: opName("read reply", cmd), Err: err}
	}
	r, err := wire.DecodeReply(buf[:n])
	if err != nil {
		return wire.Reply{}, &TransportError{Op: opName("decode reply", cmd), Err: err}
	}

	if r.Status == wire.StatusError {
		s.log.Debug().
			Str("op", fmt.Sprintf("0x%04x", cmd.Addr)).
			Uint32("value", r.Value).
			Msg("scope: device replied E")
	}
	return r, nil
}

func (s *Session) writeLocked(cmd wire.Command) error {
	var buf [16]byte
	if _, err := s.t.Write(cmd.AppendEncode(buf[:0]), s.cmdTimeout); err != nil {
		return &TransportError{Op: opName("write", cmd), Err: err}
	}
	return nil
}

// run sends cmds in order, one transaction each, stopping at the first failure.
func (s *Session) run(cmds []wire.Command) error {
	for _, c := range cmds {
		if _, err := s.exchange(c); err != nil {
			return err
		}
	}
	return nil
}

func opName(what string, cmd wire.Command) string {
	return fmt.Sprintf("%s 0x%04x", what, cmd.Addr)
}

func checkChannel(ch int) error {
	if ch < 0 || ch >= flash.Channels {
		return rejectf("channel %d out of range", ch)
	}
	return nil
}
