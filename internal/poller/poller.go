// internal/poller/poller.go
package poller

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vds-bridge/internal/acquire"
)

// Source abstracts the device operation the poller needs.
// Each call must be one self-contained device transaction.
type Source interface {
	Poll(timeout time.Duration, f *acquire.Frame) (acquire.Outcome, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	// Timeout bounds one poll's transport calls.
	Timeout time.Duration
	// Backoff is slept after a poll that was neither Ready nor TimedOut.
	Backoff time.Duration
	Logger  zerolog.Logger
}

// Poller is a dumb, outcome-driven reader.
// It owns one Frame and reuses it for every poll.
type Poller struct {
	cfg   Config
	src   Source
	frame acquire.Frame
}

// New creates a poller with immutable config.
func New(cfg Config, src Source) (*Poller, error) {
	if src == nil {
		return nil, errors.New("poller: source required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("poller: timeout must be > 0")
	}
	if cfg.Backoff < 0 {
		return nil, errors.New("poller: backoff must be >= 0")
	}
	return &Poller{cfg: cfg, src: src}, nil
}

// PollOnce performs exactly one poll.
// The returned Frame is only valid until the next call.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{At: time.Now()}

	out, err := p.src.Poll(p.cfg.Timeout, &p.frame)
	res.Outcome = out
	res.Err = err
	if out == acquire.Ready && err == nil {
		res.Frame = &p.frame
	}
	return res
}
