// internal/bridge/server.go
package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/vds-bridge/internal/config"
	"github.com/tamzrod/vds-bridge/internal/poller"
	"github.com/tamzrod/vds-bridge/internal/scope"
	"github.com/tamzrod/vds-bridge/internal/scpi"
	"github.com/tamzrod/vds-bridge/internal/status"
	"github.com/tamzrod/vds-bridge/internal/trigger"
	"github.com/tamzrod/vds-bridge/internal/writer"
)

// ErrServerClosed is returned by the Serve methods after Close.
var ErrServerClosed = errors.New("bridge: server closed")

// DefaultStreamTimeout bounds one waveform write per subscriber.
const DefaultStreamTimeout = 2 * time.Second

// Config is the runtime config of a Server.
type Config struct {
	// Device supplies the poll timeout and backoff.
	Device        config.DeviceConfig
	StreamTimeout time.Duration

	// Tracker receives poll outcomes and the armed flag. Optional.
	Tracker *status.Tracker
	Logger  zerolog.Logger
}

// Server exposes one Session over the command protocol and streams
// waveforms to subscribers of the waveform listener.
//
// The waveform task starts in New and is stopped by Close before Close
// returns; after that the Session is no longer touched.
type Server struct {
	sess    *scope.Session
	stream  *writer.Stream
	wave    writer.Writer
	tracker *status.Tracker
	log     zerolog.Logger

	// runMu orders arm/disarm transitions with the device run state
	runMu  sync.Mutex
	armed  atomic.Bool
	single atomic.Bool

	trigMu sync.Mutex
	trig   trigger.Config

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	closed    bool
	listeners []net.Listener
	conns     map[string]net.Conn
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds the server and starts the waveform task.
func New(sess *scope.Session, cfg Config) (*Server, error) {
	if sess == nil {
		return nil, errors.New("bridge: session required")
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = DefaultStreamTimeout
	}

	p, err := poller.Build(cfg.Device, sess, cfg.Logger)
	if err != nil {
		return nil, err
	}

	stream := writer.NewStream(cfg.StreamTimeout, cfg.Logger)
	s := &Server{
		sess:    sess,
		stream:  stream,
		wave:    writer.NewWaveformWriter(stream),
		tracker: cfg.Tracker,
		log:     cfg.Logger,
		trig:    defaultTrigger(),
		done:    make(chan struct{}),
		conns:   make(map[string]net.Conn),
	}
	if s.tracker != nil {
		s.tracker.SetSessionState(uint16(sess.State()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		p.Run(ctx, s.onPoll)
	}()

	return s, nil
}

// Armed reports whether waveforms are being delivered.
func (s *Server) Armed() bool { return s.armed.Load() }

// Subscribers returns the number of waveform stream connections.
func (s *Server) Subscribers() int { return s.stream.Len() }

// ServeSCPI accepts command connections on ln until Close.
func (s *Server) ServeSCPI(ln net.Listener) error {
	return s.serve(ln, func(id string, c net.Conn) {
		log := s.log.With().Str("conn", id).Logger()
		log.Info().Str("remote", c.RemoteAddr().String()).Msg("bridge: command client connected")
		err := scpi.Serve(c, s, log)
		log.Info().AnErr("err", err).Msg("bridge: command client gone")
	})
}

// ServeWaveform accepts waveform subscribers on ln until Close.
// Subscribers only receive; anything they send is discarded.
func (s *Server) ServeWaveform(ln net.Listener) error {
	return s.serve(ln, func(id string, c net.Conn) {
		s.log.Info().Str("conn", id).Str("remote", c.RemoteAddr().String()).Msg("bridge: waveform subscriber connected")
		s.stream.Add(id, c)
		_, _ = io.Copy(io.Discard, c)
		s.stream.Remove(id)
		s.log.Info().Str("conn", id).Msg("bridge: waveform subscriber gone")
	})
}

func (s *Server) serve(ln net.Listener, fn func(id string, c net.Conn)) error {
	if !s.trackListener(ln) {
		_ = ln.Close()
		return ErrServerClosed
	}

	for {
		c, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			return err
		}

		id := uuid.NewString()
		if !s.trackConn(id, c) {
			_ = c.Close()
			return ErrServerClosed
		}
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(id)
			fn(id, c)
		}()
	}
}

func (s *Server) trackListener(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.listeners = append(s.listeners, ln)
	return true
}

// trackConn registers c and counts its goroutine under the same lock
// Close takes, so Close never waits on a goroutine it cannot see.
func (s *Server) trackConn(id string, c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[id] = c
	s.wg.Add(1)
	return true
}

func (s *Server) untrackConn(id string) {
	s.mu.Lock()
	c, ok := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()
	if ok {
		_ = c.Close()
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the waveform task, then the listeners and connections.
// When it returns nothing in the server uses the Session any more.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done

		s.mu.Lock()
		s.closed = true
		lns := s.listeners
		s.listeners = nil
		conns := make([]net.Conn, 0, len(s.conns))
		for _, c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()

		for _, ln := range lns {
			_ = ln.Close()
		}
		for _, c := range conns {
			_ = c.Close()
		}
		s.wg.Wait()
		_ = s.stream.Close()

		s.log.Info().Msg("bridge: closed")
	})
	return nil
}
