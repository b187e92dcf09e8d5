// internal/writer/stream.go
package writer

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Stream fans waveform bytes out to every subscribed connection.
// A subscriber that fails or stalls past the write timeout is closed
// and dropped; the others are unaffected.
type Stream struct {
	mu      sync.Mutex
	conns   map[string]net.Conn
	timeout time.Duration
	log     zerolog.Logger
}

// NewStream creates an empty stream. timeout bounds each write per subscriber.
func NewStream(timeout time.Duration, log zerolog.Logger) *Stream {
	return &Stream{
		conns:   make(map[string]net.Conn),
		timeout: timeout,
		log:     log,
	}
}

// Add subscribes c under id.
func (s *Stream) Add(id string, c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = c
}

// Remove unsubscribes and closes id.
func (s *Stream) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[id]; ok {
		_ = c.Close()
		delete(s.conns, id)
	}
}

// Len returns the number of subscribers.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Write sends p to every subscriber. It never fails: with no subscribers
// the bytes are discarded.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.conns {
		if s.timeout > 0 {
			_ = c.SetWriteDeadline(time.Now().Add(s.timeout))
		}
		if err := writeAll(c, p); err != nil {
			s.log.Warn().Str("conn", id).Err(err).Msg("writer: dropping waveform subscriber")
			_ = c.Close()
			delete(s.conns, id)
		}
	}
	return len(p), nil
}

// Close drops every subscriber.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.conns {
		_ = c.Close()
		delete(s.conns, id)
	}
	return nil
}
