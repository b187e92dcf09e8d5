// internal/writer/stream_test.go
package writer

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
)

func TestStreamFansOutToSubscribers(t *testing.T) {
	s := NewStream(time.Second, zerolog.Nop())
	defer s.Close()

	aSrv, aCli := net.Pipe()
	bSrv, bCli := net.Pipe()
	defer aCli.Close()
	defer bCli.Close()

	s.Add("a", aSrv)
	s.Add("b", bSrv)
	assert.Equal(t, s.Len(), 2)

	got := make(chan []byte, 2)
	for _, c := range []net.Conn{aCli, bCli} {
		go func(c net.Conn) {
			buf := make([]byte, 4)
			_, _ = io.ReadFull(c, buf)
			got <- buf
		}(c)
	}

	n, err := s.Write([]byte("wave"))
	assert.NilError(t, err)
	assert.Equal(t, n, 4)

	for i := 0; i < 2; i++ {
		assert.Equal(t, string(<-got), "wave")
	}
}

func TestStreamDropsStalledSubscriber(t *testing.T) {
	s := NewStream(20*time.Millisecond, zerolog.Nop())
	defer s.Close()

	srv, cli := net.Pipe()
	defer cli.Close()
	s.Add("stalled", srv)

	// nobody reads cli: the write deadline expires
	n, err := s.Write([]byte("wave"))
	assert.NilError(t, err)
	assert.Equal(t, n, 4)
	assert.Equal(t, s.Len(), 0)
}

func TestStreamWithoutSubscribersDiscards(t *testing.T) {
	s := NewStream(time.Second, zerolog.Nop())
	n, err := s.Write([]byte("wave"))
	assert.NilError(t, err)
	assert.Equal(t, n, 4)
}

func TestStreamRemoveClosesConn(t *testing.T) {
	s := NewStream(time.Second, zerolog.Nop())
	srv, cli := net.Pipe()
	defer cli.Close()

	s.Add("x", srv)
	s.Remove("x")
	assert.Equal(t, s.Len(), 0)

	_, err := cli.Read(make([]byte, 1))
	assert.Equal(t, err, io.EOF)
}
