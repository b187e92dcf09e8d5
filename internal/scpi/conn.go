// internal/scpi/conn.go
package scpi

import (
	"bufio"
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// MaxLineSize bounds one request line.
const MaxLineSize = 4096

// Handler executes one request. For queries the returned string is sent
// back as one line; for commands it is ignored.
type Handler interface {
	Handle(req Request) (string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req Request) (string, error)

func (f HandlerFunc) Handle(req Request) (string, error) { return f(req) }

// Serve reads requests from rw line by line until EOF or a read error.
//
// A failing request never ends the connection: the error is logged and,
// for queries, answered with an "ERR <message>" line so the client does
// not block waiting for a reply.
func Serve(rw io.ReadWriter, h Handler, log zerolog.Logger) error {
	sc := bufio.NewScanner(rw)
	sc.Buffer(make([]byte, 0, 256), MaxLineSize)
	out := bufio.NewWriter(rw)

	for sc.Scan() {
		req, err := Parse(sc.Text())
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Msg("scpi: bad request")
			continue
		}

		reply, err := h.Handle(req)
		if err != nil {
			log.Warn().Str("req", req.Header()).Err(err).Msg("scpi: request failed")
			if !req.Query {
				continue
			}
			reply = "ERR " + err.Error()
		}
		if !req.Query {
			continue
		}

		if _, err := out.WriteString(reply + "\n"); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
	return sc.Err()
}
