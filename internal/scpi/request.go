// internal/scpi/request.go
package scpi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand is returned by handlers for verbs they do not implement.
var ErrUnknownCommand = errors.New("scpi: unknown command")

// ErrEmpty is returned by Parse for blank lines.
var ErrEmpty = errors.New("scpi: empty request")

// Request is one parsed line: [SUBJECT:]CMD[?] [ARG ...].
//
// Subject and Cmd are upper-cased. For "TRIG:EDGE:DIR RISE" the subject
// is "TRIG:EDGE" and the command "DIR". Args keep their case.
type Request struct {
	Subject string
	Cmd     string
	Args    []string
	Query   bool
}

// Header returns the canonical header, e.g. "C1:COUP?".
func (r Request) Header() string {
	h := r.Cmd
	if r.Subject != "" {
		h = r.Subject + ":" + h
	}
	if r.Query {
		h += "?"
	}
	return h
}

// Arg returns argument i, or "" when absent.
func (r Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// Parse splits one request line. Arguments are separated by spaces or commas.
func Parse(line string) (Request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}, ErrEmpty
	}

	header, rest, _ := strings.Cut(line, " ")
	header = strings.ToUpper(strings.TrimSpace(header))

	var req Request
	if strings.HasSuffix(header, "?") {
		req.Query = true
		header = strings.TrimSuffix(header, "?")
	}
	header = strings.TrimPrefix(header, ":")

	if i := strings.LastIndexByte(header, ':'); i >= 0 {
		req.Subject = header[:i]
		req.Cmd = header[i+1:]
	} else {
		req.Cmd = header
	}
	if req.Cmd == "" || strings.ContainsAny(header, "?") {
		return Request{}, fmt.Errorf("scpi: malformed header %q", line)
	}

	req.Args = strings.FieldsFunc(rest, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	return req, nil
}
