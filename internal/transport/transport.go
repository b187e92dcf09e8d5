// internal/transport/transport.go
package transport

import (
	"errors"
	"time"
)

// ErrTimeout is wrapped by transports when a transfer did not complete
// within its timeout. Callers test with errors.Is.
var ErrTimeout = errors.New("transport: timeout")

// Transport is one claimed bulk OUT/IN endpoint pair.
// A zero timeout blocks until the transfer completes.
// Implementations are not required to be safe for concurrent use;
// callers serialize whole request/response exchanges.
type Transport interface {
	Write(p []byte, timeout time.Duration) (int, error)
	Read(p []byte, timeout time.Duration) (int, error)
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
