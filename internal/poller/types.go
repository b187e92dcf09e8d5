// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/vds-bridge/internal/acquire"
)

// PollResult is a snapshot produced by one poll.
type PollResult struct {
	At      time.Time
	Outcome acquire.Outcome

	// Frame is set only for Ready and aliases the poller's buffer.
	Frame *acquire.Frame

	Err error // non-nil only for acquire.TransportError
}

// Healthy reports whether the poll reached the device without failure.
// NotReady and TimedOut are routine.
func (r PollResult) Healthy() bool {
	return r.Err == nil && r.Outcome != acquire.TransportError
}
