// internal/poller/builder.go
package poller

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vds-bridge/internal/config"
)

// Build constructs a Poller from normalized device config.
func Build(d config.DeviceConfig, src Source, log zerolog.Logger) (*Poller, error) {
	return New(
		Config{
			Timeout: time.Duration(d.PollTimeoutMs) * time.Millisecond,
			Backoff: time.Duration(d.PollBackoff()) * time.Millisecond,
			Logger:  log,
		},
		src,
	)
}
