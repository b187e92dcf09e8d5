// internal/writer/publisher.go
package writer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vds-bridge/internal/status"
)

// PublishStatus delivers the tracker's snapshot until ctx ends.
//
// The block is asserted once on start, then every interval the tracker
// is ticked (seconds_in_error) and the current snapshot written. The
// writer skips unchanged slots, so idle ticks cost nothing on the wire.
func PublishStatus(ctx context.Context, tr *status.Tracker, sw StatusWriter, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}

	if err := sw.WriteStatus(tr.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("status write failed on start")
	}

	secTicker := time.NewTicker(interval)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-secTicker.C:
			snap, _ := tr.Tick()
			if err := sw.WriteStatus(snap); err != nil {
				log.Warn().Err(err).Msg("status write failed")
			}
		}
	}
}
