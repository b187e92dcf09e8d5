// internal/poller/runner.go
package poller

import (
	"context"
	"time"

	"github.com/tamzrod/vds-bridge/internal/acquire"
)

// Handler consumes one poll result before the next poll starts.
type Handler func(PollResult)

// Run polls until ctx is cancelled. Cancellation is checked at the top of
// every iteration, so shutdown is observed within one poll timeout (plus
// one backoff). No overlap. No retries beyond the loop itself.
func (p *Poller) Run(ctx context.Context, handle Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		res := p.PollOnce()
		handle(res)

		switch res.Outcome {
		case acquire.Ready, acquire.TimedOut:
			continue
		}

		if res.Err != nil {
			p.cfg.Logger.Debug().Err(res.Err).Str("outcome", res.Outcome.String()).Msg("poller: poll failed")
		}
		if !sleep(ctx, p.cfg.Backoff) {
			return
		}
	}
}

// sleep waits d or until ctx is done. It reports false when ctx ended.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
