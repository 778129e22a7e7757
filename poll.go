package rtms

import (
	"context"
	"time"
)

// DefaultPollInterval is used by Run when interval is not positive.
const DefaultPollInterval = 10 * time.Millisecond

// Run polls s every interval until ctx is done or s is released. Polling
// only starts once the session has joined. It returns ctx.Err() on
// cancellation and nil after Release.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	s.log().Debug().Dur("interval", interval).Msg("starting poll loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log().Debug().Msg("poll loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}

		switch s.State() {
		case StateReleased:
			s.log().Debug().Msg("poll loop finished, session released")
			return nil
		case StateJoined:
			s.Poll()
		}
	}
}
