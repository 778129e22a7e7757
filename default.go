package rtms

import (
	"context"
	"sync"
)

var (
	defaultMu      sync.Mutex
	defaultSession *Session
)

// Default returns the package-level session, allocating it on first use.
// After Leave the next call allocates a fresh one. Register callbacks on it
// before calling Join.
func Default() (*Session, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultSession != nil && defaultSession.State() != StateReleased {
		return defaultSession, nil
	}
	s, err := NewSession()
	if err != nil {
		return nil, err
	}
	defaultSession = s
	return s, nil
}

// Join joins a stream with the default session. The default session is
// always polled in the background; a non-positive PollInterval selects
// DefaultPollInterval. The loop stops when ctx is done or on Leave.
func Join(ctx context.Context, opts JoinOptions) error {
	s, err := Default()
	if err != nil {
		return err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return s.JoinWithOptions(ctx, opts)
}

// Leave stops polling and releases the default session. It is a no-op when
// no default session exists.
func Leave() error {
	defaultMu.Lock()
	s := defaultSession
	defaultSession = nil
	defaultMu.Unlock()

	if s == nil {
		return nil
	}
	s.log().Info().Str("meeting_uuid", s.UUID()).Msg("leaving default session")
	return s.Release()
}
