package core

// scheduler.go expires idle upload sessions.
//
// Sessions hold a whole parsed file in memory, so a background sweeper
// removes any session not touched within the TTL. The sweeper is
// long-running and context-aware for graceful shutdown.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often StartSweeper checks for idle sessions.
const DefaultSweepInterval = time.Minute

// Sweep removes sessions idle for longer than the TTL as of now and returns
// how many were removed.
func (s *Service) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastAccess)
		sess.mu.Unlock()

		if idle > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	slog.Info("session sweeper started",
		"interval", interval.String(),
		"ttl", s.ttl.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if n := s.Sweep(s.now()); n > 0 {
				slog.Info("expired upload sessions",
					"sessions_removed", n,
					"sessions_active", s.ActiveSessions(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
