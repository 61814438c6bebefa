package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"networth/internal/domain"
)

// Run refreshes once at start when onStart is set and then every interval
// until ctx is done. Failures are logged; the loop keeps going.
func (s *Service) Run(ctx context.Context, interval time.Duration, onStart bool) error {
	if interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	if onStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("refresh scheduler started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	_, err := s.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRefreshInProgress):
		log.Debug().Msg("scheduled refresh skipped, one is already running")
	case errors.Is(err, domain.ErrNoHoldings):
		log.Info().Msg("nothing to refresh yet")
	}
}
