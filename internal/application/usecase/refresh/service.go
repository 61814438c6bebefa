package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"networth/internal/domain"
	"networth/internal/domain/model"
	"networth/internal/metrics"
)

// Service runs refresh cycles. At most one cycle runs at a time; a request
// arriving while one is running fails with domain.ErrRefreshInProgress.
type Service struct {
	deps ServiceDeps
	st   *tracker
	now  func() time.Time
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps, st: newTracker(), now: time.Now}
}

func (s *Service) Status() Status { return s.st.snapshot() }

// Refresh fetches, values and commits one snapshot. Cancelling ctx aborts
// the cycle during Fetching and Valuing; once Committing starts the append
// runs to completion.
func (s *Service) Refresh(ctx context.Context) (*model.Snapshot, error) {
	start := s.now()
	if err := s.st.begin(start); err != nil {
		metrics.RefreshTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	snap, err := s.run(ctx)
	end := s.now()
	metrics.RefreshDuration.Observe(end.Sub(start).Seconds())

	switch {
	case err == nil:
		outcome := "complete"
		if snap.Partial {
			outcome = "partial"
		}
		s.st.finish(end, StateIdle, outcome, snap.ID, nil)
		metrics.RefreshTotal.WithLabelValues(outcome).Inc()
		metrics.SnapshotTotalValue.Set(snap.Total.InexactFloat64())
		metrics.SnapshotMissing.Set(float64(len(snap.Missing)))
		log.Info().
			Str("id", snap.ID).
			Str("total", snap.Total.StringFixed(2)).
			Str("currency", snap.ReportingCurrency).
			Bool("partial", snap.Partial).
			Int("missing", len(snap.Missing)).
			Dur("took", end.Sub(start)).
			Msg("refresh committed")
		return snap, nil

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.st.finish(end, StateIdle, "cancelled", "", err)
		metrics.RefreshTotal.WithLabelValues("cancelled").Inc()
		log.Warn().Err(err).Msg("refresh cancelled")
		return nil, err

	default:
		s.st.finish(end, StateFailed, "failed", "", err)
		metrics.RefreshTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Msg("refresh failed")
		return nil, err
	}
}

func (s *Service) run(ctx context.Context) (*model.Snapshot, error) {
	holdings, err := s.deps.Holdings.ListHoldings(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}
	if len(holdings) == 0 {
		return nil, domain.ErrNoHoldings
	}

	md, err := s.deps.Engine.Fetch(ctx, holdings)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.st.enter(StateValuing)
	snap := s.deps.Engine.Value(holdings, md)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.st.enter(StateCommitting)
	commitCtx := context.WithoutCancel(ctx)
	id, err := s.deps.Snapshots.Append(commitCtx, snap)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreWriteFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrStoreWriteFailure, err)
		}
		return nil, err
	}
	snap.ID = id

	s.publish(commitCtx, snap)
	return snap, nil
}

func (s *Service) publish(ctx context.Context, snap *model.Snapshot) {
	for _, sink := range s.deps.Sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			metrics.SinkFailures.WithLabelValues(sink.Name()).Inc()
			log.Warn().Str("sink", sink.Name()).Str("id", snap.ID).Err(err).Msg("snapshot publish failed")
		}
	}
}
