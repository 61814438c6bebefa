package composite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"networth/internal/application/port"
	"networth/internal/domain/model"
)

// Sink fans a committed snapshot out to every configured mirror. Each
// mirror gets its own deadline so one slow backend cannot starve the rest.
type Sink struct {
	sinks   []port.Sink
	timeout time.Duration
}

func New(timeout time.Duration, sinks ...port.Sink) *Sink {
	// nil sinks are allowed; filter in constructor
	out := make([]port.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Sink{sinks: out, timeout: timeout}
}

func (s *Sink) Name() string { return "composite" }

func (s *Sink) Len() int { return len(s.sinks) }

// Publish tries every sink and joins their errors.
func (s *Sink) Publish(ctx context.Context, snap *model.Snapshot) error {
	var errs []error
	for _, sink := range s.sinks {
		sctx, cancel := ctx, context.CancelFunc(func() {})
		if s.timeout > 0 {
			sctx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		err := sink.Publish(sctx, snap)
		cancel()
		if err != nil {
			log.Warn().Str("sink", sink.Name()).Str("snapshot", snap.ID).Err(err).Msg("mirror publish failed")
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ port.Sink = (*Sink)(nil)
