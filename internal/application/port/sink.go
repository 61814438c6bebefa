package port

import (
	"context"

	"networth/internal/domain/model"
)

// Sink receives every committed snapshot after the primary store accepted it.
// Sinks are best effort: a failing sink never undoes a commit.
type Sink interface {
	Name() string
	Publish(ctx context.Context, s *model.Snapshot) error
}
