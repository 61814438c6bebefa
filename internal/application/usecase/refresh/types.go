package refresh

import (
	"context"
	"time"

	"networth/internal/application/port"
	"networth/internal/domain/model"
	domainservice "networth/internal/domain/service"
)

// State is the phase of the refresh cycle.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateValuing    State = "valuing"
	StateCommitting State = "committing"
	StateFailed     State = "failed"
)

// Busy reports whether a refresh is running in this state.
func (s State) Busy() bool {
	switch s {
	case StateFetching, StateValuing, StateCommitting:
		return true
	default:
		return false
	}
}

// Engine is the valuation engine split into its network and pure halves.
type Engine interface {
	Fetch(ctx context.Context, holdings []model.Holding) (domainservice.MarketData, error)
	Value(holdings []model.Holding, md domainservice.MarketData) *model.Snapshot
}

type ServiceDeps struct {
	Holdings  port.HoldingRepository
	Snapshots port.SnapshotRepository
	Engine    Engine
	Sinks     []port.Sink
}

// Status is a copy of the orchestrator state for the display layer.
type Status struct {
	State          State         `json:"state"`
	StartedAt      time.Time     `json:"started_at,omitempty"`
	FinishedAt     time.Time     `json:"finished_at,omitempty"`
	LastDuration   time.Duration `json:"last_duration_ns"`
	LastOutcome    string        `json:"last_outcome,omitempty"`
	LastError      string        `json:"last_error,omitempty"`
	LastSnapshotID string        `json:"last_snapshot_id,omitempty"`
	Completed      int           `json:"completed"`
}
