package container

import (
	"networth/internal/application/port"
	"networth/internal/application/service"
	"networth/internal/application/usecase/refresh"
)

// Deps is what the infrastructure layer hands to the application layer.
type Deps struct {
	Store     port.Store
	Valuation *service.ValuationService
	Writers   func(format string) (port.SnapshotWriter, error)
	Sinks     []port.Sink
}

// Container builds application services on first use and shares them.
type Container struct {
	deps Deps

	holdingService *service.HoldingService
	exportService  *service.ExportService
	refresh        *refresh.Service
}

func New(deps Deps) *Container {
	return &Container{deps: deps}
}

func (c *Container) Store() port.Store {
	return c.deps.Store
}

func (c *Container) Valuation() *service.ValuationService {
	return c.deps.Valuation
}

func (c *Container) HoldingService() *service.HoldingService {
	if c.holdingService == nil {
		c.holdingService = service.NewHoldingService(c.deps.Store)
	}
	return c.holdingService
}

func (c *Container) ExportService() *service.ExportService {
	if c.exportService == nil {
		c.exportService = service.NewExportService(c.deps.Store, c.deps.Writers)
	}
	return c.exportService
}

// AddSink registers another snapshot sink. It has no effect once Refresh
// was called.
func (c *Container) AddSink(s port.Sink) {
	if c.refresh != nil {
		return
	}
	c.deps.Sinks = append(c.deps.Sinks, s)
}

// Refresh returns the single orchestrator; every caller must share it so
// concurrent requests are rejected.
func (c *Container) Refresh() *refresh.Service {
	if c.refresh == nil {
		c.refresh = refresh.NewService(refresh.ServiceDeps{
			Holdings:  c.deps.Store,
			Snapshots: c.deps.Store,
			Engine:    c.deps.Valuation,
			Sinks:     c.deps.Sinks,
		})
	}
	return c.refresh
}
