// Package app is the composition root: it wires Config, Store,
// EventHandler, Controller, and worker pools once at startup. Transport
// adapters are attached by the two cmd entrypoints, since exactly one is
// active per process (spec.md §5).
package app

import (
	"context"
	"fmt"
	"sync"

	"oadr2ven.io/ven/internal/config"
	"oadr2ven.io/ven/internal/control"
	"oadr2ven.io/ven/internal/domain"
	"oadr2ven.io/ven/internal/eventhandler"
	"oadr2ven.io/ven/internal/pkg/worker"
	"oadr2ven.io/ven/internal/store"
)

// Application holds the composed, process-wide collaborators. Everything
// here is created once at startup and owned for the process lifetime
// (spec.md §9: no module-level singletons, ordinary owned collaborators
// instead).
type Application struct {
	Config     *config.Config
	Store      *store.Store
	Handler    *eventhandler.Handler
	Controller *control.Controller
	Pools      *worker.Pools

	identity domain.VENIdentity
}

// Bootstrap wires the domain-independent core: store, handler, controller,
// worker pools. Callers then attach exactly one transport adapter and call
// StartController.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	st, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	identity := domain.VENIdentity{
		VenID:                  cfg.VEN.VenID,
		PartyID:                cfg.VEN.PartyID,
		GroupID:                cfg.VEN.GroupID,
		ResourceID:             cfg.VEN.ResourceID,
		AcceptedVtnIDs:         cfg.VEN.AcceptedVtnIDs,
		AcceptedMarketContexts: cfg.VEN.AcceptedMarketContexts,
		Profile:                cfg.VEN.Profile,
	}

	// One mutex serializes handle_payload against the controller's per-tick
	// store read (spec.md §5).
	lock := &sync.Mutex{}

	handler := eventhandler.New(identity, st, lock)
	controller := control.New(identity, st, control.LoggingSink{}, lock, cfg.Control.LoopInterval)

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		PollPoolSize:    cfg.Worker.PollPoolSize,
		ControlPoolSize: cfg.Worker.ControlPoolSize,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	return &Application{
		Config:     cfg,
		Store:      st,
		Handler:    handler,
		Controller: controller,
		Pools:      pools,
		identity:   identity,
	}, nil
}

// Identity returns the VEN identity the application was bootstrapped with.
func (a *Application) Identity() domain.VENIdentity {
	return a.identity
}

// StartController submits the control loop to the control pool.
func (a *Application) StartController(ctx context.Context) error {
	return a.Pools.SubmitDetached("control", func(ctx context.Context) {
		a.Controller.Run(ctx)
	})
}

// Shutdown releases the store and drains worker pools.
func (a *Application) Shutdown() {
	a.Pools.Shutdown()
	if err := a.Store.Close(); err != nil {
		_ = err // best effort; process is exiting
	}
}
