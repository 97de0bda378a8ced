// Package worker provides goroutine pool management for the VEN's two
// long-lived loops (poll, control).
//
// Naked goroutines are avoided — all loop dispatch goes through a Pool so
// panics are recovered and shutdown is centrally coordinated.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"oadr2ven.io/ven/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission.
type Pool struct {
	pool *ants.Pool
	name string
}

// Pools is the VEN's worker pool collection: one pool for the poll loop,
// one for the control loop. Per spec §5 there is no parallel sharding of
// events — each pool only ever runs its one long-lived task, but routing
// both through a Pool gives panic recovery and a shared shutdown path.
type Pools struct {
	Poll    *Pool
	Control *Pool

	// serviceCtx is the service lifecycle context for detached tasks
	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig contains worker pool configuration.
type PoolConfig struct {
	PollPoolSize    int
	ControlPoolSize int
}

// DefaultPoolConfig returns default configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		PollPoolSize:    1,
		ControlPoolSize: 1,
	}
}

// NewPools creates the worker pool collection.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	serviceCtx, serviceCancel := context.WithCancel(ctx)

	panicHandler := func(p interface{}) {
		logger.Error("Worker panic recovered",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	pollAnts, err := ants.NewPool(cfg.PollPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
	)
	if err != nil {
		serviceCancel()
		return nil, err
	}

	controlAnts, err := ants.NewPool(cfg.ControlPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
	)
	if err != nil {
		pollAnts.Release()
		serviceCancel()
		return nil, err
	}

	return &Pools{
		Poll:          &Pool{pool: pollAnts, name: "poll"},
		Control:       &Pool{pool: controlAnts, name: "control"},
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

// Submit submits a context-aware task.
// The task receives the caller's context and SHOULD check ctx.Done() at blocking points.
// If context is already cancelled, returns ctx.Err() immediately without submitting.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return p.pool.Submit(func() {
		select {
		case <-ctx.Done():
			logger.Debug("Task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		default:
		}
		task(ctx)
	})
}

// SubmitDetached submits a detached background task.
// Detached tasks use the service lifecycle context instead of a request context.
// Use this for the poll loop and control loop: work that should survive
// individual transport-call cancellation but still respect graceful shutdown.
func (p *Pools) SubmitDetached(poolName string, task Task) error {
	var pool *Pool
	switch poolName {
	case "poll":
		pool = p.Poll
	case "control":
		pool = p.Control
	default:
		pool = p.Poll
	}

	return pool.pool.Submit(func() {
		select {
		case <-p.serviceCtx.Done():
			logger.Debug("Detached task skipped: service shutting down",
				zap.String("pool", poolName),
			)
			return
		default:
		}
		task(p.serviceCtx)
	})
}

// Shutdown gracefully shuts down all pools with a timeout.
// Cancels the service context first, then waits for running tasks.
func (p *Pools) Shutdown() {
	p.serviceCancel()

	// spec.md §5: worker joins must complete within a bounded timeout (≈2s).
	const shutdownTimeout = 2 * time.Second
	if err := p.Poll.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("Poll pool shutdown timeout", zap.Error(err))
	}
	if err := p.Control.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("Control pool shutdown timeout", zap.Error(err))
	}
}

// Metrics returns pool metrics for observability.
func (p *Pools) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"poll": map[string]int{
			"running": p.Poll.pool.Running(),
			"free":    p.Poll.pool.Free(),
			"cap":     p.Poll.pool.Cap(),
		},
		"control": map[string]int{
			"running": p.Control.pool.Running(),
			"free":    p.Control.pool.Free(),
			"cap":     p.Control.pool.Cap(),
		},
	}
}
