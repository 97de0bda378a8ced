// Package control implements the Event Controller: the long-lived loop
// that reads the Event Store snapshot, resolves the currently active
// signal level across all known events, and notifies a Sink when it
// changes (spec.md §4.4).
package control

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"oadr2ven.io/ven/internal/domain"
	"oadr2ven.io/ven/internal/pkg/logger"
	"oadr2ven.io/ven/internal/schedule"
	"oadr2ven.io/ven/internal/store"
)

// Store is the subset of the Event Store the controller reads.
type Store interface {
	GetActiveEvents(ctx context.Context) ([]store.Record, error)
	Remove(ctx context.Context, vtnID string, eventIDs []string) (int64, error)
}

// Sink receives the resolved control signal whenever it changes. The
// default LoggingSink only logs; transport adapters or real control
// collaborators implement their own Sink to drive hardware or a relay.
type Sink interface {
	SignalChanged(ctx context.Context, oldLevel, newLevel float64)
}

// LoggingSink is the default Sink: it logs the transition and does
// nothing else.
type LoggingSink struct{}

// SignalChanged logs the level transition.
func (LoggingSink) SignalChanged(_ context.Context, oldLevel, newLevel float64) {
	logger.Debug("signal level changed", zap.Float64("old_level", oldLevel), zap.Float64("new_level", newLevel))
}

// Controller is the Event Controller. It is constructed once at startup
// and owns its own loop goroutine, submitted through the control worker
// pool (spec.md §5).
type Controller struct {
	identity domain.VENIdentity
	store    Store
	sink     Sink
	lock     *sync.Mutex
	interval time.Duration

	mu           sync.Mutex
	currentLevel float64
	currentEvent string

	wake chan struct{}
	now  func() time.Time
}

// New constructs an Event Controller. lock must be the same mutex given to
// the Event Handler so handle_payload and the controller's per-tick read
// are serialized (spec.md §5).
func New(identity domain.VENIdentity, st Store, sink Sink, lock *sync.Mutex, interval time.Duration) *Controller {
	if sink == nil {
		sink = LoggingSink{}
	}
	return &Controller{
		identity: identity,
		store:    st,
		sink:     sink,
		lock:     lock,
		interval: interval,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// SignalUpdated wakes the control loop immediately, ahead of its next
// scheduled tick. Transport adapters call this right after persisting a
// payload that may have changed event state (spec.md §4.4).
func (c *Controller) SignalUpdated() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// CurrentSignal returns the most recently resolved signal level, the id of
// the event that produced it, and whether any active event currently
// contributes a signal.
func (c *Controller) CurrentSignal() (level float64, eventID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLevel, c.currentEvent, c.currentEvent != ""
}

// Run executes the control loop until ctx is cancelled: on each tick (or
// each SignalUpdated wakeup) it reads the store snapshot, resolves the
// highest active signal level, removes events it has found to have ended,
// and notifies the Sink on change.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.tick(ctx)

		select {
		case <-ctx.Done():
			logger.Info("control loop exiting")
			return
		case <-ticker.C:
		case <-c.wake:
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	records, err := c.readSnapshot(ctx)
	if err != nil {
		logger.Error("control loop failed to read event store", zap.Error(err))
		return
	}

	level, eventID, expired := c.resolve(records)

	if len(expired) > 0 {
		c.removeExpired(ctx, expired)
	}

	c.mu.Lock()
	oldLevel := c.currentLevel
	changed := oldLevel != level
	c.currentLevel = level
	c.currentEvent = eventID
	c.mu.Unlock()

	if changed {
		c.sink.SignalChanged(ctx, oldLevel, level)
	}
}

func (c *Controller) readSnapshot(ctx context.Context) ([]store.Record, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetActiveEvents(ctx)
}

type expiredEvent struct {
	vtnID   string
	eventID string
}

// resolve walks every stored record, skipping events that don't target this
// VEN, and returns the highest currently-active simple signal level, the id
// of the event that produced it, and the set of events found to have ended.
func (c *Controller) resolve(records []store.Record) (level float64, eventID string, expired []expiredEvent) {
	now := c.now()
	highest := 0.0
	var highestEventID string

	for _, rec := range records {
		event, ok := decodeEvent(rec)
		if !ok {
			logger.Warn("control loop skipping unparseable event", zap.String("event_id", rec.EventID))
			continue
		}

		if event.Targeting.IsSpecified() && !event.Targeting.Matches(c.identity) {
			continue
		}

		signals := event.UsableSignals()
		if len(signals) == 0 {
			continue
		}

		durs := make([]string, len(signals[0].Intervals))
		for i, iv := range signals[0].Intervals {
			durs[i] = iv.Duration
		}

		idx, ended, err := schedule.ChooseInterval(event.ActivePeriodStart, durs, now)
		if err != nil {
			logger.Warn("control loop failed to resolve interval", zap.String("event_id", rec.EventID), zap.Error(err))
			continue
		}
		if ended {
			expired = append(expired, expiredEvent{vtnID: rec.VtnID, eventID: rec.EventID})
			continue
		}
		if idx < 0 {
			continue
		}

		value := signals[0].Intervals[idx].Payload
		if value > highest {
			highest = value
			highestEventID = rec.EventID
		}
	}

	return highest, highestEventID, expired
}

func (c *Controller) removeExpired(ctx context.Context, expired []expiredEvent) {
	byVtn := make(map[string][]string)
	for _, e := range expired {
		byVtn[e.vtnID] = append(byVtn[e.vtnID], e.eventID)
	}
	for vtnID, ids := range byVtn {
		if _, err := c.store.Remove(ctx, vtnID, ids); err != nil {
			logger.Error("control loop failed to remove expired events", zap.String("vtn_id", vtnID), zap.Error(err))
		}
	}
}
