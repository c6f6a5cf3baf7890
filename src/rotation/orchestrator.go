package rotation

import (
	"sort"
	"sync"
	"time"

	"market-rotator/src/logger"
	"market-rotator/src/models"
	"market-rotator/src/utils"
)

// -----------------------------------------------------------------------------
// Orchestrator
//
// Owns one scheduler per display group, each driven by its own periodic
// timer. Signals are broadcast to every group; stopping one group's timer
// never affects the others.
// -----------------------------------------------------------------------------

// RotationCallback receives each rotation cycle for one group.
type RotationCallback func(groupID string, items []string)

type rotationGroup struct {
	scheduler  *Scheduler
	onRotation RotationCallback
	stop       chan struct{}
}

// -----------------------------------------------------------------------------

type Orchestrator struct {
	Logger *logger.Logger

	mu       sync.Mutex
	groups   map[string]*rotationGroup
	sessions *utils.SessionTracker
	disposed bool
}

// -----------------------------------------------------------------------------

// NewOrchestrator creates an empty orchestrator. sessions may be nil.
func NewOrchestrator(sessions *utils.SessionTracker, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		Logger:   log,
		groups:   make(map[string]*rotationGroup),
		sessions: sessions,
	}
}

// -----------------------------------------------------------------------------

// CreateScheduler instantiates and registers a scheduler for a group,
// replacing (and stopping) any previous one with the same id.
func (o *Orchestrator) CreateScheduler(groupID string, cfg models.MSchedulerConfig, onRotation RotationCallback) *Scheduler {
	o.mu.Lock()
	defer o.mu.Unlock()

	if prev, ok := o.groups[groupID]; ok {
		stopGroupLocked(prev)
	}

	sched := NewScheduler(groupID, cfg, o.sessions, o.Logger.Named("Scheduler-"+groupID))
	o.groups[groupID] = &rotationGroup{scheduler: sched, onRotation: onRotation}
	return sched
}

// -----------------------------------------------------------------------------

// Scheduler returns the scheduler registered for a group.
func (o *Orchestrator) Scheduler(groupID string) (*Scheduler, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, ok := o.groups[groupID]
	if !ok {
		return nil, false
	}
	return g.scheduler, true
}

// -----------------------------------------------------------------------------

// StartRotation stops any prior timer for the group, performs one immediate
// selection, then repeats on a periodic timer. interval <= 0 falls back to
// the group's configured cadence.
func (o *Orchestrator) StartRotation(groupID string, interval time.Duration) bool {
	o.mu.Lock()
	g, ok := o.groups[groupID]
	if !ok || o.disposed {
		o.mu.Unlock()
		return false
	}

	stopGroupLocked(g)

	if interval <= 0 {
		interval = time.Duration(g.scheduler.Config().RotationIntervalSeconds) * time.Second
	}
	if interval <= 0 {
		interval = DefaultRotationInterval
	}

	stop := make(chan struct{})
	g.stop = stop
	sched, cb := g.scheduler, g.onRotation
	o.mu.Unlock()

	o.Logger.Info("Rotation started for group %s every %v", groupID, interval)

	deliver := func() {
		items := sched.SelectNextRotation()
		if cb != nil {
			cb(groupID, items)
		}
	}
	deliver()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				deliver()
			}
		}
	}()
	return true
}

// -----------------------------------------------------------------------------

// StopRotation halts the group's timer. Idempotent.
func (o *Orchestrator) StopRotation(groupID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if g, ok := o.groups[groupID]; ok {
		stopGroupLocked(g)
	}
}

// -----------------------------------------------------------------------------

func stopGroupLocked(g *rotationGroup) {
	if g.stop != nil {
		close(g.stop)
		g.stop = nil
	}
}

// -----------------------------------------------------------------------------

// BroadcastSignal forwards a signal to every managed scheduler.
func (o *Orchestrator) BroadcastSignal(sig models.MMarketSignal) {
	o.mu.Lock()
	schedulers := make([]*Scheduler, 0, len(o.groups))
	for _, g := range o.groups {
		schedulers = append(schedulers, g.scheduler)
	}
	o.mu.Unlock()

	for _, sched := range schedulers {
		sched.RegisterSignal(sig)
	}
}

// -----------------------------------------------------------------------------

// GroupIDs lists the managed groups, sorted.
func (o *Orchestrator) GroupIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.groups))
	for id := range o.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// -----------------------------------------------------------------------------

// Stats returns per-group scheduler stats.
func (o *Orchestrator) Stats() map[string]models.MRotationStats {
	o.mu.Lock()
	schedulers := make(map[string]*Scheduler, len(o.groups))
	for id, g := range o.groups {
		schedulers[id] = g.scheduler
	}
	o.mu.Unlock()

	out := make(map[string]models.MRotationStats, len(schedulers))
	for id, sched := range schedulers {
		out[id] = sched.Stats()
	}
	return out
}

// -----------------------------------------------------------------------------

// Dispose stops every timer and clears all schedulers and callbacks.
func (o *Orchestrator) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, g := range o.groups {
		stopGroupLocked(g)
	}
	o.groups = make(map[string]*rotationGroup)
	o.disposed = true
	o.Logger.Info("Orchestrator disposed")
}
