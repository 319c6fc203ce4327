package health

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ComponentStatus is the readiness of one registered component.
type ComponentStatus struct {
	Name      string
	Ready     bool
	StartedAt time.Time
	ReadyAt   time.Time
}

// ComponentManager registers components that must become ready before work starts.
type ComponentManager interface {
	// AddComponent registers a component and returns a function that marks it ready.
	AddComponent(name string) func()
}

// ReadinessWaiter waits until every registered component is ready.
type ReadinessWaiter interface {
	IsReady() bool
	Status() []ComponentStatus
	WaitReady(ctx context.Context) error
}

type component struct {
	name      string
	ready     bool
	startedAt time.Time
	readyAt   time.Time
}

// Readiness tracks connectors (mongo, kafka) that connect in fx OnStart
// hooks, so commands can wait for them before moving records.
type Readiness struct {
	mu         sync.Mutex
	components map[string]*component
	changed    chan struct{}
	logger     *zap.Logger
}

func NewReadiness(logger *zap.Logger) *Readiness {
	return &Readiness{
		components: make(map[string]*component),
		changed:    make(chan struct{}),
		logger:     logger,
	}
}

func (r *Readiness) AddComponent(name string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; !exists {
		r.components[name] = &component{name: name, startedAt: time.Now()}
		r.notifyLocked()
	}
	return func() { r.markReady(name) }
}

func (r *Readiness) markReady(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, exists := r.components[name]
	if !exists || comp.ready {
		return
	}
	comp.ready = true
	comp.readyAt = time.Now()
	r.logger.Debug("component ready",
		zap.String("component", name),
		zap.Duration("took", comp.readyAt.Sub(comp.startedAt)),
	)
	r.notifyLocked()
}

// notifyLocked wakes every waiter. Callers hold r.mu.
func (r *Readiness) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *Readiness) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readyLocked()
}

func (r *Readiness) readyLocked() bool {
	for _, c := range r.components {
		if !c.ready {
			return false
		}
	}
	return true
}

// Status returns the components sorted by name.
func (r *Readiness) Status() []ComponentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ComponentStatus, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, ComponentStatus{Name: c.name, Ready: c.ready, StartedAt: c.startedAt, ReadyAt: c.readyAt})
	}
	slices.SortFunc(out, func(a, b ComponentStatus) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// WaitReady blocks until every registered component is ready or ctx is done.
// With no registered components it returns immediately.
func (r *Readiness) WaitReady(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.readyLocked() {
			r.mu.Unlock()
			return nil
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
