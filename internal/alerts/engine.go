// Package alerts turns the trailing window of case reports into per-ward,
// per-disease outbreak alerts. Evaluate is the pure core; Engine owns the
// previous alert set, swaps it atomically and fans the resulting deltas out
// to notifiers, metrics and listeners.
package alerts

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"wardwatch/internal/types"
)

// WardSource lists the wards to evaluate. Satisfied by cases.WardRegistry.
type WardSource interface {
	All() []types.Ward
}

// Listener receives every non-empty delta in recompute order.
type Listener func(Delta)

// Engine holds the live alert set.
type Engine struct {
	// recomputeMu serializes Recompute including its side effects so that
	// deltas are delivered in the order they were computed.
	recomputeMu sync.Mutex

	mu     sync.RWMutex
	active map[types.AlertKey]types.Alert

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int

	wards      WardSource
	cases      CaseCounter
	thresholds map[types.Disease]types.Threshold
	window     time.Duration
	clock      types.Clock
	notifier   Notifier
	metrics    Metrics
	logger     types.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithThresholds(t map[types.Disease]types.Threshold) EngineOption {
	return func(e *Engine) { e.thresholds = t }
}

func WithWindow(d time.Duration) EngineOption {
	return func(e *Engine) { e.window = d }
}

func WithClock(c types.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

func WithMetrics(m Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l types.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine with an empty alert set. The threshold table
// is validated up front.
func NewEngine(wards WardSource, cases CaseCounter, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		active:     make(map[types.AlertKey]types.Alert),
		listeners:  make(map[int]Listener),
		wards:      wards,
		cases:      cases,
		thresholds: DefaultThresholds,
		window:     DefaultWindow,
		clock:      types.RealClock{},
		notifier:   NoopNotifier{},
		metrics:    NoopMetrics{},
		logger:     types.NewSlogLogger(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := ValidateThresholds(e.thresholds); err != nil {
		return nil, err
	}
	e.logger = e.logger.With("component", "alert_engine")
	return e, nil
}

// Recompute evaluates the current case window, replaces the alert set and
// dispatches notifications for newly raised alerts and warning-to-critical
// escalations. Resolutions are delivered to listeners only.
func (e *Engine) Recompute(ctx context.Context) (Delta, error) {
	e.recomputeMu.Lock()
	defer e.recomputeMu.Unlock()

	start := time.Now()

	e.mu.RLock()
	previous := e.active
	e.mu.RUnlock()

	res, err := Evaluate(Input{
		Now:        e.clock.Now(),
		Window:     e.window,
		Wards:      e.wards.All(),
		Thresholds: e.thresholds,
		Cases:      e.cases,
	}, previous)
	if err != nil {
		e.logger.Error("alert evaluation failed", "error", err)
		return Delta{}, err
	}

	e.mu.Lock()
	e.active = res.Alerts
	e.mu.Unlock()

	for _, n := range res.Notifications {
		if err := e.notifier.Notify(ctx, n); err != nil {
			// The alert set has already moved on; a failed send is not retried.
			e.logger.Error("alert notification failed",
				"alert_id", n.Alert.ID,
				"severity", n.Severity,
				"error", err,
			)
		}
	}

	stats := Stats{Delta: res.Delta, Duration: time.Since(start).Milliseconds()}
	for _, a := range res.Alerts {
		if a.Severity == types.AlertCritical {
			stats.ActiveCritical++
		} else {
			stats.ActiveWarning++
		}
	}
	e.metrics.RecordRecompute(ctx, stats)

	if !res.Delta.Empty() {
		e.logger.Info("alert set changed",
			"raised", len(res.Delta.Raised),
			"escalated", len(res.Delta.Escalated),
			"deescalated", len(res.Delta.Deescalated),
			"resolved", len(res.Delta.Resolved),
			"active", len(res.Alerts),
		)
		for _, l := range e.snapshotListeners() {
			l(res.Delta)
		}
	}

	return res.Delta, nil
}

// Active returns the current alerts, critical first then by id.
func (e *Engine) Active() []types.Alert {
	e.mu.RLock()
	out := slices.Collect(maps.Values(e.active))
	e.mu.RUnlock()

	slices.SortFunc(out, func(a, b types.Alert) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return SortForDisplay(out)
}

// ActiveForWard returns the current alerts of one ward.
func (e *Engine) ActiveForWard(wardID string) []types.Alert {
	var out []types.Alert
	for _, a := range e.Active() {
		if a.WardID == wardID {
			out = append(out, a)
		}
	}
	return out
}

// Get returns the alert with the given identity.
func (e *Engine) Get(key types.AlertKey) (types.Alert, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.active[key]
	return a, ok
}

// Subscribe registers a delta listener and returns a function removing it.
// Listeners run on the recomputing goroutine and must not call Recompute.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.listenerMu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.listenerMu.Unlock()

	return func() {
		e.listenerMu.Lock()
		delete(e.listeners, id)
		e.listenerMu.Unlock()
	}
}

func (e *Engine) snapshotListeners() []Listener {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()

	ids := slices.Sorted(maps.Keys(e.listeners))
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.listeners[id])
	}
	return out
}
