// Package location turns a stream of position fixes into tracker state
// transitions and movement events.
//
// States:
//
//	Idle -> Requesting -> Tracking <-> Error
//	any  -> Idle (Stop)
//
// All listener callbacks run on a single delivery goroutine in source order.
// Stop waits for that goroutine, so no callback runs after Stop returns.
// Listeners must not call Stop or Start synchronously.
package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wardwatch/internal/geo"
	"wardwatch/internal/types"
)

// State of a Tracker.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateTracking   State = "tracking"
	StateError      State = "error"
)

// Defaults for Config.
const (
	DefaultMinorMoveMeters = 50
	DefaultMajorMoveMeters = 500
	DefaultFirstFixTimeout = 5 * time.Second
)

// Config holds the tracker thresholds.
type Config struct {
	// MinorMoveMeters is the movement below which fixes are absorbed
	// without a Move event.
	MinorMoveMeters float64
	FirstFixTimeout time.Duration
}

// Move reports a significant change of position.
type Move struct {
	Location types.TrackedLocation
	// MovedMeters is the distance from the previously reported location,
	// zero on the first fix.
	MovedMeters float64
	First       bool
}

// Major reports whether the move warrants a fresh facility search.
func (m Move) Major(thresholdMeters float64) bool {
	return m.First || m.MovedMeters > thresholdMeters
}

// StateChange reports a tracker transition. Err is set when To is StateError.
type StateChange struct {
	From State
	To   State
	Err  error
}

type (
	MoveListener  func(Move)
	StateListener func(StateChange)
)

// Snapshot is a point-in-time view of a Tracker.
type Snapshot struct {
	State    State                  `json:"state"`
	Location *types.TrackedLocation `json:"location,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Tracker follows a PositionSource.
type Tracker struct {
	source PositionSource
	cfg    Config
	logger types.Logger

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	mu       sync.Mutex
	state    State
	lastErr  error
	current  *types.TrackedLocation
	reported *types.TrackedLocation

	listenerMu     sync.Mutex
	moveListeners  map[int]MoveListener
	stateListeners map[int]StateListener
	nextID         int
}

// NewTracker creates an idle Tracker. Zero Config fields take the defaults.
func NewTracker(source PositionSource, cfg Config, logger types.Logger) *Tracker {
	if cfg.MinorMoveMeters <= 0 {
		cfg.MinorMoveMeters = DefaultMinorMoveMeters
	}
	if cfg.FirstFixTimeout <= 0 {
		cfg.FirstFixTimeout = DefaultFirstFixTimeout
	}
	if logger == nil {
		logger = types.NewSlogLogger(nil)
	}
	return &Tracker{
		source:         source,
		cfg:            cfg,
		logger:         logger,
		state:          StateIdle,
		moveListeners:  make(map[int]MoveListener),
		stateListeners: make(map[int]StateListener),
	}
}

// OnMove registers l and returns a function that removes it.
func (t *Tracker) OnMove(l MoveListener) func() {
	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()
	id := t.nextID
	t.nextID++
	t.moveListeners[id] = l
	return func() {
		t.listenerMu.Lock()
		delete(t.moveListeners, id)
		t.listenerMu.Unlock()
	}
}

// OnStateChange registers l and returns a function that removes it.
func (t *Tracker) OnStateChange(l StateListener) func() {
	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()
	id := t.nextID
	t.nextID++
	t.stateListeners[id] = l
	return func() {
		t.listenerMu.Lock()
		delete(t.stateListeners, id)
		t.listenerMu.Unlock()
	}
}

// Start subscribes to the source. It is valid from Idle and Error; starting
// from Error restarts the subscription. Cancelling ctx ends the session like
// Stop, but silently.
func (t *Tracker) Start(ctx context.Context) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	switch s := t.State(); s {
	case StateRequesting, StateTracking:
		return types.NewAppErrorWithDetails(types.ErrCodeConflictTrackerState,
			fmt.Sprintf("tracker already %s", s), nil,
			map[string]any{"state": string(s)})
	}
	t.halt()

	runCtx, cancel := context.WithCancel(ctx)
	updates, err := t.source.Watch(runCtx)
	if err != nil {
		cancel()
		if !types.IsLocation(err) {
			err = NewLocationError(types.ErrCodeLocationUnavailable, err.Error())
		}
		t.deliverState(t.transition(StateError, err))
		return err
	}

	change := t.transition(StateRequesting, nil)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(runCtx, updates, change, t.done)
	return nil
}

// Stop releases the subscription and returns the tracker to Idle. No
// listener is invoked after Stop returns, except the final Idle transition
// which Stop delivers itself.
func (t *Tracker) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	from := t.State()
	t.halt()
	t.transition(StateIdle, nil)
	if from != StateIdle {
		t.deliverState(StateChange{From: from, To: StateIdle})
	}
}

// halt cancels the delivery goroutine and waits for it. Caller holds lifecycle.
func (t *Tracker) halt() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot returns the current state, last fix and last error.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{State: t.state}
	if t.current != nil {
		loc := *t.current
		s.Location = &loc
	}
	if t.state == StateError && t.lastErr != nil {
		s.Error = string(types.CodeOf(t.lastErr))
	}
	return s
}

func (t *Tracker) run(ctx context.Context, updates <-chan PositionUpdate, initial StateChange, done chan<- struct{}) {
	defer close(done)

	t.deliverState(initial)

	timeout := time.NewTimer(t.cfg.FirstFixTimeout)
	defer timeout.Stop()
	timeoutC := timeout.C

	for {
		select {
		case <-ctx.Done():
			// Cancelled by Stop or by the caller's context; either way the
			// session is over.
			t.transition(StateIdle, nil)
			return

		case <-timeoutC:
			timeoutC = nil
			if t.State() == StateRequesting {
				t.fail(ctx, NewLocationError(types.ErrCodeLocationTimeout, "no position fix before timeout"))
			}

		case u, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					t.transition(StateIdle, nil)
				} else {
					t.fail(ctx, NewLocationError(types.ErrCodeLocationUnavailable, "position source closed"))
				}
				return
			}
			if u.Err != nil {
				t.fail(ctx, u.Err)
				continue
			}
			timeoutC = nil
			t.handleFix(ctx, u.Fix)
		}
	}
}

func (t *Tracker) fail(ctx context.Context, err error) {
	if !types.IsLocation(err) {
		err = NewLocationError(types.ErrCodeLocationUnavailable, err.Error())
	}
	t.logger.Warn("location unavailable", "error_code", string(types.CodeOf(err)))
	change := t.transition(StateError, err)
	if ctx.Err() == nil {
		t.deliverState(change)
	}
}

func (t *Tracker) handleFix(ctx context.Context, fix types.TrackedLocation) {
	t.mu.Lock()
	from := t.state
	t.state = StateTracking
	t.lastErr = nil
	t.current = &fix

	var move *Move
	switch {
	case t.reported == nil:
		move = &Move{Location: fix, First: true}
	default:
		if d := geo.DistanceMeters(t.reported.Point, fix.Point); d > t.cfg.MinorMoveMeters {
			move = &Move{Location: fix, MovedMeters: d}
		}
	}
	if move != nil {
		t.reported = &fix
	}
	t.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if from != StateTracking {
		t.deliverState(StateChange{From: from, To: StateTracking})
	}
	if move != nil {
		t.deliverMove(*move)
	}
}

// transition sets the state and returns the change. Entering Idle forgets
// the positions so the next session starts fresh.
func (t *Tracker) transition(to State, err error) StateChange {
	t.mu.Lock()
	defer t.mu.Unlock()
	change := StateChange{From: t.state, To: to, Err: err}
	t.state = to
	t.lastErr = err
	if to == StateIdle {
		t.reported = nil
		t.current = nil
	}
	return change
}

func (t *Tracker) deliverState(c StateChange) {
	t.listenerMu.Lock()
	ls := make([]StateListener, 0, len(t.stateListeners))
	for _, l := range t.stateListeners {
		ls = append(ls, l)
	}
	t.listenerMu.Unlock()
	for _, l := range ls {
		l(c)
	}
}

func (t *Tracker) deliverMove(m Move) {
	t.listenerMu.Lock()
	ls := make([]MoveListener, 0, len(t.moveListeners))
	for _, l := range t.moveListeners {
		ls = append(ls, l)
	}
	t.listenerMu.Unlock()
	for _, l := range ls {
		l(m)
	}
}

// ErrorCode extracts the location error code from a StateChange, or "".
func (c StateChange) ErrorCode() types.ErrorCode {
	if c.Err == nil {
		return ""
	}
	var appErr *types.AppError
	if errors.As(c.Err, &appErr) {
		return appErr.Code
	}
	return ""
}
