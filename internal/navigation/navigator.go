// Package navigation keeps the citizen's nearest-facility list and the
// route to the selected facility in step with tracker movement.
//
// Every move or selection starts a computation with a new sequence number
// and cancels the one in flight. A computation commits only if its number
// is still the latest, so a slow superseded route is dropped rather than
// merged into a newer snapshot.
package navigation

import (
	"context"
	"slices"
	"sync"
	"time"

	"wardwatch/internal/location"
	"wardwatch/internal/proximity"
	"wardwatch/internal/routing"
	"wardwatch/internal/types"
)

// RouteComputer produces a route. routing.Provider never fails, so neither
// does this.
type RouteComputer interface {
	ComputeRoute(ctx context.Context, origin, destination types.Point) routing.Route
}

// Config holds the search parameters.
type Config struct {
	MajorMoveMeters float64
	RadiusKm        float64
	MaxResults      int
}

// Snapshot is the navigation state published to listeners.
type Snapshot struct {
	Seq          uint64                 `json:"seq"`
	Location     *types.TrackedLocation `json:"location,omitempty"`
	Facilities   []proximity.Ranked     `json:"facilities"`
	Selected     *proximity.Ranked      `json:"selected,omitempty"`
	UserSelected bool                   `json:"user_selected"`
	Route        *routing.Route         `json:"route,omitempty"`
	Error        types.ErrorCode        `json:"error,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Listener receives every committed snapshot in commit order.
type Listener func(Snapshot)

// Navigator reacts to tracker moves and facility selection.
type Navigator struct {
	source proximity.FacilitySource
	router RouteComputer
	cfg    Config
	clock  types.Clock
	logger types.Logger

	mu         sync.Mutex
	seq        uint64
	cancel     context.CancelFunc
	location   *types.TrackedLocation
	candidates []types.Facility
	selectedID string
	snap       Snapshot
	// pendingSearch survives supersession until a search result commits.
	pendingSearch bool

	// commitMu keeps listener delivery in commit order.
	commitMu sync.Mutex
	inflight sync.WaitGroup

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int
}

// Option configures a Navigator.
type Option func(*Navigator)

func WithClock(c types.Clock) Option {
	return func(n *Navigator) { n.clock = c }
}

func WithLogger(l types.Logger) Option {
	return func(n *Navigator) { n.logger = l }
}

func New(source proximity.FacilitySource, router RouteComputer, cfg Config, opts ...Option) *Navigator {
	if cfg.MajorMoveMeters <= 0 {
		cfg.MajorMoveMeters = location.DefaultMajorMoveMeters
	}
	n := &Navigator{
		source:    source,
		router:    router,
		cfg:       cfg,
		clock:     types.RealClock{},
		logger:    types.NewSlogLogger(nil),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Attach subscribes the navigator to tracker moves and returns the
// unsubscribe function.
func (n *Navigator) Attach(t *location.Tracker) func() {
	return t.OnMove(n.HandleMove)
}

// HandleMove starts a recomputation for m. A first fix or a major move
// triggers a fresh facility search; a minor move re-ranks the current list.
// It returns immediately.
func (n *Navigator) HandleMove(m location.Move) {
	fix := m.Location
	n.start(&fix, m.Major(n.cfg.MajorMoveMeters))
}

// Select pins facilityID as the destination and recomputes the route.
// The facility must be in the current candidate list.
func (n *Navigator) Select(facilityID string) error {
	n.mu.Lock()
	found := slices.ContainsFunc(n.candidates, func(f types.Facility) bool { return f.ID == facilityID })
	if !found {
		n.mu.Unlock()
		return types.NewAppErrorWithDetails(types.ErrCodeNotFoundFacility,
			"facility is not among the nearby candidates", nil,
			map[string]any{"facility_id": facilityID})
	}
	n.selectedID = facilityID
	n.mu.Unlock()

	n.start(nil, false)
	return nil
}

// ClearSelection returns to automatic nearest-facility selection.
func (n *Navigator) ClearSelection() {
	n.mu.Lock()
	n.selectedID = ""
	n.mu.Unlock()
	n.start(nil, false)
}

// Current returns the latest committed snapshot.
func (n *Navigator) Current() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return cloneSnapshot(n.snap)
}

// Subscribe registers l and returns a function that removes it.
func (n *Navigator) Subscribe(l Listener) func() {
	n.listenerMu.Lock()
	defer n.listenerMu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	return func() {
		n.listenerMu.Lock()
		delete(n.listeners, id)
		n.listenerMu.Unlock()
	}
}

// Wait blocks until no computation is in flight.
func (n *Navigator) Wait() {
	n.inflight.Wait()
}

// Close cancels the computation in flight and waits for it to finish.
func (n *Navigator) Close() {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	n.mu.Unlock()
	n.inflight.Wait()
}

type job struct {
	seq        uint64
	origin     types.TrackedLocation
	search     bool
	candidates []types.Facility
	selectedID string
}

// start supersedes any running computation. A nil fix reuses the last
// known location.
func (n *Navigator) start(fix *types.TrackedLocation, search bool) {
	n.mu.Lock()
	if fix != nil {
		n.location = fix
	}
	if n.location == nil {
		n.mu.Unlock()
		return
	}
	if n.cancel != nil {
		n.cancel()
	}
	if search {
		n.pendingSearch = true
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.seq++
	n.cancel = cancel
	j := job{
		seq:        n.seq,
		origin:     *n.location,
		search:     n.pendingSearch || len(n.candidates) == 0,
		candidates: n.candidates,
		selectedID: n.selectedID,
	}
	n.inflight.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.inflight.Done()
		defer cancel()
		n.compute(ctx, j)
	}()
}

func (n *Navigator) compute(ctx context.Context, j job) {
	candidates := j.candidates
	searched := false
	if j.search {
		found, err := n.source.Nearby(ctx, j.origin.Point, n.cfg.RadiusKm, n.cfg.MaxResults)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			n.logger.Warn("facility search failed, keeping previous list",
				"origin", j.origin.Point.String(),
				"error", err.Error(),
			)
		} else {
			candidates = found
			searched = true
		}
	}

	snap := Snapshot{
		Seq:        j.seq,
		Location:   &j.origin,
		Facilities: proximity.Rank(j.origin.Point, candidates, n.cfg.MaxResults),
	}

	selectedID := j.selectedID
	if selectedID != "" && !slices.ContainsFunc(snap.Facilities, func(r proximity.Ranked) bool { return r.Facility.ID == selectedID }) {
		// The pinned facility dropped out of range.
		selectedID = ""
	}
	for i := range snap.Facilities {
		if selectedID == "" || snap.Facilities[i].Facility.ID == selectedID {
			sel := snap.Facilities[i]
			snap.Selected = &sel
			snap.UserSelected = selectedID != ""
			break
		}
	}

	if snap.Selected == nil {
		snap.Error = types.ErrCodeNoFacility
	} else {
		route := n.router.ComputeRoute(ctx, j.origin.Point, snap.Selected.Facility.Location)
		if ctx.Err() != nil {
			return
		}
		snap.Route = &route
	}
	snap.UpdatedAt = n.clock.Now()

	n.commit(snap, candidates, selectedID, searched)
}

// commit publishes snap if it is still the latest. A failed search leaves
// pendingSearch set so the next move retries it.
func (n *Navigator) commit(snap Snapshot, candidates []types.Facility, selectedID string, searched bool) {
	n.commitMu.Lock()
	defer n.commitMu.Unlock()

	n.mu.Lock()
	if snap.Seq != n.seq {
		n.mu.Unlock()
		n.logger.Info("discarding superseded navigation result", "seq", snap.Seq)
		return
	}
	n.candidates = candidates
	n.selectedID = selectedID
	n.snap = snap
	if searched {
		n.pendingSearch = false
	}
	n.mu.Unlock()

	n.listenerMu.Lock()
	ls := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		ls = append(ls, l)
	}
	n.listenerMu.Unlock()

	for _, l := range ls {
		l(cloneSnapshot(snap))
	}
}

func cloneSnapshot(s Snapshot) Snapshot {
	s.Facilities = slices.Clone(s.Facilities)
	if s.Location != nil {
		loc := *s.Location
		s.Location = &loc
	}
	if s.Selected != nil {
		sel := *s.Selected
		s.Selected = &sel
	}
	if s.Route != nil {
		r := *s.Route
		r.Points = slices.Clone(r.Points)
		s.Route = &r
	}
	return s
}
