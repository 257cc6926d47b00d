package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wardwatch/internal/cases"
	"wardwatch/internal/types"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type recordingMetrics struct {
	stats []Stats
}

func (r *recordingMetrics) RecordRecompute(_ context.Context, s Stats) {
	r.stats = append(r.stats, s)
}

func discardLogger() types.Logger {
	return types.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fixture struct {
	store    *cases.Store
	engine   *Engine
	clock    *mockClock
	notifier *mockNotifier
	metrics  *recordingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	wards, err := cases.NewWardRegistry([]types.Ward{{
		ID:         "w1",
		Name:       "Mumbai",
		Population: 100000,
		Boundary: []types.Point{
			{Lat: 19.0760, Lng: 72.8777}, {Lat: 19.15, Lng: 72.95},
			{Lat: 19.05, Lng: 73.0}, {Lat: 18.95, Lng: 72.9},
		},
	}})
	require.NoError(t, err)

	f := &fixture{
		store:    cases.NewStore(wards, cases.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))),
		clock:    &mockClock{now: t0},
		notifier: &mockNotifier{},
		metrics:  &recordingMetrics{},
	}
	f.engine, err = NewEngine(wards, f.store,
		WithClock(f.clock),
		WithNotifier(f.notifier),
		WithMetrics(f.metrics),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	return f
}

func (f *fixture) addDengue(t *testing.T, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.store.AddCase(types.CaseReport{
			WardID:     "w1",
			Disease:    types.DiseaseDengue,
			Severity:   types.CaseSeverityHigh,
			ReportedAt: at,
		})
		require.NoError(t, err)
	}
}

func isSeverity(s types.AlertSeverity) any {
	return mock.MatchedBy(func(n Notification) bool { return n.Severity == s })
}

func TestEngineOutbreakLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Rate 24: warning, notified once.
	f.addDengue(t, 24, t0.Add(-24*time.Hour))
	f.notifier.On("Notify", mock.Anything, isSeverity(types.AlertWarning)).Return(nil).Once()

	delta, err := f.engine.Recompute(ctx)
	require.NoError(t, err)
	require.Len(t, delta.Raised, 1)
	active := f.engine.Active()
	require.Len(t, active, 1)
	assert.Equal(t, types.AlertWarning, active[0].Severity)
	f.notifier.AssertExpectations(t)

	// Two more cases: rate 26, escalated to critical with exactly one critical notification.
	f.addDengue(t, 2, t0)
	f.notifier.On("Notify", mock.Anything, isSeverity(types.AlertCritical)).Return(nil).Once()

	delta, err = f.engine.Recompute(ctx)
	require.NoError(t, err)
	require.Len(t, delta.Escalated, 1)
	a, ok := f.engine.Get(types.AlertKey{WardID: "w1", Disease: types.DiseaseDengue})
	require.True(t, ok)
	assert.Equal(t, types.AlertCritical, a.Severity)
	assert.Equal(t, 26, a.Count)
	f.notifier.AssertNumberOfCalls(t, "Notify", 2)

	// Window passes: resolved silently.
	f.clock.Advance(8 * 24 * time.Hour)
	delta, err = f.engine.Recompute(ctx)
	require.NoError(t, err)
	require.Len(t, delta.Resolved, 1)
	assert.Empty(t, f.engine.Active())
	f.notifier.AssertNumberOfCalls(t, "Notify", 2)

	require.Len(t, f.metrics.stats, 3)
	assert.Equal(t, 1, f.metrics.stats[0].ActiveWarning)
	assert.Equal(t, 1, f.metrics.stats[1].ActiveCritical)
	assert.Zero(t, f.metrics.stats[2].ActiveCritical+f.metrics.stats[2].ActiveWarning)
}

func TestEngineRecomputeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addDengue(t, 30, t0)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	_, err := f.engine.Recompute(context.Background())
	require.NoError(t, err)
	delta, err := f.engine.Recompute(context.Background())
	require.NoError(t, err)

	assert.True(t, delta.Empty())
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestEngineNotifierFailureDoesNotBlockStateChange(t *testing.T) {
	f := newFixture(t)
	f.addDengue(t, 30, t0)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("queue down"))

	_, err := f.engine.Recompute(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.engine.Active(), 1)

	// No retry on the next cycle.
	_, err = f.engine.Recompute(context.Background())
	require.NoError(t, err)
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestEngineListeners(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	var got []Delta
	unsubscribe := f.engine.Subscribe(func(d Delta) {
		// Reading state from a listener must not deadlock.
		_ = f.engine.Active()
		got = append(got, d)
	})

	_, err := f.engine.Recompute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got, "empty deltas are not delivered")

	f.addDengue(t, 12, t0)
	_, err = f.engine.Recompute(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Raised, 1)

	unsubscribe()
	f.clock.Advance(30 * 24 * time.Hour)
	_, err = f.engine.Recompute(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEngineActiveForWard(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	f.addDengue(t, 12, t0)

	_, err := f.engine.Recompute(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.engine.ActiveForWard("w1"), 1)
	assert.Empty(t, f.engine.ActiveForWard("w2"))
}

func TestNewEngineValidatesThresholds(t *testing.T) {
	wards, err := cases.NewWardRegistry(nil)
	require.NoError(t, err)

	_, err = NewEngine(wards, cases.NewStore(wards), WithThresholds(map[types.Disease]types.Threshold{
		types.DiseaseDengue: {Warning: 30, Critical: 10},
	}))
	assert.True(t, types.IsValidation(err))
}

func TestEngineConcurrentRecompute(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	f.addDengue(t, 26, t0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Recompute(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// The alert was raised exactly once across all concurrent recomputes.
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}
