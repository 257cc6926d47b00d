// Package surveillance is the case-reporting front door. Every mutation of
// the case store is followed by a synchronous alert recompute, so callers
// never observe alerts that lag their own report. Run adds a periodic
// recompute so alerts also resolve as cases age out of the window.
package surveillance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"wardwatch/internal/alerts"
	"wardwatch/internal/cases"
	"wardwatch/internal/types"
)

// DefaultInterval is the periodic recompute interval.
const DefaultInterval = 30 * time.Second

// WardSummary is a ward with its derived alert state.
type WardSummary struct {
	types.Ward
	Status types.WardStatus `json:"status"`
	Alerts []types.Alert    `json:"alerts"`
}

// Service wires the case store to the alert engine.
type Service struct {
	store    *cases.Store
	engine   *alerts.Engine
	interval time.Duration
	window   time.Duration
	clock    types.Clock
	logger   *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures a Service.
type Option func(*Service)

func WithInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// WithWindow must match the engine's window for WardSummaries to agree
// with the alert set.
func WithWindow(d time.Duration) Option {
	return func(s *Service) { s.window = d }
}

func WithClock(c types.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(store *cases.Store, engine *alerts.Engine, opts ...Option) *Service {
	s := &Service{
		store:    store,
		engine:   engine,
		interval: DefaultInterval,
		window:   alerts.DefaultWindow,
		clock:    types.RealClock{},
		logger:   slog.Default(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReportCase stores report and recomputes alerts. A recompute failure does
// not undo the stored case; it is returned alongside it.
func (s *Service) ReportCase(ctx context.Context, report types.CaseReport) (types.CaseReport, alerts.Delta, error) {
	stored, err := s.store.AddCase(report)
	if err != nil {
		return types.CaseReport{}, alerts.Delta{}, err
	}
	delta, err := s.engine.Recompute(ctx)
	return stored, delta, err
}

// UpdateCaseStatus changes a case's status and recomputes alerts.
func (s *Service) UpdateCaseStatus(ctx context.Context, caseID string, status types.CaseStatus) (types.CaseReport, alerts.Delta, error) {
	updated, err := s.store.UpdateStatus(caseID, status)
	if err != nil {
		return types.CaseReport{}, alerts.Delta{}, err
	}
	delta, err := s.engine.Recompute(ctx)
	return updated, delta, err
}

// Run recomputes immediately and then on every tick until ctx is cancelled
// or Stop is called. Recompute errors are logged and the loop continues.
func (s *Service) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "surveillance loop starting", "interval", s.interval)
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("surveillance loop stopped", "reason", ctx.Err())
			return nil
		case <-s.stop:
			s.logger.Info("surveillance loop stopped", "reason", "stop requested")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Service) tick(ctx context.Context) {
	if _, err := s.engine.Recompute(ctx); err != nil {
		s.logger.ErrorContext(ctx, "periodic alert recompute failed", "error", err)
	}
}

// Alerts returns the active alerts in display order.
func (s *Service) Alerts() []types.Alert {
	return s.engine.Active()
}

// WardSummaries returns every ward with its active alerts and recent case
// count.
func (s *Service) WardSummaries() []WardSummary {
	wards := s.store.Wards().All()
	out := make([]WardSummary, 0, len(wards))
	for _, w := range wards {
		out = append(out, s.summarize(w))
	}
	return out
}

// WardSummary returns the summary of one ward.
func (s *Service) WardSummary(wardID string) (WardSummary, error) {
	w, ok := s.store.Wards().Get(wardID)
	if !ok {
		return WardSummary{}, types.NewAppErrorWithDetails(types.ErrCodeNotFoundWard,
			"ward not found", nil, map[string]any{"ward_id": wardID})
	}
	return s.summarize(w), nil
}

// Locate returns the summary of the ward containing p.
func (s *Service) Locate(p types.Point) (WardSummary, bool) {
	w, ok := s.store.Wards().Locate(p)
	if !ok {
		return WardSummary{}, false
	}
	return s.summarize(w), true
}

func (s *Service) summarize(w types.Ward) WardSummary {
	active := s.engine.ActiveForWard(w.ID)
	recent := 0
	for _, n := range s.store.CountByDisease(w.ID, s.clock.Now().Add(-s.window)) {
		recent += n
	}
	w.ActiveAlertCount = len(active)
	w.RecentCaseCount = recent
	if active == nil {
		active = []types.Alert{}
	}
	return WardSummary{Ward: w, Status: alerts.WardStatus(active), Alerts: active}
}
