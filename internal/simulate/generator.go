// Package simulate generates plausible case reports for demos and tests.
// Nothing in the alerting path depends on it.
package simulate

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"wardwatch/internal/types"
)

const (
	// baseCasesPerWard is scaled by each ward's multiplier for the backfill.
	baseCasesPerWard = 8
	historyDays      = 30
	recentDays       = 7
	workerCount      = 15
)

// Pattern biases the diseases generated for a ward.
type Pattern struct {
	Primary    types.Disease
	Secondary  types.Disease
	Multiplier float64
}

// DefaultPatterns matches the built-in reference wards.
var DefaultPatterns = map[string]Pattern{
	"w1":  {types.DiseaseDengue, types.DiseaseCovid, 1.5},
	"w2":  {types.DiseaseCovid, types.DiseaseTyphoid, 0.8},
	"w3":  {types.DiseaseMalaria, types.DiseaseDengue, 1.2},
	"w4":  {types.DiseaseTyphoid, types.DiseaseCholera, 1.3},
	"w5":  {types.DiseaseCovid, types.DiseaseTuberculosis, 1.0},
	"w6":  {types.DiseaseDengue, types.DiseaseMalaria, 1.8},
	"w7":  {types.DiseaseTuberculosis, types.DiseaseCovid, 1.1},
	"w8":  {types.DiseaseCovid, types.DiseaseDengue, 0.7},
	"w9":  {types.DiseaseTyphoid, types.DiseaseDengue, 0.9},
	"w10": {types.DiseaseMalaria, types.DiseaseCholera, 1.6},
}

// DefaultHotspots receive a burst of recent primary-disease cases on Backfill.
var DefaultHotspots = []string{"w1", "w6", "w10"}

// Generator produces case reports. It is not safe for concurrent use because
// *rand.Rand is not.
type Generator struct {
	wards    []types.Ward
	patterns map[string]Pattern
	hotspots []string
	rng      *rand.Rand
	clock    types.Clock
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand injects the random source. Tests pass a seeded PCG.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithSeed is shorthand for WithRand with a PCG seeded by seed.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func WithClock(c types.Clock) Option {
	return func(g *Generator) { g.clock = c }
}

func WithPatterns(p map[string]Pattern) Option {
	return func(g *Generator) { g.patterns = p }
}

func WithHotspots(ids ...string) Option {
	return func(g *Generator) { g.hotspots = ids }
}

func WithIDGenerator(fn func() string) Option {
	return func(g *Generator) { g.newID = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New creates a Generator over wards.
func New(wards []types.Ward, opts ...Option) *Generator {
	g := &Generator{
		wards:    wards,
		patterns: DefaultPatterns,
		hotspots: DefaultHotspots,
		clock:    types.RealClock{},
		newID:    func() string { return "sim_" + uuid.NewString() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g
}

func (g *Generator) pattern(wardID string) Pattern {
	if p, ok := g.patterns[wardID]; ok {
		return p
	}
	return Pattern{Primary: g.randomDisease(), Secondary: g.randomDisease(), Multiplier: 1}
}

func (g *Generator) randomDisease() types.Disease {
	return types.AllDiseases[g.rng.IntN(len(types.AllDiseases))]
}

// pickDisease is 50% primary, 30% secondary, 20% anything.
func (g *Generator) pickDisease(p Pattern) types.Disease {
	r := g.rng.Float64()
	switch {
	case r < 0.5:
		return p.Primary
	case r < 0.8:
		return p.Secondary
	default:
		return g.randomDisease()
	}
}

func (g *Generator) pickSeverity() types.CaseSeverity {
	r := g.rng.Float64()
	switch {
	case r < 0.5:
		return types.CaseSeverityLow
	case r < 0.85:
		return types.CaseSeverityMedium
	default:
		return types.CaseSeverityHigh
	}
}

func ageRange(d types.Disease) (lo, hi int) {
	switch d {
	case types.DiseaseDengue, types.DiseaseMalaria:
		return 5, 65
	case types.DiseaseCovid:
		return 30, 80
	case types.DiseaseTuberculosis:
		return 20, 60
	default:
		return 10, 80
	}
}

func (g *Generator) build(wardID string, d types.Disease, sev types.CaseSeverity, at time.Time, status types.CaseStatus) types.CaseReport {
	lo, hi := ageRange(d)
	age := lo + g.rng.IntN(hi-lo+1)
	gender := types.GenderMale
	if g.rng.IntN(2) == 1 {
		gender = types.GenderFemale
	}
	return types.CaseReport{
		ID:            g.newID(),
		WardID:        wardID,
		Disease:       d,
		Severity:      sev,
		ReportedAt:    at,
		Status:        status,
		PatientAge:    &age,
		PatientGender: gender,
		ReportedBy:    "worker_" + strconv.Itoa(g.rng.IntN(workerCount)),
	}
}

// Next returns one active case reported now in a random ward. It panics when
// the generator has no wards.
func (g *Generator) Next() types.CaseReport {
	w := g.wards[g.rng.IntN(len(g.wards))]
	return g.build(w.ID, g.pickDisease(g.pattern(w.ID)), g.pickSeverity(), g.clock.Now(), types.CaseStatusActive)
}

// Backfill returns a month of history for every ward followed by a burst in
// each hotspot. Cases are ordered by ward, not by time.
func (g *Generator) Backfill() []types.CaseReport {
	now := g.clock.Now()
	var out []types.CaseReport
	for _, w := range g.wards {
		p := g.pattern(w.ID)
		n := int(math.Floor(baseCasesPerWard * p.Multiplier))
		for range n {
			age := time.Duration(g.rng.Float64() * historyDays * 24 * float64(time.Hour))
			at := now.Add(-age)
			status := types.CaseStatusRecovered
			activeP := 0.3
			if age < recentDays*24*time.Hour {
				activeP = 0.8
			}
			if g.rng.Float64() < activeP {
				status = types.CaseStatusActive
			}
			out = append(out, g.build(w.ID, g.pickDisease(p), g.pickSeverity(), at, status))
		}
	}
	for _, id := range g.hotspots {
		out = append(out, g.Surge(id)...)
	}
	return out
}

// Surge returns 5 to 12 active cases of the ward's primary disease spread over
// the last week. Unknown wards yield nothing.
func (g *Generator) Surge(wardID string) []types.CaseReport {
	if !g.hasWard(wardID) {
		return nil
	}
	now := g.clock.Now()
	p := g.pattern(wardID)
	n := 5 + g.rng.IntN(8)
	out := make([]types.CaseReport, 0, n)
	for range n {
		at := now.Add(-time.Duration(g.rng.Float64() * recentDays * 24 * float64(time.Hour)))
		sev := types.CaseSeverityHigh
		if g.rng.Float64() < 0.6 {
			sev = types.CaseSeverityMedium
		}
		out = append(out, g.build(wardID, p.Primary, sev, at, types.CaseStatusActive))
	}
	return out
}

func (g *Generator) hasWard(id string) bool {
	for _, w := range g.wards {
		if w.ID == id {
			return true
		}
	}
	return false
}

// Sink accepts generated cases.
type Sink func(ctx context.Context, report types.CaseReport) error

// Run emits one case per interval into sink until ctx is done. Sink errors are
// logged and do not stop the loop.
func (g *Generator) Run(ctx context.Context, interval time.Duration, sink Sink) error {
	if len(g.wards) == 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.logger.Info("case simulator started", "interval", interval.String(), "wards", len(g.wards))
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("case simulator stopped")
			return nil
		case <-ticker.C:
			report := g.Next()
			if err := sink(ctx, report); err != nil {
				g.logger.Warn("simulated case rejected", "ward_id", report.WardID, "error", err)
			}
		}
	}
}
