// Package cases implements the in-memory case report store and the
// read-only ward and facility registries it validates against.
package cases

import (
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"wardwatch/internal/types"
)

// StructValidator applies struct tag rules. Satisfied by core.Validator.
type StructValidator interface {
	ValidateStruct(s any) error
}

// Store is the authoritative in-memory collection of case reports.
// Reports are append-only; only Status may change after insertion.
type Store struct {
	mu     sync.RWMutex
	cases  []types.CaseReport
	byID   map[string]int
	byWard map[string][]int

	wards     *WardRegistry
	validator StructValidator
	newID     func() string
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithValidator adds struct tag validation on top of the built-in enum checks.
func WithValidator(v StructValidator) Option {
	return func(s *Store) { s.validator = v }
}

// WithIDGenerator overrides case id generation. Used by tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store bound to the given ward registry.
func NewStore(wards *WardRegistry, opts ...Option) *Store {
	s := &Store{
		byID:   make(map[string]int),
		byWard: make(map[string][]int),
		wards:  wards,
		newID:  func() string { return "case_" + uuid.New().String() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wards returns the registry the store validates against.
func (s *Store) Wards() *WardRegistry { return s.wards }

// AddCase validates and appends a report, returning the stored copy with
// its id filled in. Nothing is mutated when validation fails.
func (s *Store) AddCase(report types.CaseReport) (types.CaseReport, error) {
	if report.Status == "" {
		report.Status = types.CaseStatusActive
	}
	if err := report.Validate(); err != nil {
		return types.CaseReport{}, err
	}
	if s.validator != nil {
		if err := s.validator.ValidateStruct(report); err != nil {
			return types.CaseReport{}, err
		}
	}
	if !s.wards.Has(report.WardID) {
		return types.CaseReport{}, types.NewAppErrorWithDetails(types.ErrCodeValidationUnknownWard,
			fmt.Sprintf("ward %s is not registered", report.WardID), nil,
			map[string]any{"ward_id": report.WardID})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == "" {
		report.ID = s.newID()
	}
	if _, dup := s.byID[report.ID]; dup {
		return types.CaseReport{}, types.NewAppErrorWithDetails(types.ErrCodeValidationDuplicateID,
			fmt.Sprintf("case %s already exists", report.ID), nil,
			map[string]any{"case_id": report.ID})
	}

	idx := len(s.cases)
	s.cases = append(s.cases, report)
	s.byID[report.ID] = idx
	s.byWard[report.WardID] = append(s.byWard[report.WardID], idx)

	s.logger.Info("case recorded",
		"case_id", report.ID,
		"ward_id", report.WardID,
		"disease", report.Disease,
		"severity", report.Severity,
	)
	return report, nil
}

// UpdateStatus changes the status of an existing case.
func (s *Store) UpdateStatus(caseID string, status types.CaseStatus) (types.CaseReport, error) {
	if !status.Valid() {
		return types.CaseReport{}, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidStatus,
			fmt.Sprintf("unrecognized status %q", status), nil, map[string]any{"status": string(status)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[caseID]
	if !ok {
		return types.CaseReport{}, types.NewAppError(types.ErrCodeNotFoundCase,
			fmt.Sprintf("case %s not found", caseID), nil)
	}
	s.cases[idx].Status = status
	return s.cases[idx], nil
}

// Get returns a copy of a stored case.
func (s *Store) Get(caseID string) (types.CaseReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[caseID]
	if !ok {
		return types.CaseReport{}, false
	}
	return s.cases[idx], true
}

// Len returns the number of stored cases.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases)
}

// CasesSince returns a lazy sequence of reports with ReportedAt at or after
// windowStart, optionally restricted to one ward (empty wardID means all).
// The sequence is restartable; each iteration sees the reports committed
// when that iteration began. The lock is never held while yielding.
func (s *Store) CasesSince(windowStart time.Time, wardID string) iter.Seq[types.CaseReport] {
	return func(yield func(types.CaseReport) bool) {
		s.mu.RLock()
		n := len(s.cases)
		var wardIdx []int
		if wardID != "" {
			// Index slices are append-only, so capping the length pins the prefix.
			idx := s.byWard[wardID]
			wardIdx = idx[:len(idx):len(idx)]
			n = len(wardIdx)
		}
		s.mu.RUnlock()

		for i := 0; i < n; i++ {
			s.mu.RLock()
			var c types.CaseReport
			if wardIdx != nil {
				c = s.cases[wardIdx[i]]
			} else {
				c = s.cases[i]
			}
			s.mu.RUnlock()

			if c.ReportedAt.Before(windowStart) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// CountByDisease counts reports per disease for a ward since windowStart.
// Diseases with no reports are absent from the result.
func (s *Store) CountByDisease(wardID string, windowStart time.Time) map[types.Disease]int {
	counts := make(map[types.Disease]int)
	for c := range s.CasesSince(windowStart, wardID) {
		counts[c.Disease]++
	}
	return counts
}
