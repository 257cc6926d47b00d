package alerts

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"wardwatch/internal/types"
)

// DefaultWindow is the trailing period over which cases are counted.
const DefaultWindow = 7 * 24 * time.Hour

// PerCapitaBase is the population unit thresholds are expressed in.
const PerCapitaBase = 100000.0

// CaseCounter yields per-disease counts for a ward since a point in time.
// Satisfied by cases.Store.
type CaseCounter interface {
	CountByDisease(wardID string, windowStart time.Time) map[types.Disease]int
}

// Input is everything an evaluation depends on besides the previous set.
type Input struct {
	Now        time.Time
	Window     time.Duration
	Wards      []types.Ward
	Thresholds map[types.Disease]types.Threshold
	Cases      CaseCounter
}

// Change records a severity transition on an existing alert.
type Change struct {
	Alert    types.Alert         `json:"alert"`
	Previous types.AlertSeverity `json:"previous_severity"`
}

// Delta describes how the alert set moved between two evaluations.
type Delta struct {
	Raised      []types.Alert `json:"raised"`
	Escalated   []Change      `json:"escalated"`
	Deescalated []Change      `json:"deescalated"`
	Resolved    []types.Alert `json:"resolved"`
}

// Empty reports whether nothing changed.
func (d Delta) Empty() bool {
	return len(d.Raised) == 0 && len(d.Escalated) == 0 && len(d.Deescalated) == 0 && len(d.Resolved) == 0
}

// Result is the output of Evaluate.
type Result struct {
	Alerts        map[types.AlertKey]types.Alert
	Delta         Delta
	Notifications []Notification
}

// Evaluate derives the alert set from the input and diffs it against
// previous. It has no side effects: notifications to send are returned, not
// sent. A ward with non-positive population fails the whole evaluation.
func Evaluate(in Input, previous map[types.AlertKey]types.Alert) (Result, error) {
	window := in.Window
	if window <= 0 {
		window = DefaultWindow
	}
	windowStart := in.Now.Add(-window)

	for _, w := range in.Wards {
		if w.Population <= 0 {
			return Result{}, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidPopulation,
				fmt.Sprintf("ward %s population must be positive", w.ID), nil,
				map[string]any{"ward_id": w.ID, "population": w.Population})
		}
	}

	res := Result{Alerts: make(map[types.AlertKey]types.Alert)}

	for _, w := range in.Wards {
		counts := in.Cases.CountByDisease(w.ID, windowStart)
		for _, d := range types.AllDiseases {
			count := counts[d]
			th, ok := in.Thresholds[d]
			if count == 0 || !ok {
				continue
			}

			// Multiply first so exact boundaries such as 25 per 100k stay exact.
			rate := float64(count) * PerCapitaBase / float64(w.Population)
			severity, limit, hit := classify(rate, th)
			if !hit {
				continue
			}

			key := types.AlertKey{WardID: w.ID, Disease: d}
			alert := types.Alert{
				ID:               key.ID(),
				WardID:           w.ID,
				WardName:         w.Name,
				Disease:          d,
				Severity:         severity,
				Count:            count,
				Rate:             rate,
				ThresholdValue:   limit,
				Message:          alertMessage(count, d, w.Name, window),
				SuggestedActions: SuggestedActions(d),
				CreatedAt:        in.Now,
				UpdatedAt:        in.Now,
			}

			prev, existed := previous[key]
			switch {
			case !existed:
				res.Delta.Raised = append(res.Delta.Raised, alert)
				res.Notifications = append(res.Notifications, Notification{
					Severity: severity, Reason: ReasonRaised, Alert: alert,
				})
			default:
				alert.CreatedAt = prev.CreatedAt
				if prev.Severity != severity {
					change := Change{Alert: alert, Previous: prev.Severity}
					if severity.Rank() > prev.Severity.Rank() {
						res.Delta.Escalated = append(res.Delta.Escalated, change)
						if severity == types.AlertCritical {
							res.Notifications = append(res.Notifications, Notification{
								Severity: severity, Reason: ReasonEscalated, Alert: alert,
							})
						}
					} else {
						res.Delta.Deescalated = append(res.Delta.Deescalated, change)
					}
				}
			}
			res.Alerts[key] = alert
		}
	}

	for key, prev := range previous {
		if _, still := res.Alerts[key]; !still {
			res.Delta.Resolved = append(res.Delta.Resolved, prev)
		}
	}
	slices.SortFunc(res.Delta.Resolved, func(a, b types.Alert) int {
		return strings.Compare(a.ID, b.ID)
	})

	return res, nil
}

// classify applies the thresholds with inclusive comparisons.
func classify(rate float64, th types.Threshold) (types.AlertSeverity, float64, bool) {
	switch {
	case rate >= th.Critical:
		return types.AlertCritical, th.Critical, true
	case rate >= th.Warning:
		return types.AlertWarning, th.Warning, true
	}
	return "", 0, false
}

func alertMessage(count int, d types.Disease, ward string, window time.Duration) string {
	days := int(math.Round(window.Hours() / 24))
	return fmt.Sprintf("%d %s cases reported in %s in the last %d days", count, d, ward, days)
}
