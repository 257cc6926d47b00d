package alerts

import (
	"slices"

	"wardwatch/internal/types"
)

// SortForDisplay orders alerts critical-first. Alerts of equal severity keep
// their relative order. The input slice is sorted in place and returned.
func SortForDisplay(alerts []types.Alert) []types.Alert {
	slices.SortStableFunc(alerts, func(a, b types.Alert) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
	return alerts
}

// WardStatus colours a ward by its worst active alert.
func WardStatus(alerts []types.Alert) types.WardStatus {
	status := types.WardSafe
	for _, a := range alerts {
		switch a.Severity {
		case types.AlertCritical:
			return types.WardCritical
		case types.AlertWarning:
			status = types.WardWarning
		}
	}
	return status
}
