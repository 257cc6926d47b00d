package alerts

import (
	"fmt"

	"wardwatch/internal/types"
)

// DefaultThresholds are the per-disease limits in cases per 100,000.
var DefaultThresholds = map[types.Disease]types.Threshold{
	types.DiseaseDengue:       {Warning: 10, Critical: 25},
	types.DiseaseMalaria:      {Warning: 8, Critical: 20},
	types.DiseaseTyphoid:      {Warning: 5, Critical: 15},
	types.DiseaseCovid:        {Warning: 15, Critical: 40},
	types.DiseaseTuberculosis: {Warning: 3, Critical: 10},
	types.DiseaseCholera:      {Warning: 5, Critical: 12},
}

var suggestedActions = map[types.Disease][]string{
	types.DiseaseDengue: {
		"Conduct fogging operations in affected areas",
		"Launch door-to-door awareness campaigns",
		"Eliminate stagnant water sources",
		"Distribute mosquito repellents",
	},
	types.DiseaseMalaria: {
		"Intensify vector control measures",
		"Distribute insecticide-treated bed nets",
		"Set up blood testing camps",
		"Carry out anti-larval spraying",
	},
	types.DiseaseTyphoid: {
		"Ensure safe drinking water supply",
		"Test water quality at distribution points",
		"Run hand hygiene awareness drives",
		"Vaccinate high-risk populations",
	},
	types.DiseaseCovid: {
		"Open additional testing centers",
		"Enforce mask compliance in public spaces",
		"Increase hospital bed capacity",
		"Accelerate the vaccination drive",
	},
	types.DiseaseTuberculosis: {
		"Start contact tracing for reported cases",
		"Ensure DOTS treatment adherence",
		"Screen high-risk populations",
		"Improve ventilation in crowded settings",
	},
	types.DiseaseCholera: {
		"Provide clean drinking water",
		"Improve sanitation facilities",
		"Conduct health education sessions",
		"Set up oral rehydration centers",
	},
}

var defaultActions = []string{
	"Monitor the situation closely",
	"Increase surveillance",
}

// SuggestedActions returns the response checklist for a disease. The slice
// is a copy and may be modified by the caller.
func SuggestedActions(d types.Disease) []string {
	actions, ok := suggestedActions[d]
	if !ok {
		actions = defaultActions
	}
	return append([]string(nil), actions...)
}

// ValidateThresholds checks every entry of a threshold table.
func ValidateThresholds(table map[types.Disease]types.Threshold) error {
	for d, th := range table {
		if !d.Valid() {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationUnknownDisease,
				fmt.Sprintf("threshold for unrecognized disease %q", d), nil,
				map[string]any{"disease": string(d)})
		}
		if err := th.Validate(); err != nil {
			return fmt.Errorf("threshold for %s: %w", d, err)
		}
	}
	return nil
}
