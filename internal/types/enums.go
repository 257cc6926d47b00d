package types

// Disease is the closed set of notifiable diseases tracked per ward.
type Disease string

const (
	DiseaseDengue       Disease = "dengue"
	DiseaseMalaria      Disease = "malaria"
	DiseaseTyphoid      Disease = "typhoid"
	DiseaseCovid        Disease = "covid"
	DiseaseTuberculosis Disease = "tuberculosis"
	DiseaseCholera      Disease = "cholera"
)

// AllDiseases lists every recognized disease in display order.
var AllDiseases = []Disease{
	DiseaseDengue,
	DiseaseMalaria,
	DiseaseTyphoid,
	DiseaseCovid,
	DiseaseTuberculosis,
	DiseaseCholera,
}

// Valid reports whether d is one of the recognized diseases.
func (d Disease) Valid() bool {
	switch d {
	case DiseaseDengue, DiseaseMalaria, DiseaseTyphoid, DiseaseCovid, DiseaseTuberculosis, DiseaseCholera:
		return true
	}
	return false
}

// CaseSeverity is the clinical severity recorded on a case report.
type CaseSeverity string

const (
	CaseSeverityLow    CaseSeverity = "low"
	CaseSeverityMedium CaseSeverity = "medium"
	CaseSeverityHigh   CaseSeverity = "high"
)

func (s CaseSeverity) Valid() bool {
	return s == CaseSeverityLow || s == CaseSeverityMedium || s == CaseSeverityHigh
}

// CaseStatus is the only mutable attribute of a CaseReport.
type CaseStatus string

const (
	CaseStatusActive    CaseStatus = "active"
	CaseStatusRecovered CaseStatus = "recovered"
)

func (s CaseStatus) Valid() bool {
	return s == CaseStatusActive || s == CaseStatusRecovered
}

// AlertSeverity classifies an outbreak alert.
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Rank orders severities so that critical sorts ahead of warning.
// Unknown severities rank lowest.
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertCritical:
		return 2
	case AlertWarning:
		return 1
	}
	return 0
}

// WardStatus is the colour a ward is painted with on the map.
type WardStatus string

const (
	WardSafe     WardStatus = "safe"
	WardWarning  WardStatus = "warning"
	WardCritical WardStatus = "critical"
)

// FacilityType distinguishes full hospitals from smaller clinics.
type FacilityType string

const (
	FacilityHospital FacilityType = "hospital"
	FacilityClinic   FacilityType = "clinic"
)

// Gender as captured by the case report form.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)
