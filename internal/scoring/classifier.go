package scoring

// Status is a customer's lifecycle state, always derived from the current
// risk score and never assigned independently.
type Status string

const (
	StatusActive  Status = "active"
	StatusAtRisk  Status = "at_risk"
	StatusChurned Status = "churned"
)

// RiskLevel labels a single prediction using the same cutoffs as Status.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Classification cutoffs shared by Classify and Level.
const (
	atRiskCutoff  = 0.3
	churnedCutoff = 0.7
)

// Classify maps a risk score to a lifecycle status.
func Classify(risk float64) Status {
	switch {
	case risk < atRiskCutoff:
		return StatusActive
	case risk < churnedCutoff:
		return StatusAtRisk
	default:
		return StatusChurned
	}
}

// Level maps a risk score to the per-prediction risk level.
func Level(risk float64) RiskLevel {
	switch {
	case risk < atRiskCutoff:
		return RiskLevelLow
	case risk < churnedCutoff:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// ValidStatus reports whether value is a known lifecycle status.
func ValidStatus(value string) bool {
	switch Status(value) {
	case StatusActive, StatusAtRisk, StatusChurned:
		return true
	default:
		return false
	}
}
