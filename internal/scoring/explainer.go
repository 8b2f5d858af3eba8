package scoring

// Factor strings returned by Explain. They are diagnostics for humans and
// deliberately independent of the scorer's numeric weights.
const (
	FactorInactiveUser      = "Inactive user"
	FactorHighSupportVolume = "High support volume"
	FactorLowSatisfaction   = "Low satisfaction"
	FactorLowEngagement     = "Low engagement"
)

// Explain lists the elevated-risk drivers for the given inputs, in fixed
// rule order. The list may be empty; Explain never fails.
func Explain(in Inputs) []string {
	var factors []string
	if in.DaysSinceLastLogin > 14 {
		factors = append(factors, FactorInactiveUser)
	}
	if in.SupportTickets > 5 {
		factors = append(factors, FactorHighSupportVolume)
	}
	if in.SupportSatisfaction < 6 {
		factors = append(factors, FactorLowSatisfaction)
	}
	if in.LoginFrequency < 5 {
		factors = append(factors, FactorLowEngagement)
	}
	return factors
}
