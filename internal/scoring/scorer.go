// Package scoring implements the churn risk model: the linear scorer, the
// status classifier, and the factor explainer. Everything here is pure and
// safe for concurrent use; it is the single source of truth for risk
// semantics across the service.
package scoring

// ModelVersion tags every prediction with the scoring-rule revision that
// produced it. Bump when weights or cutoffs change.
const ModelVersion = "linear-v2"

const baseRisk = 0.5

// Inputs carries the behavioral features and commercial attributes the
// scorer consumes. All values are expected to be non-negative; the
// normalizations cap each signal so outliers cannot dominate.
type Inputs struct {
	DaysSinceLastLogin  float64
	SupportTickets      float64
	LoginFrequency      float64
	ContractLength      float64
	SupportSatisfaction float64
	SubscriptionValue   float64
	ProductUsage        float64
}

// Score computes the churn risk for the given inputs.
//
// The model starts from a base risk of 0.5 and adds seven weighted
// contributions, each normalized into [0,1] before weighting so that no
// single signal can exceed its allotted band. Signals whose high values
// indicate health (login frequency, contract length, satisfaction,
// subscription value, product usage) are inverted by the normalization
// itself; no contribution is ever negative.
func Score(in Inputs) float64 {
	risk := baseRisk

	risk += capRatio(in.DaysSinceLastLogin/30) * 0.25
	risk += capRatio(in.SupportTickets/10) * 0.20
	risk += (1 - capRatio(in.LoginFrequency/30)) * 0.15
	risk += (1 - capRatio(in.ContractLength/36)) * 0.10
	risk += (1 - capRatio(in.SupportSatisfaction/10)) * 0.15
	risk += (1 - capRatio(in.SubscriptionValue/10000)) * 0.10
	risk += (1 - capRatio(in.ProductUsage/100)) * 0.05

	return clamp(risk, 0, 1)
}

func capRatio(ratio float64) float64 {
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
