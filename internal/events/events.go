package events

// Churn event types emitted on status transitions.
const (
	EventCustomerAtRisk    = "customer.at_risk"
	EventCustomerChurned   = "customer.churned"
	EventCustomerRecovered = "customer.recovered"
)

// StatusChangedPayload captures the minimal data a downstream notifier
// needs to react to a lifecycle transition.
type StatusChangedPayload struct {
	CustomerID     string  `json:"customer_id"`
	PreviousStatus string  `json:"previous_status"`
	NewStatus      string  `json:"new_status"`
	RiskScore      float64 `json:"risk_score"`
	ModelVersion   string  `json:"model_version"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p StatusChangedPayload) ToMap() map[string]any {
	return map[string]any{
		"customer_id":     p.CustomerID,
		"previous_status": p.PreviousStatus,
		"new_status":      p.NewStatus,
		"risk_score":      p.RiskScore,
		"model_version":   p.ModelVersion,
	}
}
