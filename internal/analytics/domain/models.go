// Package domain contains the population analytics contract.
package domain

import (
	"context"
)

// Summary is the population-level view served to dashboards. Analytics are
// advisory: they read whatever snapshot the store provides.
type Summary struct {
	TotalCustomers int64 `json:"total_customers"`
	ActiveCount    int64 `json:"active_count"`
	AtRiskCount    int64 `json:"at_risk_count"`
	ChurnedCount   int64 `json:"churned_count"`
	// ChurnRate is churned/total x 100, rounded to 2 decimals, 0 when the
	// population is empty.
	ChurnRate float64 `json:"churn_rate"`

	AvgRiskScore         float64 `json:"avg_risk_score"`
	AvgSubscriptionValue float64 `json:"avg_subscription_value"`
	AvgSupportTickets    float64 `json:"avg_support_tickets"`

	RiskBuckets  []RiskBucket `json:"risk_buckets"`
	MonthlyTrend []TrendGroup `json:"monthly_trend"`
}

// BucketMember is the customer sample attached to a histogram bucket.
type BucketMember struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	RiskScore float64 `json:"risk_score"`
}

// RiskBucket is one histogram range with a member sample.
type RiskBucket struct {
	Label  string         `json:"label"`
	Count  int64          `json:"count"`
	Sample []BucketMember `json:"sample"`
}

// TrendGroup reports new customers and mean risk for one creation month.
type TrendGroup struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	NewCustomers int64   `json:"new_customers"`
	AvgRiskScore float64 `json:"avg_risk_score"`
}

// Service computes population analytics.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}
