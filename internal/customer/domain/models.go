// Package domain contains the customer model and service contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/retainly/churnguard/internal/scoring"
	"github.com/retainly/churnguard/pkg/db/pagination"
)

// FeatureSet holds the normalized behavioral signals feeding the scorer.
type FeatureSet struct {
	DaysSinceLastLogin  float64 `gorm:"not null;default:0" json:"days_since_last_login"`
	AvgSessionDuration  float64 `gorm:"not null;default:0" json:"avg_session_duration"`
	TotalTransactions   int64   `gorm:"not null;default:0" json:"total_transactions"`
	AvgTransactionValue float64 `gorm:"not null;default:0" json:"avg_transaction_value"`
	ProductUsage        float64 `gorm:"not null;default:0" json:"product_usage"`
	SupportSatisfaction float64 `gorm:"not null;default:5" json:"support_satisfaction"`
	RenewalHistory      int     `gorm:"not null;default:0" json:"renewal_history"`
}

// Customer is a subscriber record with its derived risk state.
type Customer struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	Name    string       `gorm:"type:text;not null" json:"name"`
	Email   string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Company string       `gorm:"type:text" json:"company,omitempty"`

	SubscriptionValue float64   `gorm:"not null;default:0" json:"subscription_value"`
	ContractLength    int       `gorm:"not null;default:1" json:"contract_length"`
	SupportTickets    int       `gorm:"not null;default:0" json:"support_tickets"`
	LoginFrequency    float64   `gorm:"not null;default:0" json:"login_frequency"`
	LastActivityAt    time.Time `gorm:"not null" json:"last_activity_at"`

	FeatureSet `gorm:"embedded" json:"features"`

	// RiskScore and Status are derived state. They are only written by the
	// prediction recorder; Status is always Classify(RiskScore).
	RiskScore float64        `gorm:"not null;default:0" json:"risk_score"`
	Status    scoring.Status `gorm:"type:text;not null;index" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// ScoringInputs assembles the scorer inputs from the customer's features
// and commercial attributes.
func (c *Customer) ScoringInputs() scoring.Inputs {
	return scoring.Inputs{
		DaysSinceLastLogin:  c.DaysSinceLastLogin,
		SupportTickets:      float64(c.SupportTickets),
		LoginFrequency:      c.LoginFrequency,
		ContractLength:      float64(c.ContractLength),
		SupportSatisfaction: c.SupportSatisfaction,
		SubscriptionValue:   c.SubscriptionValue,
		ProductUsage:        c.ProductUsage,
	}
}

// Interaction is a free-form contact log entry. It is not part of the
// scoring core.
type Interaction struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`
	Type       string       `gorm:"type:text;not null" json:"type"`
	Note       string       `gorm:"type:text" json:"note,omitempty"`
	OccurredAt time.Time    `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Interaction) TableName() string { return "interactions" }

// CreateCustomerRequest carries the fields accepted at creation.
type CreateCustomerRequest struct {
	Name              string
	Email             string
	Company           string
	SubscriptionValue float64
	ContractLength    int
	SupportTickets    int
	LoginFrequency    float64
	LastActivityAt    *time.Time
	Features          *FeatureSet
}

// UpdateCustomerRequest carries a partial update; nil fields are untouched.
type UpdateCustomerRequest struct {
	ID                string
	Name              *string
	Email             *string
	Company           *string
	SubscriptionValue *float64
	ContractLength    *int
	SupportTickets    *int
	LoginFrequency    *float64
	LastActivityAt    *time.Time
	Features          *FeatureSet
}

// ListCustomersRequest filters and pages the customer listing.
type ListCustomersRequest struct {
	pagination.Pagination
	Status string
	Search string
	Sort   string
}

// ListCustomersResponse is the paged listing returned to callers.
type ListCustomersResponse struct {
	Customers  []Customer          `json:"customers"`
	Pagination pagination.Metadata `json:"pagination"`
}

// AddInteractionRequest logs one contact against a customer.
type AddInteractionRequest struct {
	CustomerID string
	Type       string
	Note       string
	OccurredAt *time.Time
}
