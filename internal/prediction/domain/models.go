// Package domain contains the prediction record model and the recorder
// contract. Prediction rows are append-only: the service never edits or
// deletes them once written.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/retainly/churnguard/internal/scoring"
	"gorm.io/datatypes"
)

// Record is one immutable prediction snapshot for a customer.
type Record struct {
	ID           snowflake.ID                `gorm:"primaryKey" json:"id"`
	CustomerID   snowflake.ID                `gorm:"not null;index" json:"customer_id"`
	RiskScore    float64                     `gorm:"not null" json:"risk_score"`
	RiskLevel    scoring.RiskLevel           `gorm:"type:text;not null" json:"risk_level"`
	Factors      datatypes.JSONSlice[string] `gorm:"not null" json:"factors"`
	ModelVersion string                      `gorm:"type:text;not null" json:"model_version"`
	CreatedAt    time.Time                   `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "prediction_records" }

// CustomerSummary is the customer's risk state after a prediction.
type CustomerSummary struct {
	ID        snowflake.ID   `json:"id"`
	RiskScore float64        `json:"risk_score"`
	Status    scoring.Status `json:"status"`
}

// PredictionResponse pairs a new record with the updated customer state.
type PredictionResponse struct {
	Record   Record          `json:"prediction"`
	Customer CustomerSummary `json:"customer"`
}

// FailedCustomer identifies one customer whose bulk update failed.
type FailedCustomer struct {
	CustomerID snowflake.ID `json:"customer_id"`
	Reason     string       `json:"reason"`
}

// BulkRecomputeResult reports partial success: failures never roll back
// other customers' committed updates.
type BulkRecomputeResult struct {
	Processed int              `json:"processed"`
	Failed    []FailedCustomer `json:"failed,omitempty"`
}
