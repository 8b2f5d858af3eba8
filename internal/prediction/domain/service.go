package domain

import (
	"context"

	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	"gorm.io/gorm"
)

// Service runs the scoring pipeline and maintains the prediction history.
type Service interface {
	// Predict loads the customer, records a new prediction with full
	// factors, and persists the updated risk state.
	Predict(ctx context.Context, customerID string) (*PredictionResponse, error)
	// RecomputeAll re-scores every non-churned customer. Per-customer
	// failures are reported, not fatal.
	RecomputeAll(ctx context.Context) (*BulkRecomputeResult, error)
	// History returns a customer's prediction records, oldest first.
	History(ctx context.Context, customerID string) ([]Record, error)
}

// Recorder applies the scoring pipeline to an already-loaded customer
// inside the caller's transaction. It is the only code allowed to write
// RiskScore and Status, which keeps every mutation path recomputing
// through one implementation.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, customer *customerdomain.Customer, opts RecordOptions) (*Record, error)
}

// RecordOptions tunes a single recording.
type RecordOptions struct {
	// IncludeFactors attaches explainer output; the bulk path leaves the
	// factor list empty.
	IncludeFactors bool
}
