package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/retainly/churnguard/internal/clock"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	"github.com/retainly/churnguard/internal/events"
	"github.com/retainly/churnguard/internal/migration"
	predictiondomain "github.com/retainly/churnguard/internal/prediction/domain"
	"github.com/retainly/churnguard/internal/scoring"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPredictionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newPredictionTestService(t *testing.T, db *gorm.DB, retention int) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:               db,
		log:              zap.NewNop(),
		genID:            node,
		clk:              clock.SystemClock{},
		outbox:           events.NewOutbox(db, node),
		historyRetention: retention,
		concurrency:      4,
	}
}

func insertCustomer(t *testing.T, db *gorm.DB, genID *snowflake.Node, email string, status scoring.Status, features customerdomain.FeatureSet) customerdomain.Customer {
	t.Helper()
	now := time.Now().UTC()
	customer := customerdomain.Customer{
		ID:                genID.Generate(),
		Name:              "Test Customer",
		Email:             email,
		SubscriptionValue: 10000,
		ContractLength:    36,
		LoginFrequency:    30,
		LastActivityAt:    now,
		FeatureSet:        features,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	return customer
}

func healthyFeatures() customerdomain.FeatureSet {
	return customerdomain.FeatureSet{
		DaysSinceLastLogin:  0,
		AvgSessionDuration:  30,
		TotalTransactions:   100,
		AvgTransactionValue: 50,
		ProductUsage:        100,
		SupportSatisfaction: 10,
		RenewalHistory:      2,
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	customer := insertCustomer(t, db, svc.genID, "stable@example.com", scoring.StatusActive, healthyFeatures())

	first, err := svc.Predict(context.Background(), customer.ID.String())
	if err != nil {
		t.Fatalf("first predict: %v", err)
	}
	second, err := svc.Predict(context.Background(), customer.ID.String())
	if err != nil {
		t.Fatalf("second predict: %v", err)
	}

	if first.Record.RiskScore != second.Record.RiskScore {
		t.Fatalf("scores differ across predictions: %v vs %v", first.Record.RiskScore, second.Record.RiskScore)
	}
	if first.Record.ModelVersion != scoring.ModelVersion {
		t.Fatalf("model version = %q", first.Record.ModelVersion)
	}

	records, err := svc.History(context.Background(), customer.ID.String())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(records))
	}
}

func TestPredictUpdatesCustomerRiskState(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	risky := customerdomain.FeatureSet{
		DaysSinceLastLogin:  120,
		SupportSatisfaction: 1,
		ProductUsage:        2,
	}
	customer := insertCustomer(t, db, svc.genID, "fading@example.com", scoring.StatusActive, risky)
	customer.SupportTickets = 15
	customer.LoginFrequency = 0
	customer.ContractLength = 1
	if err := db.Save(&customer).Error; err != nil {
		t.Fatalf("save customer: %v", err)
	}

	resp, err := svc.Predict(context.Background(), customer.ID.String())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if resp.Customer.Status != scoring.StatusChurned {
		t.Fatalf("expected churned, got %s", resp.Customer.Status)
	}

	var stored customerdomain.Customer
	if err := db.First(&stored, "id = ?", customer.ID).Error; err != nil {
		t.Fatalf("reload customer: %v", err)
	}
	if stored.RiskScore != resp.Record.RiskScore {
		t.Fatalf("stored score %v != response score %v", stored.RiskScore, resp.Record.RiskScore)
	}
	if stored.Status != scoring.Classify(stored.RiskScore) {
		t.Fatalf("stored status %s inconsistent with score %v", stored.Status, stored.RiskScore)
	}
	if len(resp.Record.Factors) == 0 {
		t.Fatal("expected factors on a high-risk prediction")
	}
}

func TestPredictUnknownCustomer(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	_, err := svc.Predict(context.Background(), "123456789")
	if !errors.Is(err, customerdomain.ErrCustomerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPredictMalformedID(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	_, err := svc.Predict(context.Background(), "not-a-number")
	if !errors.Is(err, customerdomain.ErrCustomerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecomputeAllSkipsChurned(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	insertCustomer(t, db, svc.genID, "a@example.com", scoring.StatusActive, healthyFeatures())
	insertCustomer(t, db, svc.genID, "b@example.com", scoring.StatusAtRisk, healthyFeatures())
	insertCustomer(t, db, svc.genID, "c@example.com", scoring.StatusChurned, customerdomain.FeatureSet{})

	result, err := svc.RecomputeAll(context.Background())
	if err != nil {
		t.Fatalf("recompute all: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", result.Processed)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("expected no failures, got %v", result.Failed)
	}

	var count int64
	if err := db.Table("prediction_records").Count(&count).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 prediction records, got %d", count)
	}
}

func TestRecomputeAllReportsPartialFailure(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	insertCustomer(t, db, svc.genID, "steady@example.com", scoring.StatusActive, healthyFeatures())
	victim := insertCustomer(t, db, svc.genID, "broken@example.com", scoring.StatusAtRisk, healthyFeatures())
	insertCustomer(t, db, svc.genID, "also-steady@example.com", scoring.StatusAtRisk, healthyFeatures())

	// Reject history writes for one customer so its transaction rolls
	// back while the rest of the run commits.
	err := db.Callback().Create().Before("gorm:create").Register("reject_victim_records", func(tx *gorm.DB) {
		if record, ok := tx.Statement.Dest.(*predictiondomain.Record); ok && record.CustomerID == victim.ID {
			tx.AddError(errors.New("record_write_failed"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	result, err := svc.RecomputeAll(context.Background())
	if err != nil {
		t.Fatalf("recompute all: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", result.Processed)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %v", result.Failed)
	}
	if result.Failed[0].CustomerID != victim.ID {
		t.Fatalf("failed id = %s, want %s", result.Failed[0].CustomerID, victim.ID)
	}
	if result.Failed[0].Reason == "" {
		t.Fatal("expected a failure reason")
	}

	var victimRecords int64
	if err := db.Model(&predictiondomain.Record{}).Where("customer_id = ?", victim.ID).Count(&victimRecords).Error; err != nil {
		t.Fatalf("count victim records: %v", err)
	}
	if victimRecords != 0 {
		t.Fatalf("failed customer must not gain history, got %d rows", victimRecords)
	}

	var total int64
	if err := db.Model(&predictiondomain.Record{}).Count(&total).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 committed records, got %d", total)
	}
}

func TestRecomputeAllEmptyPopulation(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	result, err := svc.RecomputeAll(context.Background())
	if err != nil {
		t.Fatalf("recompute all: %v", err)
	}
	if result.Processed != 0 || len(result.Failed) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestBulkRecordsOmitFactors(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	customer := insertCustomer(t, db, svc.genID, "bulk@example.com", scoring.StatusActive, customerdomain.FeatureSet{
		DaysSinceLastLogin:  120,
		SupportSatisfaction: 1,
	})

	if _, err := svc.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("recompute all: %v", err)
	}

	records, err := svc.History(context.Background(), customer.ID.String())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if len(records[0].Factors) != 0 {
		t.Fatalf("bulk record should have no factors, got %v", records[0].Factors)
	}
}

func TestHistoryRetentionPrunesOldest(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 2)

	customer := insertCustomer(t, db, svc.genID, "pruned@example.com", scoring.StatusActive, healthyFeatures())

	for i := 0; i < 5; i++ {
		if _, err := svc.Predict(context.Background(), customer.ID.String()); err != nil {
			t.Fatalf("predict %d: %v", i, err)
		}
	}

	records, err := svc.History(context.Background(), customer.ID.String())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected retention to keep 2 rows, got %d", len(records))
	}
}

func TestHistoryUnknownCustomer(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	_, err := svc.History(context.Background(), "987654321")
	if !errors.Is(err, customerdomain.ErrCustomerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatusTransitionPublishesEvent(t *testing.T) {
	db := setupPredictionTestDB(t)
	svc := newPredictionTestService(t, db, 0)

	// A stale churned label on a healthy profile drops back to at_risk,
	// the lowest reachable status given the base risk.
	customer := insertCustomer(t, db, svc.genID, "recovering@example.com", scoring.StatusChurned, healthyFeatures())

	resp, err := svc.Predict(context.Background(), customer.ID.String())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if resp.Record.RiskScore != 0.5 {
		t.Fatalf("expected base score 0.5, got %v", resp.Record.RiskScore)
	}
	if resp.Customer.Status != scoring.StatusAtRisk {
		t.Fatalf("expected at_risk, got %s", resp.Customer.Status)
	}

	var rows []events.OutboxRow
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(rows))
	}
	if rows[0].EventType != events.EventCustomerAtRisk {
		t.Fatalf("event type = %q", rows[0].EventType)
	}

	// A second prediction with no status change publishes nothing new.
	if _, err := svc.Predict(context.Background(), customer.ID.String()); err != nil {
		t.Fatalf("second predict: %v", err)
	}
	var count int64
	if err := db.Model(&events.OutboxRow{}).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected outbox unchanged, got %d rows", count)
	}
}
