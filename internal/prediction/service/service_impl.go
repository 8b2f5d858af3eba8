package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/retainly/churnguard/internal/clock"
	"github.com/retainly/churnguard/internal/config"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	"github.com/retainly/churnguard/internal/events"
	"github.com/retainly/churnguard/internal/observability/metrics"
	"github.com/retainly/churnguard/internal/observability/tracing"
	predictiondomain "github.com/retainly/churnguard/internal/prediction/domain"
	"github.com/retainly/churnguard/internal/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clk   clock.Clock

	outbox  *events.Outbox
	metrics *metrics.PredictionMetrics

	historyRetention int
	concurrency      int
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Outbox  *events.Outbox
	Metrics *metrics.PredictionMetrics `optional:"true"`
}

func NewService(p ServiceParam) *Service {
	concurrency := p.Config.Scoring.RecomputeConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("prediction.service"),
		genID:            p.GenID,
		clk:              p.Clock,
		outbox:           p.Outbox,
		metrics:          p.Metrics,
		historyRetention: p.Config.Scoring.HistoryRetention,
		concurrency:      concurrency,
	}
}

// Record scores the customer, appends a history row, and updates the
// customer's in-memory risk state. The caller owns persisting the
// customer row inside the same transaction.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, customer *customerdomain.Customer, opts predictiondomain.RecordOptions) (*predictiondomain.Record, error) {
	if tx == nil || customer == nil {
		return nil, errors.New("recorder_unavailable")
	}

	inputs := customer.ScoringInputs()
	risk := scoring.Score(inputs)
	status := scoring.Classify(risk)

	factors := []string{}
	if opts.IncludeFactors {
		factors = scoring.Explain(inputs)
	}

	record := predictiondomain.Record{
		ID:           s.genID.Generate(),
		CustomerID:   customer.ID,
		RiskScore:    risk,
		RiskLevel:    scoring.Level(risk),
		Factors:      datatypes.NewJSONSlice(factors),
		ModelVersion: scoring.ModelVersion,
		CreatedAt:    s.clk.Now(),
	}
	if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	if s.historyRetention > 0 {
		if err := s.pruneHistory(ctx, tx, customer.ID); err != nil {
			return nil, err
		}
	}

	previous := customer.Status
	customer.RiskScore = risk
	customer.Status = status

	if previous != "" && previous != status {
		if err := s.publishTransition(ctx, tx, customer, previous, record); err != nil {
			return nil, err
		}
	}

	s.metrics.IncPrediction(string(record.RiskLevel))
	return &record, nil
}

func (s *Service) Predict(ctx context.Context, customerID string) (*predictiondomain.PredictionResponse, error) {
	id, err := parseCustomerID(customerID)
	if err != nil {
		return nil, customerdomain.ErrCustomerNotFound
	}

	ctx, span := otel.Tracer("churnguard/prediction").Start(ctx, "prediction.predict")
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("customer_id", id.String()),
		attribute.String("model_version", scoring.ModelVersion),
	)...)

	var resp predictiondomain.PredictionResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := loadCustomer(ctx, tx, id)
		if err != nil {
			return err
		}

		record, err := s.Record(ctx, tx, customer, predictiondomain.RecordOptions{IncludeFactors: true})
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Save(customer).Error; err != nil {
			return err
		}

		resp = predictiondomain.PredictionResponse{
			Record: *record,
			Customer: predictiondomain.CustomerSummary{
				ID:        customer.ID,
				RiskScore: customer.RiskScore,
				Status:    customer.Status,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("prediction recorded",
		zap.String("customer_id", resp.Customer.ID.String()),
		zap.Float64("risk_score", resp.Customer.RiskScore),
		zap.String("status", string(resp.Customer.Status)),
	)
	return &resp, nil
}

// RecomputeAll re-scores every non-churned customer with a bounded
// fan-out. Each customer commits independently; failures are collected
// and reported alongside the processed count.
func (s *Service) RecomputeAll(ctx context.Context) (*predictiondomain.BulkRecomputeResult, error) {
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).
		Model(&customerdomain.Customer{}).
		Where("status <> ?", scoring.StatusChurned).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	failed := make([]predictiondomain.FailedCustomer, 0)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, id := range ids {
		group.Go(func() error {
			if err := s.recomputeOne(groupCtx, id); err != nil {
				mu.Lock()
				failed = append(failed, predictiondomain.FailedCustomer{
					CustomerID: id,
					Reason:     err.Error(),
				})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()

	sort.Slice(failed, func(i, j int) bool { return failed[i].CustomerID < failed[j].CustomerID })

	result := &predictiondomain.BulkRecomputeResult{
		Processed: len(ids) - len(failed),
		Failed:    failed,
	}

	s.metrics.ObserveBulkRun(result.Processed, len(failed))
	s.log.Info("bulk recompute finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", len(failed)),
	)
	return result, nil
}

func (s *Service) recomputeOne(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := loadCustomer(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := s.Record(ctx, tx, customer, predictiondomain.RecordOptions{}); err != nil {
			return err
		}
		return tx.WithContext(ctx).Save(customer).Error
	})
}

func (s *Service) History(ctx context.Context, customerID string) ([]predictiondomain.Record, error) {
	id, err := parseCustomerID(customerID)
	if err != nil {
		return nil, customerdomain.ErrCustomerNotFound
	}

	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&customerdomain.Customer{}).
		Where("id = ?", id).
		Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, customerdomain.ErrCustomerNotFound
	}

	var records []predictiondomain.Record
	err = s.db.WithContext(ctx).
		Where("customer_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// pruneHistory enforces the configured retention cap, dropping the oldest
// rows beyond it. With retention unset the history grows without bound.
func (s *Service) pruneHistory(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) error {
	return tx.WithContext(ctx).Exec(
		`DELETE FROM prediction_records
		 WHERE customer_id = ?
		 AND id NOT IN (
			SELECT id FROM prediction_records
			WHERE customer_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		 )`,
		customerID,
		customerID,
		s.historyRetention,
	).Error
}

func (s *Service) publishTransition(ctx context.Context, tx *gorm.DB, customer *customerdomain.Customer, previous scoring.Status, record predictiondomain.Record) error {
	var eventType string
	switch customer.Status {
	case scoring.StatusAtRisk:
		eventType = events.EventCustomerAtRisk
	case scoring.StatusChurned:
		eventType = events.EventCustomerChurned
	case scoring.StatusActive:
		eventType = events.EventCustomerRecovered
	default:
		return nil
	}

	payload := events.StatusChangedPayload{
		CustomerID:     customer.ID.String(),
		PreviousStatus: string(previous),
		NewStatus:      string(customer.Status),
		RiskScore:      customer.RiskScore,
		ModelVersion:   record.ModelVersion,
	}
	return s.outbox.PublishTx(ctx, tx, events.Event{
		CustomerID: customer.ID,
		Type:       eventType,
		Payload:    payload.ToMap(),
		DedupeKey:  fmt.Sprintf("%s:%s:%s", customer.ID, customer.Status, record.ID),
	})
}

func loadCustomer(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := tx.WithContext(ctx).First(&customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, customerdomain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func parseCustomerID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
