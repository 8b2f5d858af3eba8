// Package seed loads a small demonstration dataset on first boot. It is
// an explicit bootstrap step, gated by configuration, and never runs
// against a non-empty customer table.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/retainly/churnguard/internal/clock"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	predictiondomain "github.com/retainly/churnguard/internal/prediction/domain"
	"gorm.io/gorm"
)

type sample struct {
	Name              string
	Email             string
	Company           string
	SubscriptionValue float64
	ContractLength    int
	SupportTickets    int
	LoginFrequency    float64
	DaysInactive      float64
	Features          customerdomain.FeatureSet
}

// samples spans the reachable risk spectrum so a fresh install has both
// moderate and high risk customers to look at.
var samples = []sample{
	{
		Name:              "Avery Collins",
		Email:             "avery.collins@brightloop.io",
		Company:           "Brightloop",
		SubscriptionValue: 9500,
		ContractLength:    24,
		SupportTickets:    1,
		LoginFrequency:    22,
		DaysInactive:      2,
		Features: customerdomain.FeatureSet{
			DaysSinceLastLogin:  2,
			AvgSessionDuration:  34,
			TotalTransactions:   188,
			AvgTransactionValue: 96,
			ProductUsage:        87,
			SupportSatisfaction: 9,
			RenewalHistory:      2,
		},
	},
	{
		Name:              "Jonas Keller",
		Email:             "jonas.keller@nordpaper.com",
		Company:           "Nordpaper",
		SubscriptionValue: 340,
		ContractLength:    6,
		SupportTickets:    6,
		LoginFrequency:    6,
		DaysInactive:      21,
		Features: customerdomain.FeatureSet{
			DaysSinceLastLogin:  21,
			AvgSessionDuration:  11,
			TotalTransactions:   42,
			AvgTransactionValue: 18,
			ProductUsage:        41,
			SupportSatisfaction: 5,
			RenewalHistory:      1,
		},
	},
	{
		Name:              "Priya Raman",
		Email:             "priya.raman@quietharbor.co",
		Company:           "Quiet Harbor",
		SubscriptionValue: 80,
		ContractLength:    1,
		SupportTickets:    14,
		LoginFrequency:    0.5,
		DaysInactive:      75,
		Features: customerdomain.FeatureSet{
			DaysSinceLastLogin:  75,
			AvgSessionDuration:  3,
			TotalTransactions:   4,
			AvgTransactionValue: 9,
			ProductUsage:        6,
			SupportSatisfaction: 2,
			RenewalHistory:      0,
		},
	},
}

// Run inserts the sample customers, scoring each through the recorder so
// their risk state is consistent with live predictions. It is a no-op
// when any customer already exists.
func Run(db *gorm.DB, genID *snowflake.Node, clk clock.Clock, recorder predictiondomain.Recorder) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&customerdomain.Customer{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := clk.Now()
		for _, s := range samples {
			customer := customerdomain.Customer{
				ID:                genID.Generate(),
				Name:              s.Name,
				Email:             s.Email,
				Company:           s.Company,
				SubscriptionValue: s.SubscriptionValue,
				ContractLength:    s.ContractLength,
				SupportTickets:    s.SupportTickets,
				LoginFrequency:    s.LoginFrequency,
				LastActivityAt:    now.Add(-time.Duration(s.DaysInactive*24) * time.Hour),
				FeatureSet:        s.Features,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if _, err := recorder.Record(ctx, tx, &customer, predictiondomain.RecordOptions{IncludeFactors: true}); err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Create(&customer).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
