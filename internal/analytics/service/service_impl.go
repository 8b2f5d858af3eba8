package service

import (
	"context"
	"math"
	"sort"
	"time"

	analyticsdomain "github.com/retainly/churnguard/internal/analytics/domain"
	"github.com/retainly/churnguard/internal/cache"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	"github.com/retainly/churnguard/internal/observability/metrics"
	"github.com/retainly/churnguard/internal/scoring"
	"github.com/retainly/churnguard/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	bucketSampleLimit = 5
	trendGroupLimit   = 12

	summaryCacheKey = "summary"
	summaryCacheTTL = 30 * time.Second
)

// Histogram bucket labels, in range order.
const (
	BucketLow      = "0.0-0.3"
	BucketMedium   = "0.3-0.7"
	BucketHigh     = "0.7-1.0"
	BucketOverflow = "overflow"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	customerRepo repository.Repository[customerdomain.Customer]
	summaryCache cache.Cache[string, *analyticsdomain.Summary]
	metrics      *metrics.PredictionMetrics
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cache   cache.Cache[string, *analyticsdomain.Summary]
	Metrics *metrics.PredictionMetrics `optional:"true"`
}

func NewService(p ServiceParam) analyticsdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("analytics.service"),
		customerRepo: repository.ProvideStore[customerdomain.Customer](p.DB),
		summaryCache: p.Cache,
		metrics:      p.Metrics,
	}
}

// NewSummaryCache provides the short-lived cache in front of Summary.
func NewSummaryCache() cache.Cache[string, *analyticsdomain.Summary] {
	return cache.NewTTLCache[string, *analyticsdomain.Summary]()
}

func (s *Service) Summary(ctx context.Context) (*analyticsdomain.Summary, error) {
	summary, err := s.summaryCache.GetOrLoad(summaryCacheKey, summaryCacheTTL, func() (*analyticsdomain.Summary, error) {
		customers, err := s.customerRepo.Find(ctx)
		if err != nil {
			return nil, err
		}
		return buildSummary(customers), nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetPopulation(string(scoring.StatusActive), summary.ActiveCount)
	s.metrics.SetPopulation(string(scoring.StatusAtRisk), summary.AtRiskCount)
	s.metrics.SetPopulation(string(scoring.StatusChurned), summary.ChurnedCount)

	return summary, nil
}

func buildSummary(customers []customerdomain.Customer) *analyticsdomain.Summary {
	summary := &analyticsdomain.Summary{
		TotalCustomers: int64(len(customers)),
		RiskBuckets:    emptyBuckets(),
		MonthlyTrend:   []analyticsdomain.TrendGroup{},
	}
	if len(customers) == 0 {
		return summary
	}

	var riskSum, valueSum, ticketSum float64
	trend := make(map[[2]int]*analyticsdomain.TrendGroup)
	trendRisk := make(map[[2]int]float64)

	for _, c := range customers {
		switch c.Status {
		case scoring.StatusActive:
			summary.ActiveCount++
		case scoring.StatusAtRisk:
			summary.AtRiskCount++
		case scoring.StatusChurned:
			summary.ChurnedCount++
		}

		riskSum += c.RiskScore
		valueSum += c.SubscriptionValue
		ticketSum += float64(c.SupportTickets)

		addToBucket(summary.RiskBuckets, c)

		key := [2]int{c.CreatedAt.Year(), int(c.CreatedAt.Month())}
		group, ok := trend[key]
		if !ok {
			group = &analyticsdomain.TrendGroup{Year: key[0], Month: key[1]}
			trend[key] = group
		}
		group.NewCustomers++
		trendRisk[key] += c.RiskScore
	}

	total := float64(len(customers))
	summary.ChurnRate = round2(float64(summary.ChurnedCount) / total * 100)
	summary.AvgRiskScore = riskSum / total
	summary.AvgSubscriptionValue = valueSum / total
	summary.AvgSupportTickets = ticketSum / total
	summary.MonthlyTrend = buildTrend(trend, trendRisk)

	return summary
}

func emptyBuckets() []analyticsdomain.RiskBucket {
	labels := []string{BucketLow, BucketMedium, BucketHigh, BucketOverflow}
	buckets := make([]analyticsdomain.RiskBucket, 0, len(labels))
	for _, label := range labels {
		buckets = append(buckets, analyticsdomain.RiskBucket{
			Label:  label,
			Sample: []analyticsdomain.BucketMember{},
		})
	}
	return buckets
}

// addToBucket places a customer into its disjoint risk range. Scores
// outside [0,1] cannot occur behind the scorer's clamp but land in the
// overflow bucket rather than being dropped.
func addToBucket(buckets []analyticsdomain.RiskBucket, c customerdomain.Customer) {
	idx := 3
	switch {
	case c.RiskScore >= 0 && c.RiskScore < 0.3:
		idx = 0
	case c.RiskScore >= 0.3 && c.RiskScore < 0.7:
		idx = 1
	case c.RiskScore >= 0.7 && c.RiskScore <= 1.0:
		idx = 2
	}

	buckets[idx].Count++
	if len(buckets[idx].Sample) < bucketSampleLimit {
		buckets[idx].Sample = append(buckets[idx].Sample, analyticsdomain.BucketMember{
			Name:      c.Name,
			Email:     c.Email,
			RiskScore: c.RiskScore,
		})
	}
}

// buildTrend orders groups ascending by (year, month) and keeps the most
// recent 12 when more exist.
func buildTrend(groups map[[2]int]*analyticsdomain.TrendGroup, riskSums map[[2]int]float64) []analyticsdomain.TrendGroup {
	out := make([]analyticsdomain.TrendGroup, 0, len(groups))
	for key, group := range groups {
		group.AvgRiskScore = riskSums[key] / float64(group.NewCustomers)
		out = append(out, *group)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})

	if len(out) > trendGroupLimit {
		out = out[len(out)-trendGroupLimit:]
	}
	return out
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
