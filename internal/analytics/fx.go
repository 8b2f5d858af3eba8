package analytics

import (
	"github.com/retainly/churnguard/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(service.NewSummaryCache),
	fx.Provide(service.NewService),
)
