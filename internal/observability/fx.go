// Package observability assembles tracing and metrics for the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/retainly/churnguard/internal/config"
	"github.com/retainly/churnguard/internal/observability/metrics"
	"github.com/retainly/churnguard/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const serviceName = "churnguard"

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.Tracing.Enabled,
			ServiceName:      serviceName,
			ServiceVersion:   "1.0",
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
			ExporterProtocol: cfg.Tracing.ExporterProtocol,
			SamplingRatio:    cfg.Tracing.SamplingRatio,
		}
	}),
	fx.Invoke(func(lc fx.Lifecycle, cfg tracing.Config, log *zap.Logger) error {
		_, err := tracing.NewProvider(lc, cfg, log)
		return err
	}),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(metrics.NewRegistry),
	fx.Provide(metrics.NewMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(func(registry *prometheus.Registry, cfg metrics.Config) *metrics.PredictionMetrics {
		return metrics.NewPredictionMetrics(registry, cfg)
	}),
)
