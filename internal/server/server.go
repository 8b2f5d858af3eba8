// Package server exposes the HTTP+JSON boundary of the service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	analyticsdomain "github.com/retainly/churnguard/internal/analytics/domain"
	auditservice "github.com/retainly/churnguard/internal/audit/service"
	"github.com/retainly/churnguard/internal/config"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	"github.com/retainly/churnguard/internal/observability/logger"
	"github.com/retainly/churnguard/internal/observability/metrics"
	predictiondomain "github.com/retainly/churnguard/internal/prediction/domain"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

// Server holds the handler dependencies.
type Server struct {
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	engine   *gin.Engine
	registry *prometheus.Registry

	customerSvc   customerdomain.Service
	predictionSvc predictiondomain.Service
	analyticsSvc  analyticsdomain.Service
	auditSvc      *auditservice.Service
}

type ServerParam struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Engine   *gin.Engine
	Registry *prometheus.Registry

	CustomerSvc   customerdomain.Service
	PredictionSvc predictiondomain.Service
	AnalyticsSvc  analyticsdomain.Service
	AuditSvc      *auditservice.Service `optional:"true"`
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("churnguard"))
	engine.Use(metrics.GinMiddleware(httpMetrics))
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	return engine
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:           p.Config,
		log:           p.Log.Named("server"),
		db:            p.DB,
		engine:        p.Engine,
		registry:      p.Registry,
		customerSvc:   p.CustomerSvc,
		predictionSvc: p.PredictionSvc,
		analyticsSvc:  p.AnalyticsSvc,
		auditSvc:      p.AuditSvc,
	}
}

// RegisterRoutes mounts all API routes.
func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api/v1")
	{
		api.GET("/customers", s.ListCustomers)
		api.POST("/customers", s.CreateCustomer)
		api.GET("/customers/:id", s.GetCustomerByID)
		api.PUT("/customers/:id", s.UpdateCustomer)
		api.DELETE("/customers/:id", s.DeleteCustomer)

		api.POST("/customers/:id/predict", s.PredictCustomer)
		api.GET("/customers/:id/predictions", s.ListPredictions)

		api.POST("/customers/:id/interactions", s.AddInteraction)
		api.GET("/customers/:id/interactions", s.ListInteractions)

		api.POST("/predictions/recompute", s.BulkRecompute)
		api.GET("/analytics/summary", s.AnalyticsSummary)
		api.GET("/audit-logs", s.ListAuditLogs)
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", s.cfg.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("http server shutting down")
			return srv.Shutdown(ctx)
		},
	})
}
