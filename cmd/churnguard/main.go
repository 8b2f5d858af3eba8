package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/retainly/churnguard/internal/analytics"
	"github.com/retainly/churnguard/internal/audit"
	"github.com/retainly/churnguard/internal/clock"
	"github.com/retainly/churnguard/internal/config"
	"github.com/retainly/churnguard/internal/customer"
	"github.com/retainly/churnguard/internal/migration"
	"github.com/retainly/churnguard/internal/observability"
	"github.com/retainly/churnguard/internal/observability/logger"
	"github.com/retainly/churnguard/internal/prediction"
	predictiondomain "github.com/retainly/churnguard/internal/prediction/domain"
	"github.com/retainly/churnguard/internal/prediction/recompute"
	"github.com/retainly/churnguard/internal/seed"
	"github.com/retainly/churnguard/internal/server"
	"github.com/retainly/churnguard/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		observability.Module,
		db.Module,
		clock.Module,
		audit.Module,
		prediction.Module,
		customer.Module,
		analytics.Module,
		recompute.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, clk clock.Clock, recorder predictiondomain.Recorder) error {
			if err := migration.Migrate(conn); err != nil {
				return err
			}
			if cfg.Bootstrap.SeedSampleData {
				return seed.Run(conn, genID, clk, recorder)
			}
			return nil
		}),
		server.Module,
	)
	app.Run()
}
