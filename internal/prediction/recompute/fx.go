package recompute

import (
	"context"

	"github.com/retainly/churnguard/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("prediction.recompute",
	fx.Provide(func(cfg config.Config) Config {
		return Config{Interval: cfg.Scoring.RecomputeInterval}
	}),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *Worker, cfg config.Config) {
	// The loop only runs when an interval is configured; API-triggered
	// recompute is always available regardless.
	if cfg.Scoring.RecomputeInterval <= 0 {
		return
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go worker.RunForever(loopCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}
