// Package recompute runs periodic population-wide re-scoring so risk
// state tracks feature drift without waiting for explicit API triggers.
package recompute

import (
	"context"
	"errors"
	"time"

	predictiondomain "github.com/retainly/churnguard/internal/prediction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Prediction predictiondomain.Service
	Config     Config `optional:"true"`
}

type Worker struct {
	log        *zap.Logger
	prediction predictiondomain.Service
	cfg        Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:        p.Log.Named("prediction.recompute"),
		prediction: p.Prediction,
		cfg:        p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("scheduled recompute failed", zap.Error(err))
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	if w.prediction == nil {
		return errors.New("recompute_worker_unavailable")
	}

	result, err := w.prediction.RecomputeAll(ctx)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		w.log.Warn("scheduled recompute had failures",
			zap.Int("processed", result.Processed),
			zap.Int("failed", len(result.Failed)),
		)
	}
	return nil
}
