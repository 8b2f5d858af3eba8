package prediction

import (
	"github.com/retainly/churnguard/internal/prediction/domain"
	"github.com/retainly/churnguard/internal/prediction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("prediction.service",
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
	fx.Provide(func(s *service.Service) domain.Recorder { return s }),
)
