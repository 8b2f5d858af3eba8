package audit

import (
	"github.com/retainly/churnguard/internal/audit/repository"
	"github.com/retainly/churnguard/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
