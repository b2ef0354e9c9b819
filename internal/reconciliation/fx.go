package reconciliation

import (
	"github.com/petroworks/pumpline/internal/reconciliation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciliation.service",
	fx.Provide(service.New),
)
