package equalisation

import (
	"github.com/petroworks/pumpline/internal/equalisation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("equalisation.service",
	fx.Provide(service.New),
)
