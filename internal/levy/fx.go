package levy

import (
	"github.com/petroworks/pumpline/internal/levy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("levy.service",
	fx.Provide(service.New),
)
