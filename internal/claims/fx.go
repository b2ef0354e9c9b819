package claims

import (
	"github.com/petroworks/pumpline/internal/claims/service"
	"go.uber.org/fx"
)

var Module = fx.Module("claims.service",
	fx.Provide(service.New),
)
