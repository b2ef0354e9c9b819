package ratecomponent

import (
	"github.com/petroworks/pumpline/internal/ratecomponent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratecomponent.service",
	fx.Provide(service.New),
)
