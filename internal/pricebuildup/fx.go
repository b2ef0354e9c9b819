package pricebuildup

import (
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	"github.com/petroworks/pumpline/internal/pricebuildup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricebuildup.service",
	fx.Provide(
		service.New,
		func(s *service.Service) pbdomain.Service { return s },
		func(s *service.Service) claimdomain.PricingSnapshots { return s },
	),
)
