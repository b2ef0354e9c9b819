package reference

import (
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	"github.com/petroworks/pumpline/internal/reference/domain"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("reference.repository",
	fx.Provide(
		NewRepository,
		func(r *Repository) domain.Repository { return r },
		func(r *Repository) claimdomain.DeliveryRegistry { return r },
		func(r *Repository) pbdomain.StationDirectory { return r },
		func(r *Repository) setdomain.DealerDirectory { return r },
	),
)
