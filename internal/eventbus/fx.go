package eventbus

import (
	"github.com/petroworks/pumpline/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("eventbus",
	fx.Provide(
		NewRedisTransport,
		fx.Annotate(provideChannel, fx.ResultTags(`name:"event_channel"`)),
		NewPublisher,
	),
)

func provideChannel(cfg config.Config) string {
	return cfg.EventChannel
}
