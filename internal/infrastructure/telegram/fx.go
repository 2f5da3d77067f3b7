package telegram

import (
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/internal/domain"
)

// Module provides the MTProto connector for fx DI
var Module = fx.Module("telegram",
	fx.Provide(
		NewConnector,
		// Provide Connector interface for the session manager
		func(c *Connector) domain.Connector {
			return c
		},
	),
)
