// Package relay contains the relay pipeline and the relay targets
package relay

import (
	"context"

	"go.uber.org/fx"

	"github.com/Conte777/media-relay/internal/domain/relay/deps"
	"github.com/Conte777/media-relay/internal/domain/relay/targets"
	"github.com/Conte777/media-relay/internal/domain/relay/usecase/business"
)

// Module provides relay domain components for fx DI
var Module = fx.Module("relay",
	fx.Provide(
		targets.NewService,
		// Provide TargetSource interface for the pipeline
		func(s *targets.Service) deps.TargetSource {
			return s
		},
		business.NewUseCase,
	),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle loads persisted relay targets on start
func registerLifecycle(lc fx.Lifecycle, s *targets.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Load(ctx)
			return nil
		},
	})
}
