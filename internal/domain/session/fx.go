// Package session contains the login state machine and the connection pool
package session

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain/session/pool"
	"github.com/Conte777/media-relay/internal/domain/session/usecase/business"
)

// Module provides session domain components for fx DI
var Module = fx.Module("session",
	fx.Provide(
		pool.New,
		business.NewUseCase,
	),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle restores stored sessions on start and closes every connection on stop
func registerLifecycle(
	lc fx.Lifecycle,
	uc *business.UseCase,
	cfg *config.TelegramConfig,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := uc.InitFallback(ctx, cfg.SessionString); err != nil {
				logger.Warn().Err(err).Msg("SESSION_STRING could not be connected, continuing without fallback")
			}
			uc.LoadPersistedSessions(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			uc.Shutdown(ctx)
			return nil
		},
	})
}
