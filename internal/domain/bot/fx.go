// Package bot contains the bot command surface
package bot

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	batchbusiness "github.com/Conte777/media-relay/internal/domain/batch/usecase/business"
	telegramDelivery "github.com/Conte777/media-relay/internal/domain/bot/delivery/telegram"
	"github.com/Conte777/media-relay/internal/domain/bot/deps"
	"github.com/Conte777/media-relay/internal/domain/bot/usecase/business"
	"github.com/Conte777/media-relay/internal/domain/relay/targets"
	relaybusiness "github.com/Conte777/media-relay/internal/domain/relay/usecase/business"
	sessionbusiness "github.com/Conte777/media-relay/internal/domain/session/usecase/business"
	"github.com/Conte777/media-relay/internal/domain/transfer/workers"
	"github.com/Conte777/media-relay/internal/infrastructure/botapi"
)

// Module provides bot domain components for fx dependency injection
var Module = fx.Module("bot",
	// Dependencies of the use case
	fx.Provide(
		func(uc *sessionbusiness.UseCase) deps.Sessions { return uc },
		func(uc *relaybusiness.UseCase) deps.Relayer { return uc },
		func(uc *batchbusiness.UseCase) deps.BatchRunner { return uc },
		func(s *workers.Scheduler) deps.Scheduler { return s },
		func(s *targets.Service) deps.Targets { return s },
	),

	// UseCase
	fx.Provide(business.NewUseCase),

	// Delivery - Telegram (needs raw bot from infrastructure)
	fx.Provide(provideTelegramHandlers),
	fx.Provide(telegramDelivery.NewRouter),

	// Wire cyclic dependency and register routes
	fx.Invoke(wireAndRegister),
)

// provideTelegramHandlers creates Telegram handlers with raw bot
func provideTelegramHandlers(uc *business.UseCase, bot *botapi.Bot, logger zerolog.Logger) *telegramDelivery.Handlers {
	return telegramDelivery.NewHandlers(uc, bot.Raw(), bot.Username, logger)
}

// wireAndRegister resolves the cyclic dependency, registers routes and
// announces startup once sessions have been restored
func wireAndRegister(
	lc fx.Lifecycle,
	uc *business.UseCase,
	handlers *telegramDelivery.Handlers,
	router *telegramDelivery.Router,
	bot *botapi.Bot,
	logger zerolog.Logger,
) {
	// Handlers implements deps.Messenger
	uc.SetSender(handlers)

	router.RegisterRoutes(bot.Raw())
	bot.SetDefaultHandler(router.DefaultHandler())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := bot.RegisterCommands(ctx, telegramDelivery.MenuCommands()); err != nil {
				logger.Warn().Err(err).Msg("Failed to register bot command menu")
			}
			if err := uc.NotifyStartup(ctx); err != nil {
				logger.Warn().Err(err).Msg("Failed to send startup notification")
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := uc.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("Background relays still reporting at shutdown")
			}
			return nil
		},
	})
}
