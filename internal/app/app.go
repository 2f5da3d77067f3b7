// Package app contains application bootstrap
package app

import (
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain/batch"
	"github.com/Conte777/media-relay/internal/domain/bot"
	"github.com/Conte777/media-relay/internal/domain/credential"
	"github.com/Conte777/media-relay/internal/domain/relay"
	"github.com/Conte777/media-relay/internal/domain/session"
	"github.com/Conte777/media-relay/internal/domain/status"
	"github.com/Conte777/media-relay/internal/domain/transfer/workers"
	"github.com/Conte777/media-relay/internal/infrastructure"
)

// CreateApp creates fx application with all modules
func CreateApp() fx.Option {
	return fx.Options(
		// Configuration
		fx.Provide(config.Out),

		// Infrastructure (logger, database, MTProto, bot API, HTTP)
		infrastructure.Module,

		// Domain modules
		credential.Module,
		relay.Module,   // Must be before bot.Module (targets are loaded on start)
		session.Module, // Must be before bot.Module (sessions are restored before the startup notice)
		workers.Module,
		batch.Module,
		bot.Module,
		status.Module,
	)
}
