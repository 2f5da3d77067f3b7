// Package infrastructure contains infrastructure layer components
package infrastructure

import (
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/internal/infrastructure/botapi"
	"github.com/Conte777/media-relay/internal/infrastructure/crypto"
	"github.com/Conte777/media-relay/internal/infrastructure/database"
	"github.com/Conte777/media-relay/internal/infrastructure/ffmpeg"
	httpfx "github.com/Conte777/media-relay/internal/infrastructure/http"
	"github.com/Conte777/media-relay/internal/infrastructure/kafka"
	"github.com/Conte777/media-relay/internal/infrastructure/logger"
	"github.com/Conte777/media-relay/internal/infrastructure/metrics"
	"github.com/Conte777/media-relay/internal/infrastructure/s3"
	"github.com/Conte777/media-relay/internal/infrastructure/telegram"
)

// Module aggregates all infrastructure modules
var Module = fx.Module("infrastructure",
	logger.Module,
	metrics.Module,
	crypto.Module,
	database.Module, // Must be before the credential store (depends on *gorm.DB)
	telegram.Module,
	ffmpeg.Module,
	kafka.Module,
	s3.Module,
	httpfx.Module,
	botapi.Module,
)
