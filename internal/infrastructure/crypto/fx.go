package crypto

import (
	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides the session token sealer
var Module = fx.Module("crypto",
	fx.Provide(NewTokenSealer),
)

// NewTokenSealer picks a Sealer when SESSION_SECRET is set and PlainSealer otherwise
func NewTokenSealer(cfg *config.TelegramConfig, logger zerolog.Logger) (domain.TokenSealer, error) {
	if cfg.SessionSecret == "" {
		logger.Warn().Msg("SESSION_SECRET not set, session tokens are stored unsealed")
		return PlainSealer{}, nil
	}
	return NewSealer(cfg.SessionSecret)
}
